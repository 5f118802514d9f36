package relay

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clinicopilot/server/internal/metrics"
)

const (
	defaultModel             = "nova-2-general"
	defaultEncoding          = "opus"
	defaultSampleRate        = 48000
	defaultChannels          = 1
	defaultKeepAliveInterval = 4 * time.Second
	defaultMaxPending        = 256
)

// RecognizerConfig holds the fixed parameters for upstream recognizer
// connections. Audio format parameters are static configuration, not
// negotiated per request.
type RecognizerConfig struct {
	// URL is the recognizer's listen endpoint, e.g. "wss://api.deepgram.com/v1/listen".
	URL string
	// APIKey authenticates against the recognizer. When empty the relay runs
	// in a disabled state: audio is accepted and dropped, no transcripts are
	// produced.
	APIKey string

	Model       string
	Encoding    string
	SampleRate  int
	Channels    int
	SmartFormat bool

	// KeepAliveInterval is the period between keep-alive frames sent to hold
	// the upstream connection open across silence.
	KeepAliveInterval time.Duration

	// MaxPendingFragments caps the per-session queue of audio waiting on the
	// upstream socket, whether it is still connecting or slow to accept
	// writes. On overflow the oldest fragment is dropped, since the most
	// recent audio is the most valuable to a live transcript.
	MaxPendingFragments int
}

func (c RecognizerConfig) withDefaults() RecognizerConfig {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Encoding == "" {
		c.Encoding = defaultEncoding
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = defaultChannels
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = defaultKeepAliveInterval
	}
	if c.MaxPendingFragments <= 0 {
		c.MaxPendingFragments = defaultMaxPending
	}
	return c
}

// Enabled reports whether the recognizer is configured. A missing API key is
// a deliberate degrade-gracefully state, not an error.
func (c RecognizerConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c RecognizerConfig) listenURL() string {
	q := url.Values{}
	q.Set("model", c.Model)
	if c.SmartFormat {
		q.Set("smart_format", "true")
	}
	return fmt.Sprintf("%s?%s", c.URL, q.Encode())
}

// Manager is the session registry. It maps a session key to at most one live
// upstream recognizer socket and owns session creation and teardown.
type Manager struct {
	cfg         RecognizerConfig
	dialer      Dialer
	store       TranscriptStore
	broadcaster *Broadcaster
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[Key]*upstream

	disabledOnce sync.Once
}

// NewManager creates a session manager. A nil dialer selects the production
// websocket dialer.
func NewManager(cfg RecognizerConfig, dialer Dialer, store TranscriptStore, broadcaster *Broadcaster, logger *zap.Logger) *Manager {
	if dialer == nil {
		dialer = NewDialer()
	}
	return &Manager{
		cfg:         cfg.withDefaults(),
		dialer:      dialer,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		sessions:    make(map[Key]*upstream),
	}
}

// SubmitAudio accepts one audio fragment for a session. It rejects empty
// fragments, lazily creates the session's upstream socket, and queues the
// fragment for the session's writer. It never waits on recognizer network
// I/O.
func (m *Manager) SubmitAudio(ctx context.Context, key Key, fragment []byte) error {
	if len(fragment) == 0 {
		return ErrEmptyFragment
	}

	if !m.cfg.Enabled() {
		m.disabledOnce.Do(func() {
			m.logger.Warn("recognizer api key is not configured, dropping all audio",
				zap.String("url", m.cfg.URL))
		})
		metrics.Default.FragmentsDropped.WithLabelValues("recognizer_disabled").Inc()
		return nil
	}

	metrics.Default.FragmentsReceived.Inc()
	metrics.Default.AudioBytesIn.Add(float64(len(fragment)))

	m.session(key).submit(fragment)
	return nil
}

// session returns the live upstream socket for key, creating and starting a
// fresh one when none exists or the previous one has closed.
func (m *Manager) session(key Key) *upstream {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		if !s.closed() {
			return s
		}
		// Closed socket that has not deregistered itself yet; replace it
		// here so its late drop cannot remove the fresh session.
		delete(m.sessions, key)
		metrics.Default.SessionsActive.Dec()
	}

	s := newUpstream(key, m.cfg, m.dialer, m.store, m.broadcaster, m, m.logger)
	m.sessions[key] = s

	// The socket outlives the submitting request, so it runs against its own
	// context rather than the caller's.
	go s.run(context.Background())

	m.logger.Info("opening recognizer stream",
		zap.String("user_id", key.UserID),
		zap.String("appointment_id", key.AppointmentID))
	metrics.Default.SessionsOpened.Inc()
	metrics.Default.SessionsActive.Inc()

	return s
}

// drop removes the mapping for key if it still points at s. The next audio
// fragment for the key creates a fresh session; no automatic reconnect.
func (m *Manager) drop(key Key, s *upstream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[key]; ok && cur == s {
		delete(m.sessions, key)
		metrics.Default.SessionsActive.Dec()
	}
}

// ActiveSessions reports the number of live upstream sockets.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
