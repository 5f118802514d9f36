package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/internal/metrics"
)

// socketState is the upstream connection lifecycle. Closed is terminal; a
// closed socket is never reused, the manager creates a fresh one instead.
type socketState int

const (
	stateConnecting socketState = iota
	stateReady
	stateClosed
)

// settingsFrame is the one-time configuration message sent after the
// handshake so the recognizer knows the audio format.
type settingsFrame struct {
	Type        string `json:"type"`
	Model       string `json:"model"`
	Encoding    string `json:"encoding"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	SmartFormat bool   `json:"smart_format"`
}

type keepAliveFrame struct {
	Type string `json:"type"`
}

// resultEvent is the inbound recognition event shape. Anything that does not
// parse into this is ignored.
type resultEvent struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// upstream owns one outbound recognizer connection for a session. Submitted
// audio is queued and drained FIFO by a dedicated writer goroutine, so an
// ingest request never waits on recognizer network I/O. A recognizer that
// stops reading stalls only the writer; the queue caps at MaxPendingFragments
// with drop-oldest.
type upstream struct {
	key         Key
	cfg         RecognizerConfig
	dialer      Dialer
	store       TranscriptStore
	broadcaster *Broadcaster
	manager     *Manager
	logger      *zap.Logger

	// mu guards state and pending. conn is set once before the state turns
	// ready and written only by the writer goroutine afterwards; gorilla
	// connections support one concurrent writer.
	mu      sync.Mutex
	state   socketState
	pending [][]byte
	conn    Conn

	// wake nudges the writer goroutine after a fragment lands in pending.
	wake chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newUpstream(key Key, cfg RecognizerConfig, dialer Dialer, store TranscriptStore, broadcaster *Broadcaster, manager *Manager, logger *zap.Logger) *upstream {
	return &upstream{
		key:         key,
		cfg:         cfg,
		dialer:      dialer,
		store:       store,
		broadcaster: broadcaster,
		manager:     manager,
		logger: logger.With(
			zap.String("user_id", key.UserID),
			zap.String("appointment_id", key.AppointmentID)),
		state: stateConnecting,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// submit queues the fragment for the writer goroutine and returns without
// touching the network. Fragments are dropped once the socket is closed (the
// manager will have created a replacement for any fragment that arrives after
// the drop).
func (u *upstream) submit(fragment []byte) {
	u.mu.Lock()
	if u.state == stateClosed {
		u.mu.Unlock()
		metrics.Default.FragmentsDropped.WithLabelValues("socket_closed").Inc()
		return
	}
	if len(u.pending) >= u.cfg.MaxPendingFragments {
		u.pending = u.pending[1:]
		metrics.Default.FragmentsDropped.WithLabelValues("queue_overflow").Inc()
		u.logger.Warn("pending audio queue full, dropping oldest fragment",
			zap.Int("max_pending", u.cfg.MaxPendingFragments))
	}
	u.pending = append(u.pending, fragment)
	u.mu.Unlock()

	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// run dials the recognizer, performs the configuration handshake, starts the
// writer goroutine, and then processes inbound events until the connection
// closes. One attempt per instance; no retry.
func (u *upstream) run(ctx context.Context) {
	header := http.Header{}
	header.Set("Authorization", "Token "+u.cfg.APIKey)

	conn, err := u.dialer.DialContext(ctx, u.cfg.listenURL(), header)
	if err != nil {
		u.logger.Error("recognizer connection failed", zap.Error(err))
		metrics.Default.SessionsFailed.Inc()
		u.close()
		return
	}

	u.mu.Lock()
	if u.state == stateClosed {
		u.mu.Unlock()
		conn.Close()
		return
	}
	u.conn = conn
	u.mu.Unlock()

	if err := conn.WriteJSON(settingsFrame{
		Type:        "Settings",
		Model:       u.cfg.Model,
		Encoding:    u.cfg.Encoding,
		SampleRate:  u.cfg.SampleRate,
		Channels:    u.cfg.Channels,
		SmartFormat: u.cfg.SmartFormat,
	}); err != nil {
		u.logger.Error("failed to send settings to recognizer", zap.Error(err))
		u.close()
		return
	}

	u.mu.Lock()
	if u.state == stateClosed {
		u.mu.Unlock()
		return
	}
	u.state = stateReady
	u.mu.Unlock()

	u.logger.Info("recognizer stream open")

	go u.writeLoop()
	u.readLoop()
}

// writeLoop is the session's only connection writer. It drains queued audio
// FIFO and emits periodic keep-alive frames so the recognizer does not close
// the connection during silence.
func (u *upstream) writeLoop() {
	ticker := time.NewTicker(u.cfg.KeepAliveInterval)
	defer ticker.Stop()

	u.flushPending()
	for {
		select {
		case <-u.done:
			return
		case <-u.wake:
			u.flushPending()
		case <-ticker.C:
			if err := u.conn.WriteJSON(keepAliveFrame{Type: "KeepAlive"}); err != nil {
				u.logger.Error("failed to send keep-alive to recognizer", zap.Error(err))
			}
		}
	}
}

// flushPending writes queued fragments one at a time, releasing the lock
// around each network write so submission never blocks behind it.
func (u *upstream) flushPending() {
	for {
		u.mu.Lock()
		if u.state != stateReady || len(u.pending) == 0 {
			u.mu.Unlock()
			return
		}
		fragment := u.pending[0]
		u.pending = u.pending[1:]
		u.mu.Unlock()

		if err := u.conn.WriteMessage(websocket.BinaryMessage, fragment); err != nil {
			u.logger.Error("failed to forward audio fragment", zap.Error(err))
			return
		}
	}
}

// readLoop is the single event sequence for the session: transcript segments
// are persisted and broadcast in exactly the order events arrive here.
func (u *upstream) readLoop() {
	defer u.close()

	for {
		_, data, err := u.conn.ReadMessage()
		if err != nil {
			u.logger.Info("recognizer stream closed", zap.Error(err))
			return
		}
		u.handleEvent(data)
	}
}

// handleEvent parses one inbound frame. Only final results with non-empty
// trimmed text become segments; partials, empty results, and malformed
// frames are ignored without closing the socket.
func (u *upstream) handleEvent(data []byte) {
	var ev resultEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		u.logger.Debug("ignoring unparsable recognizer frame", zap.Error(err))
		return
	}
	if !strings.EqualFold(ev.Type, "Results") || !ev.IsFinal {
		return
	}

	var text string
	if len(ev.Channel.Alternatives) > 0 {
		text = strings.TrimSpace(ev.Channel.Alternatives[0].Transcript)
	}
	if text == "" {
		return
	}

	segment := Segment{Text: text, Timestamp: time.Now().UTC()}

	// Persist before broadcast so a viewer replaying history never sees a
	// live segment it cannot also find on its next replay.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := u.store.Append(ctx, u.key.UserID, u.key.AppointmentID, segment); err != nil {
		u.logger.Error("failed to persist transcript segment, broadcasting anyway",
			zap.Error(err))
	} else {
		metrics.Default.SegmentsPersisted.Inc()
	}
	cancel()

	u.broadcaster.Publish(u.key, segment)
}

func (u *upstream) close() {
	u.closeOnce.Do(func() {
		u.mu.Lock()
		u.state = stateClosed
		conn := u.conn
		u.pending = nil
		u.mu.Unlock()

		close(u.done)
		if conn != nil {
			conn.Close()
		}
		u.manager.drop(u.key, u)
		u.logger.Info("recognizer session closed")
	})
}

func (u *upstream) closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state == stateClosed
}
