package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
	"github.com/clinicopilot/server/internal/auth"
	"github.com/clinicopilot/server/internal/relay"
)

type fakeUsers struct {
	repositories.UserRepository
	user *entities.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeTranscripts struct {
	mu       sync.Mutex
	listErr  error
	segments map[relay.Key][]relay.Segment
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{segments: make(map[relay.Key][]relay.Segment)}
}

func (f *fakeTranscripts) Append(ctx context.Context, userID, appointmentID string, segment relay.Segment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := relay.Key{UserID: userID, AppointmentID: appointmentID}
	f.segments[key] = append(f.segments[key], segment)
	return nil
}

func (f *fakeTranscripts) ListAll(ctx context.Context, userID, appointmentID string) ([]relay.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	key := relay.Key{UserID: userID, AppointmentID: appointmentID}
	return append([]relay.Segment(nil), f.segments[key]...), nil
}

type testEnv struct {
	echo        *echo.Echo
	token       string
	users       *fakeUsers
	broadcaster *relay.Broadcaster
	transcripts *fakeTranscripts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	user := &entities.User{
		ID:         "user-1",
		FirstName:  "Alex",
		LastName:   "Kim",
		Email:      "alex@example.com",
		Profession: entities.ProfessionGeneralPractitioner,
	}

	issuer := auth.NewTokenIssuer("test-secret", "")
	token, err := issuer.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}

	transcripts := newFakeTranscripts()
	broadcaster := relay.NewBroadcaster(logger)
	// No recognizer key configured: submitted audio is dropped silently,
	// which is all the ingest handler tests need.
	manager := relay.NewManager(relay.RecognizerConfig{}, nil, transcripts, broadcaster, logger)

	users := &fakeUsers{user: user}
	server := NewServer(ServerParams{
		Logger:       logger,
		Users:        users,
		Issuer:       issuer,
		RelayManager: manager,
		Broadcaster:  broadcaster,
		Transcripts:  transcripts,
	})

	e := echo.New()
	server.RegisterRoutes(e)

	return &testEnv{echo: e, token: token, users: users, broadcaster: broadcaster, transcripts: transcripts}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestIngestRejectsEmptyPayload(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/apt-1/transcription/audio", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error != "empty_payload" {
		t.Fatalf("error = %q, want empty_payload", resp.Error)
	}
}

func TestIngestRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/apt-1/transcription/audio",
		strings.NewReader("opus-bytes"))
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIngestAcceptsFragment(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/apt-1/transcription/audio",
		strings.NewReader("opus-bytes"))
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
}

// syncRecorder makes the recorder body safe to poll while the streaming
// handler is still writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

// parseChunks extracts the transcript text carried by each SSE data frame.
func parseChunks(t *testing.T, body string) []string {
	t.Helper()
	var texts []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event relay.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("invalid frame %q: %v", line, err)
		}
		if event.Type != "chunk" {
			t.Fatalf("unexpected event type %q", event.Type)
		}
		texts = append(texts, event.Chunk.Text)
	}
	return texts
}

func TestStreamReplaysHistoryThenDeliversLive(t *testing.T) {
	env := newTestEnv(t)
	key := relay.Key{UserID: "user-1", AppointmentID: "apt-1"}

	// Two segments persisted before the viewer attaches.
	ctx := context.Background()
	_ = env.transcripts.Append(ctx, key.UserID, key.AppointmentID, relay.Segment{Text: "hello", Timestamp: time.Now()})
	_ = env.transcripts.Append(ctx, key.UserID, key.AppointmentID, relay.Segment{Text: "world", Timestamp: time.Now()})

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/appointments/apt-1/transcription/stream?token="+env.token, nil).WithContext(reqCtx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.echo.ServeHTTP(rec, req)
	}()

	waitFor(t, time.Second, func() bool { return env.broadcaster.ViewerCount(key) == 1 })
	// Publishing after the replay finished keeps the expected order strict.
	waitFor(t, time.Second, func() bool { return strings.Contains(rec.body(), "world") })

	env.broadcaster.Publish(key, relay.Segment{Text: "live", Timestamp: time.Now()})

	waitFor(t, time.Second, func() bool { return strings.Contains(rec.body(), "live") })
	cancel()
	<-done

	got := parseChunks(t, rec.body())
	want := []string{"hello", "world", "live"}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", got, want)
		}
	}

	waitFor(t, time.Second, func() bool { return env.broadcaster.ViewerCount(key) == 0 })
}

// blockingWriter models a client whose TCP connection stops reading: every
// write blocks until release is closed.
type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Header() http.Header        { return http.Header{} }
func (w *blockingWriter) WriteHeader(statusCode int) {}
func (w *blockingWriter) Flush()                     {}

func (w *blockingWriter) Write(b []byte) (int, error) {
	<-w.release
	return len(b), nil
}

func TestStalledViewerDoesNotBlockPublish(t *testing.T) {
	e := echo.New()
	release := make(chan struct{})
	defer close(release)

	viewer := newSSEViewer(echo.NewResponse(&blockingWriter{release: release}, e))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go viewer.serve(ctx)

	broadcaster := relay.NewBroadcaster(zap.NewNop())
	key := relay.Key{UserID: "user-1", AppointmentID: "apt-1"}
	broadcaster.Subscribe(key, viewer)

	healthy := &countingViewer{}
	broadcaster.Subscribe(key, healthy)

	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < sseViewerBuffer+8; i++ {
			broadcaster.Publish(key, relay.Segment{Text: "segment", Timestamp: time.Now()})
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked behind a viewer that stopped reading")
	}

	// The stalled viewer is dropped once its queue fills; the healthy viewer
	// received every segment.
	waitFor(t, time.Second, func() bool { return broadcaster.ViewerCount(key) == 1 })
	if got := healthy.count(); got != sseViewerBuffer+8 {
		t.Errorf("healthy viewer received %d segments, want %d", got, sseViewerBuffer+8)
	}
}

// countingViewer accepts every event and counts deliveries.
type countingViewer struct {
	mu sync.Mutex
	n  int
}

func (v *countingViewer) Send(relay.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.n++
	return nil
}

func (v *countingViewer) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.n
}

func TestStreamSurvivesReplayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.transcripts.listErr = errors.New("store unavailable")
	key := relay.Key{UserID: "user-1", AppointmentID: "apt-1"}

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/appointments/apt-1/transcription/stream?token="+env.token, nil).WithContext(reqCtx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.echo.ServeHTTP(rec, req)
	}()

	// The stream stays open without replay and still delivers live segments.
	waitFor(t, time.Second, func() bool { return env.broadcaster.ViewerCount(key) == 1 })
	env.broadcaster.Publish(key, relay.Segment{Text: "live", Timestamp: time.Now()})
	waitFor(t, time.Second, func() bool { return strings.Contains(rec.body(), "live") })

	cancel()
	<-done

	got := parseChunks(t, rec.body())
	if len(got) != 1 || got[0] != "live" {
		t.Fatalf("chunks = %v, want [live]", got)
	}
}

func TestStreamRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/apt-1/transcription/stream", nil)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
