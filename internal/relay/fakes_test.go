package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn is a scripted upstream connection. Tests feed inbound frames via
// emit and inspect recorded writes.
type fakeConn struct {
	mu        sync.Mutex
	writes    []recordedWrite
	writeErr  error
	writeGate chan struct{}

	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

type recordedWrite struct {
	messageType int
	data        []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 32),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.record(websocket.TextMessage, data)
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	return c.record(messageType, append([]byte(nil), data...))
}

func (c *fakeConn) record(messageType int, data []byte) error {
	c.mu.Lock()
	gate := c.writeGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, recordedWrite{messageType: messageType, data: data})
	return nil
}

// blockWrites makes every subsequent write hang until the returned channel is
// closed, modeling a recognizer that stops reading.
func (c *fakeConn) blockWrites() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeGate = make(chan struct{})
	return c.writeGate
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inbound:
		return websocket.TextMessage, data, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// emit delivers one inbound recognizer frame to the read loop.
func (c *fakeConn) emit(frame string) {
	c.inbound <- []byte(frame)
}

func (c *fakeConn) binaryWrites() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, w := range c.writes {
		if w.messageType == websocket.BinaryMessage {
			out = append(out, w.data)
		}
	}
	return out
}

func (c *fakeConn) textWrites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, w := range c.writes {
		if w.messageType == websocket.TextMessage {
			out = append(out, string(w.data))
		}
	}
	return out
}

// fakeDialer hands out fakeConns. A non-nil gate blocks each dial until the
// test releases it, which models the Connecting window.
type fakeDialer struct {
	mu       sync.Mutex
	conns    []*fakeConn
	attempts int
	err      error
	gate     chan struct{}
}

func (d *fakeDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	if d.gate != nil {
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// fakeStore is an in-memory TranscriptStore.
type fakeStore struct {
	mu        sync.Mutex
	appendErr error
	segments  map[Key][]Segment
}

func newFakeStore() *fakeStore {
	return &fakeStore{segments: make(map[Key][]Segment)}
}

func (s *fakeStore) Append(ctx context.Context, userID, appointmentID string, segment Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	key := Key{UserID: userID, AppointmentID: appointmentID}
	s.segments[key] = append(s.segments[key], segment)
	return nil
}

func (s *fakeStore) ListAll(ctx context.Context, userID, appointmentID string) ([]Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Key{UserID: userID, AppointmentID: appointmentID}
	return append([]Segment(nil), s.segments[key]...), nil
}

func (s *fakeStore) texts(key Key) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, seg := range s.segments[key] {
		out = append(out, seg.Text)
	}
	return out
}

// fakeViewer records delivered events. A non-nil sendErr simulates a dead
// connection; onSend fires before the event is recorded.
type fakeViewer struct {
	mu      sync.Mutex
	events  []Event
	sendErr error
	onSend  func(Event)
}

func (v *fakeViewer) Send(event Event) error {
	v.mu.Lock()
	sendErr := v.sendErr
	onSend := v.onSend
	v.mu.Unlock()
	if onSend != nil {
		onSend(event)
	}
	if sendErr != nil {
		return sendErr
	}
	v.mu.Lock()
	v.events = append(v.events, event)
	v.mu.Unlock()
	return nil
}

func (v *fakeViewer) texts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, e := range v.events {
		out = append(out, e.Chunk.Text)
	}
	return out
}

func (v *fakeViewer) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.events)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
