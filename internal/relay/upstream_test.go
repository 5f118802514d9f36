package relay

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func startSession(t *testing.T, m *Manager, dialer *fakeDialer, key Key) *fakeConn {
	t.Helper()
	if err := m.SubmitAudio(context.Background(), key, []byte("warmup")); err != nil {
		t.Fatalf("SubmitAudio: %v", err)
	}
	waitFor(t, time.Second, func() bool { return dialer.dialCount() >= 1 })
	conn := dialer.conn(dialer.dialCount() - 1)
	waitFor(t, time.Second, func() bool { return len(conn.binaryWrites()) == 1 })
	return conn
}

func TestSubmitNeverWaitsOnRecognizerWrites(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := testManager(testConfig(), dialer)
	key := Key{"u1", "a1"}

	conn := startSession(t, m, dialer, key)
	release := conn.blockWrites()

	fragments := make([][]byte, 32)
	for i := range fragments {
		fragments[i] = []byte(fmt.Sprintf("frag-%02d", i))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, f := range fragments {
			if err := m.SubmitAudio(context.Background(), key, f); err != nil {
				t.Errorf("SubmitAudio: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitAudio blocked behind a recognizer that stopped reading")
	}

	// Once the recognizer reads again, the queue drains FIFO.
	close(release)
	waitFor(t, time.Second, func() bool { return len(conn.binaryWrites()) == len(fragments)+1 })

	got := conn.binaryWrites()[1:]
	for i, want := range fragments {
		if string(got[i]) != string(want) {
			t.Fatalf("fragment %d = %q, want %q", i, got[i], want)
		}
	}
}

func TestOnlyFinalNonEmptyEventsBecomeSegments(t *testing.T) {
	dialer := &fakeDialer{}
	m, store, broadcaster := testManager(testConfig(), dialer)
	key := Key{"u1", "a1"}
	viewer := &fakeViewer{}
	broadcaster.Subscribe(key, viewer)

	conn := startSession(t, m, dialer, key)

	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`)
	conn.emit(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"wor"}]}}`)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"   "}]}}`)
	conn.emit(`{"type":"Metadata","request_id":"abc"}`)
	conn.emit(`not json at all`)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":" world "}]}}`)

	waitFor(t, time.Second, func() bool { return viewer.count() == 2 })

	want := []string{"hello", "world"}
	if got := store.texts(key); !reflect.DeepEqual(got, want) {
		t.Errorf("persisted segments = %v, want %v", got, want)
	}
	if got := viewer.texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("broadcast segments = %v, want %v", got, want)
	}

	// Malformed frames must not close the socket.
	if m.ActiveSessions() != 1 {
		t.Errorf("session must survive unparsable frames, got %d active", m.ActiveSessions())
	}
}

func TestPersistHappensBeforeBroadcast(t *testing.T) {
	dialer := &fakeDialer{}
	m, store, broadcaster := testManager(testConfig(), dialer)
	key := Key{"u1", "a1"}

	persistedAtSend := make(chan int, 1)
	viewer := &fakeViewer{}
	viewer.onSend = func(Event) {
		persistedAtSend <- len(store.texts(key))
	}
	broadcaster.Subscribe(key, viewer)

	conn := startSession(t, m, dialer, key)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`)

	select {
	case n := <-persistedAtSend:
		if n != 1 {
			t.Errorf("expected segment persisted before broadcast, store had %d segments", n)
		}
	case <-time.After(time.Second):
		t.Fatal("viewer never received the segment")
	}
}

func TestPersistenceFailureStillBroadcasts(t *testing.T) {
	dialer := &fakeDialer{}
	m, store, broadcaster := testManager(testConfig(), dialer)
	store.appendErr = errors.New("store unavailable")
	key := Key{"u1", "a1"}
	viewer := &fakeViewer{}
	broadcaster.Subscribe(key, viewer)

	conn := startSession(t, m, dialer, key)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`)

	waitFor(t, time.Second, func() bool { return viewer.count() == 1 })
	if got := viewer.texts()[0]; got != "hello" {
		t.Errorf("broadcast text = %q, want %q", got, "hello")
	}
	if len(store.texts(key)) != 0 {
		t.Errorf("store must hold nothing after append failure")
	}
	// The session stays up; persistence failures degrade replay, not live.
	if m.ActiveSessions() != 1 {
		t.Errorf("session must survive a persistence failure")
	}
}

func TestTransportCloseDropsOnlyPartialData(t *testing.T) {
	dialer := &fakeDialer{}
	m, store, broadcaster := testManager(testConfig(), dialer)
	key := Key{"u1", "a1"}
	viewer := &fakeViewer{}
	broadcaster.Subscribe(key, viewer)

	conn := startSession(t, m, dialer, key)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"committed"}]}}`)
	waitFor(t, time.Second, func() bool { return viewer.count() == 1 })

	conn.emit(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"in flight"}]}}`)
	conn.Close()
	waitFor(t, time.Second, func() bool { return m.ActiveSessions() == 0 })

	// No segments are synthesized for data that was only ever partial.
	if got := store.texts(key); !reflect.DeepEqual(got, []string{"committed"}) {
		t.Errorf("persisted segments = %v, want [committed]", got)
	}
}

// End-to-end: fragments queued before readiness, mixed final/partial events,
// one viewer attached from the start.
func TestRelayEndToEnd(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	m, store, broadcaster := testManager(testConfig(), dialer)
	key := Key{"u1", "a1"}
	viewer := &fakeViewer{}
	broadcaster.Subscribe(key, viewer)

	for _, f := range []string{"A", "B", "C"} {
		if err := m.SubmitAudio(context.Background(), key, []byte(f)); err != nil {
			t.Fatalf("SubmitAudio: %v", err)
		}
	}

	close(dialer.gate)
	waitFor(t, time.Second, func() bool { return dialer.dialCount() == 1 })
	conn := dialer.conn(0)
	waitFor(t, time.Second, func() bool { return len(conn.binaryWrites()) == 3 })

	got := conn.binaryWrites()
	for i, want := range []string{"A", "B", "C"} {
		if string(got[i]) != want {
			t.Errorf("forwarded fragment %d = %q, want %q", i, got[i], want)
		}
	}

	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`)
	conn.emit(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"wor"}]}}`)
	conn.emit(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"world"}]}}`)

	waitFor(t, time.Second, func() bool { return viewer.count() == 2 })

	want := []string{"hello", "world"}
	if gotTexts := store.texts(key); !reflect.DeepEqual(gotTexts, want) {
		t.Errorf("persisted = %v, want %v", gotTexts, want)
	}
	if gotTexts := viewer.texts(); !reflect.DeepEqual(gotTexts, want) {
		t.Errorf("delivered = %v, want %v", gotTexts, want)
	}
	for _, text := range viewer.texts() {
		if text == "wor" {
			t.Error("partial transcript must never be delivered")
		}
	}
}
