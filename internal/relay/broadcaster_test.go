package relay

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBroadcasterDeliversToAllViewers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	key := Key{"u1", "a1"}
	v1 := &fakeViewer{}
	v2 := &fakeViewer{}
	b.Subscribe(key, v1)
	b.Subscribe(key, v2)

	b.Publish(key, Segment{Text: "hello", Timestamp: time.Now()})

	if v1.count() != 1 || v2.count() != 1 {
		t.Errorf("expected both viewers to receive the segment, got %d and %d", v1.count(), v2.count())
	}
}

func TestBroadcasterSubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	key := Key{"u1", "a1"}
	v := &fakeViewer{}
	b.Subscribe(key, v)
	b.Subscribe(key, v)

	b.Publish(key, Segment{Text: "once"})

	if v.count() != 1 {
		t.Errorf("duplicate subscribe must not duplicate delivery, got %d events", v.count())
	}
	if b.ViewerCount(key) != 1 {
		t.Errorf("expected one registered viewer, got %d", b.ViewerCount(key))
	}
}

func TestBroadcasterFailedViewerIsIsolated(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	key := Key{"u1", "a1"}
	healthy1 := &fakeViewer{}
	broken := &fakeViewer{sendErr: errors.New("write: broken pipe")}
	healthy2 := &fakeViewer{}
	b.Subscribe(key, healthy1)
	b.Subscribe(key, broken)
	b.Subscribe(key, healthy2)

	b.Publish(key, Segment{Text: "first"})
	b.Publish(key, Segment{Text: "second"})

	want := []string{"first", "second"}
	if got := healthy1.texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("healthy viewer 1 got %v, want %v", got, want)
	}
	if got := healthy2.texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("healthy viewer 2 got %v, want %v", got, want)
	}
	if b.ViewerCount(key) != 2 {
		t.Errorf("broken viewer must be removed, count = %d", b.ViewerCount(key))
	}
}

func TestBroadcasterRemovesEmptySets(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	key := Key{"u1", "a1"}
	v := &fakeViewer{}
	b.Subscribe(key, v)
	b.Unsubscribe(key, v)

	if _, ok := b.viewers[key]; ok {
		t.Error("empty viewer set must be removed from the registry")
	}

	// Unsubscribing an unknown viewer is a no-op.
	b.Unsubscribe(key, &fakeViewer{})
	b.Unsubscribe(Key{"other", "session"}, v)
}

func TestBroadcasterPublishWithoutViewers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	b.Publish(Key{"u1", "a1"}, Segment{Text: "into the void"})
}
