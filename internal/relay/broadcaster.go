package relay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/clinicopilot/server/internal/metrics"
)

// Viewer is one live transcript consumer. Send must be a bounded attempt: a
// viewer that cannot accept the event returns an error and is dropped, it is
// never allowed to stall delivery to the other viewers.
type Viewer interface {
	Send(event Event) error
}

// Broadcaster fans transcript segments out to every viewer attached to a
// session. It holds no transcript state; history replay on attach is the
// viewer gate's job.
type Broadcaster struct {
	logger *zap.Logger

	mu      sync.Mutex
	viewers map[Key]map[Viewer]struct{}
}

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger:  logger,
		viewers: make(map[Key]map[Viewer]struct{}),
	}
}

// Subscribe registers a viewer under the session key. Idempotent per viewer.
func (b *Broadcaster) Subscribe(key Key, v Viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.viewers[key]
	if !ok {
		set = make(map[Viewer]struct{})
		b.viewers[key] = set
	}
	if _, ok := set[v]; !ok {
		set[v] = struct{}{}
		metrics.Default.ViewersActive.Inc()
	}
}

// Unsubscribe removes a viewer. Empty sets are removed from the map so the
// registry does not grow with dead session keys.
func (b *Broadcaster) Unsubscribe(key Key, v Viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(key, v)
}

func (b *Broadcaster) removeLocked(key Key, v Viewer) {
	set, ok := b.viewers[key]
	if !ok {
		return
	}
	if _, ok := set[v]; ok {
		delete(set, v)
		metrics.Default.ViewersActive.Dec()
	}
	if len(set) == 0 {
		delete(b.viewers, key)
	}
}

// Publish delivers the segment to every viewer currently attached to the
// session. A failed push removes only that viewer; the rest still receive
// the segment.
func (b *Broadcaster) Publish(key Key, segment Segment) {
	b.mu.Lock()
	set, ok := b.viewers[key]
	if !ok || len(set) == 0 {
		b.mu.Unlock()
		return
	}
	targets := make([]Viewer, 0, len(set))
	for v := range set {
		targets = append(targets, v)
	}
	b.mu.Unlock()

	event := ChunkEvent(segment)

	var failed []Viewer
	for _, v := range targets {
		if err := v.Send(event); err != nil {
			b.logger.Warn("dropping viewer after failed push",
				zap.String("user_id", key.UserID),
				zap.String("appointment_id", key.AppointmentID),
				zap.Error(err))
			failed = append(failed, v)
		}
	}

	metrics.Default.SegmentsBroadcast.Inc()

	if len(failed) > 0 {
		metrics.Default.ViewerFailures.Add(float64(len(failed)))
		b.mu.Lock()
		for _, v := range failed {
			b.removeLocked(key, v)
		}
		b.mu.Unlock()
	}
}

// ViewerCount reports how many viewers are attached to a session.
func (b *Broadcaster) ViewerCount(key Key) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers[key])
}
