// Package dedup suppresses reprocessing of inbound events the platform
// has already delivered once.
package dedup

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCapacity bounds the recency set.
	DefaultCapacity = 100
	// DefaultMaxAge is how old an event's emission timestamp may be
	// before it is treated as a stale redelivery.
	DefaultMaxAge = 60 * time.Second
)

// Deduplicator is a bounded recency set with strict FIFO eviction.
// Message events, edit/delete events and card-action clicks all share
// one set, keyed by whichever identity the event carries. A plain map
// cannot guarantee oldest-first eviction, so insertion order is kept in
// a parallel queue.
type Deduplicator struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	queue    []string
	capacity int
	maxAge   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a deduplicator with the default capacity and staleness
// window.
func New(logger *zap.Logger) *Deduplicator {
	return &Deduplicator{
		seen:     make(map[string]struct{}),
		capacity: DefaultCapacity,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
		logger:   logger,
	}
}

// ShouldSkip reports whether the event identified by id, emitted at ts,
// has already been handled or is too stale to handle. A fresh identity
// is recorded before returning, evicting the oldest recorded identity
// when the set is full. The check-then-insert runs under the mutex:
// duplicate deliveries dispatched concurrently must not both pass.
//
// An empty id means the event carries no identity (synthetic internal
// call) and is never skipped. A zero ts means the event carries no
// emission timestamp and the staleness gate does not apply.
func (d *Deduplicator) ShouldSkip(id string, ts time.Time) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		d.logger.Debug("Skipping duplicate event", zap.String("event_id", id))
		return true
	}

	if !ts.IsZero() && d.now().Sub(ts) > d.maxAge {
		d.logger.Debug("Skipping stale event",
			zap.String("event_id", id),
			zap.Time("emitted_at", ts))
		return true
	}

	d.seen[id] = struct{}{}
	d.queue = append(d.queue, id)
	if len(d.queue) > d.capacity {
		oldest := d.queue[0]
		d.queue = d.queue[1:]
		delete(d.seen, oldest)
	}

	return false
}

// Len returns the number of recorded identities.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
