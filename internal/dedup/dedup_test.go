package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDeduplicator_FirstSeenThenDuplicate(t *testing.T) {
	d := New(zap.NewNop())

	assert.False(t, d.ShouldSkip("evt-1", time.Now()))
	assert.True(t, d.ShouldSkip("evt-1", time.Now()))
}

func TestDeduplicator_IdentitylessEventsAlwaysPass(t *testing.T) {
	d := New(zap.NewNop())

	assert.False(t, d.ShouldSkip("", time.Now()))
	assert.False(t, d.ShouldSkip("", time.Now()))
	assert.Zero(t, d.Len(), "identity-less events must not be recorded")
}

func TestDeduplicator_StaleEventSkippedEvenIfUnseen(t *testing.T) {
	d := New(zap.NewNop())

	assert.True(t, d.ShouldSkip("evt-old", time.Now().Add(-61*time.Second)))
	// Staleness did not record the identity either.
	assert.Zero(t, d.Len())
}

func TestDeduplicator_ZeroTimestampBypassesStalenessGate(t *testing.T) {
	d := New(zap.NewNop())

	assert.False(t, d.ShouldSkip("evt-1", time.Time{}))
	assert.True(t, d.ShouldSkip("evt-1", time.Time{}))
}

func TestDeduplicator_EvictsOldestInsertionFirst(t *testing.T) {
	d := New(zap.NewNop())
	now := time.Now()

	for i := 0; i < DefaultCapacity; i++ {
		assert.False(t, d.ShouldSkip(fmt.Sprintf("evt-%d", i), now))
	}

	// Re-checking evt-0 must not refresh its position: eviction is by
	// insertion order, not recency of access.
	assert.True(t, d.ShouldSkip("evt-0", now))

	// The 101st identity evicts evt-0.
	assert.False(t, d.ShouldSkip("evt-100", now))
	assert.Equal(t, DefaultCapacity, d.Len())

	// evt-1 survived the eviction.
	assert.True(t, d.ShouldSkip("evt-1", now))
	assert.False(t, d.ShouldSkip("evt-0", now), "oldest identity should have been evicted")
}

func TestDeduplicator_ConcurrentDuplicateDelivery(t *testing.T) {
	d := New(zap.NewNop())

	const workers = 16
	var wg sync.WaitGroup
	passed := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.ShouldSkip("evt-race", time.Now()) {
				passed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(passed)

	assert.Len(t, passed, 1, "exactly one copy of a concurrently delivered event may pass")
}
