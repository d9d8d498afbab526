package reconcile

import (
	"context"
	"sync"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/record"

	"golang.org/x/sync/singleflight"
)

const snapshotKey = "remote"

// SnapshotCache serves the remote snapshot from memory for a TTL.
// Concurrent misses share a single load.
type SnapshotCache struct {
	source RemoteSource
	ttl    time.Duration
	clock  clock.Clock

	mu      sync.RWMutex
	records []record.RemoteRecord
	built   time.Time
	valid   bool

	sf singleflight.Group
}

// NewSnapshotCache wraps source. A zero TTL disables caching.
func NewSnapshotCache(source RemoteSource, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{source: source, ttl: ttl, clock: clock.Real()}
}

// WithClock replaces the clock used for expiry.
func (c *SnapshotCache) WithClock(clk clock.Clock) *SnapshotCache {
	c.clock = clk
	return c
}

func (c *SnapshotCache) fresh() ([]record.RemoteRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.ttl <= 0 || c.clock.Now().Sub(c.built) > c.ttl {
		return nil, false
	}
	return c.records, true
}

// ListAll returns the cached snapshot or loads a new one.
func (c *SnapshotCache) ListAll(ctx context.Context) ([]record.RemoteRecord, error) {
	if records, ok := c.fresh(); ok {
		return copyRecords(records), nil
	}

	result, err, _ := c.sf.Do(snapshotKey, func() (any, error) {
		// Double-check after acquiring singleflight lock
		if records, ok := c.fresh(); ok {
			return records, nil
		}

		records, err := c.source.ListAll(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.records = records
		c.built = c.clock.Now()
		c.valid = true
		c.mu.Unlock()

		return records, nil
	})
	if err != nil {
		return nil, err
	}

	return copyRecords(result.([]record.RemoteRecord)), nil
}

// Invalidate drops the snapshot. Called after a push that wrote to the remote side.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.valid = false
	c.mu.Unlock()
}

// copyRecords deep-copies a snapshot so callers cannot mutate the cached one.
func copyRecords(in []record.RemoteRecord) []record.RemoteRecord {
	out := make([]record.RemoteRecord, len(in))
	for i, r := range in {
		out[i] = r
		if r.Fields != nil {
			out[i].Fields = r.Fields.Clone()
		}
		if r.Tags != nil {
			out[i].Tags = append([]record.Tag(nil), r.Tags...)
		}
	}
	return out
}
