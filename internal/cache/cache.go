package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ReportCache holds rendered report payloads. Invalidate drops every entry at
// once; the ledger calls it after each write.
//
// Get returns the generation it read under. A payload loaded after a miss
// must be stored with that generation, so a load that raced an Invalidate
// never becomes visible to later readers.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (generation int64, hit bool, err error)
	Set(ctx context.Context, generation int64, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string, _ any) (int64, bool, error) {
	return 0, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ int64, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryReportCache keeps reports in process when no Redis is configured.
type MemoryReportCache struct {
	mu         sync.Mutex
	generation int64
	entries    map[string]memoryEntry
	now        func() time.Time
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryReportCache) Get(_ context.Context, key string, dest any) (int64, bool, error) {
	c.mu.Lock()
	gen := c.generation
	entry, ok := c.entries[key]
	if ok && !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return gen, false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return gen, false, err
	}
	return gen, true, nil
}

// Set drops the payload when generation is older than the current one.
func (c *MemoryReportCache) Set(_ context.Context, generation int64, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	if generation == c.generation {
		c.entries[key] = entry
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryReportCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
