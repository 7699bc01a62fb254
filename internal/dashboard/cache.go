package dashboard

import (
	"context"
	"sync"
	"time"

	"fastestcars/internal/store"
	"fastestcars/lib/chrono"
)

type cacheEntry struct {
	rows    []store.Row
	fetched time.Time
}

// latestCache memoizes Latest reads per limit for a fixed ttl. Entries are
// only ever invalidated by age, writes to the store are not observed.
type latestCache struct {
	mutex   sync.Mutex
	ttl     time.Duration
	clock   chrono.TimeAPI
	entries map[int]cacheEntry
}

func newLatestCache(ttl time.Duration, clock chrono.TimeAPI) *latestCache {
	return &latestCache{
		ttl:     ttl,
		clock:   clock,
		entries: map[int]cacheEntry{},
	}
}

func (c *latestCache) lookup(n int) ([]store.Row, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[n]
	if !ok || c.clock.Now().Sub(entry.fetched) >= c.ttl {
		return nil, false
	}
	return entry.rows, true
}

func (c *latestCache) put(n int, rows []store.Row) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[n] = cacheEntry{rows: rows, fetched: c.clock.Now()}
}

// Latest returns the cached rows for n or reads them through reader. Failed
// reads are not cached.
func (c *latestCache) Latest(ctx context.Context, reader store.Reader, n int) ([]store.Row, error) {
	if rows, ok := c.lookup(n); ok {
		return rows, nil
	}
	rows, err := reader.Latest(ctx, n)
	if err != nil {
		return nil, err
	}
	c.put(n, rows)
	return rows, nil
}
