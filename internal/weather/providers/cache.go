package providers

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bermudabuddy/lawn-api/internal/weather"
)

// rowCache is a thread-safe LRU cache with per-entry TTL for normalized
// hourly rows. It bounds upstream call volume for repeated lookups of the
// same coordinates and window. The clock is injectable so tests can control
// expiry.
type rowCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used
}

type cacheEntry struct {
	key     string
	rows    []weather.HourlyRow
	expires time.Time
	prev    *cacheEntry
	next    *cacheEntry
}

func newRowCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *rowCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &rowCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *rowCache) get(key string) ([]weather.HourlyRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expires) {
		c.remove(e)
		delete(c.entries, e.key)
		return nil, false
	}
	c.moveToFront(e)
	return e.rows, true
}

func (c *rowCache) put(key string, rows []weather.HourlyRow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.rows = rows
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, rows: rows, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *rowCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *rowCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *rowCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *rowCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
