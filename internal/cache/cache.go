package cache

import (
	"sync"
	"time"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
)

// DefaultTTL is how long a successful lookup stays fresh.
const DefaultTTL = 60 * time.Minute

type entry struct {
	record     *models.ProductRecord
	insertedAt time.Time
}

// Cache memoizes successful product lookups keyed by URL. Entries expire on
// a fixed TTL from insertion (no sliding expiration); expired entries are
// evicted lazily on read. State is in-memory and process-scoped.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Lookup returns the cached record for key, or miss. A read past TTL is a
// miss and discards the stale entry.
func (c *Cache) Lookup(key string) (*models.ProductRecord, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have refreshed it.
		if cur, ok := c.entries[key]; ok && time.Since(cur.insertedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.record, true
}

// Store caches a record under key with the configured TTL.
func (c *Cache) Store(key string, record *models.ProductRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{record: record, insertedAt: time.Now()}
}

// Len reports the number of entries currently held, including any not yet
// lazily evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
