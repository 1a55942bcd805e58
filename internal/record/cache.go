package record

import (
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/worktracker-go/internal/intervention"
)

// Cache keeps one snapshot per record id for the lifetime of the session.
// Entries never expire and are never evicted.
type Cache struct {
	store *cache.Cache
	// mu makes read-merge-write atomic; go-cache only guards single calls
	mu sync.Mutex
}

// NewCache returns an empty cache. No janitor goroutine is started.
func NewCache() *Cache {
	return &Cache{store: cache.New(cache.NoExpiration, 0)}
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Get returns a copy of the snapshot for id.
func (c *Cache) Get(id int64) (Record, bool) {
	v, ok := c.store.Get(key(id))
	if !ok {
		return Record{}, false
	}
	return v.(Record).clone(), true
}

// Merge applies p to the entry for p.ID, creating it when absent, and
// returns the merged snapshot.
func (c *Cache) Merge(p Patch) Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := Record{ID: p.ID}
	if v, ok := c.store.Get(key(p.ID)); ok {
		current = v.(Record)
	}
	merged := p.Apply(current)
	merged.ID = p.ID
	c.store.Set(key(p.ID), merged, cache.NoExpiration)
	return merged.clone()
}

// Interventions returns the cached intervention list for id.
func (c *Cache) Interventions(id int64) []intervention.Item {
	rec, ok := c.Get(id)
	if !ok {
		return nil
	}
	return rec.Interventions
}

// SetInterventions replaces the intervention list for id.
func (c *Cache) SetInterventions(id int64, items []intervention.Item) {
	if items == nil {
		items = []intervention.Item{}
	}
	c.Merge(Patch{ID: id, Interventions: items})
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
