package risk

import (
	"strconv"
	"sync"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// CachedAssessor wraps an Engine with an in-memory LRU cache of assessments.
// Keys include the snapshot id, so publishing a new snapshot invalidates
// every earlier entry without an explicit flush.
type CachedAssessor struct {
	engine   *Engine
	cache    *lruCache[string, Assessment]
	onLookup func(hit bool)
}

// NewCachedAssessor creates a cache decorator around an engine. onLookup, if
// non-nil, is called once per query with the cache outcome.
func NewCachedAssessor(engine *Engine, maxEntries int, onLookup func(hit bool)) *CachedAssessor {
	return &CachedAssessor{
		engine:   engine,
		cache:    newLRUCache[string, Assessment](maxEntries),
		onLookup: onLookup,
	}
}

func (c *CachedAssessor) Assess(location domain.Geo, thresholdKM float64) (Assessment, error) {
	idx, err := c.engine.Current()
	if err != nil {
		// Let Query produce the validation error if there is one.
		return Query(location, thresholdKM, nil)
	}

	key := cacheKey(idx.ID(), location, thresholdKM)
	if a, ok := c.cache.get(key); ok {
		c.observe(true)
		return a, nil
	}
	c.observe(false)

	a, err := Query(location, thresholdKM, idx)
	if err != nil {
		return a, err
	}
	c.cache.put(key, a)
	return a, nil
}

func (c *CachedAssessor) observe(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func cacheKey(snapshot string, loc domain.Geo, thresholdKM float64) string {
	// Exact float formatting: rounding the key would change results.
	return snapshot + "|" +
		strconv.FormatFloat(loc.Lat, 'g', -1, 64) + "," +
		strconv.FormatFloat(loc.Lon, 'g', -1, 64) + "|" +
		strconv.FormatFloat(thresholdKM, 'g', -1, 64)
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
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

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
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

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
