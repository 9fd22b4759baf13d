package csvfile

import (
	"sync"

	"github.com/qldwater/leaklocker/internal/domain"
)

// resultCache is a thread-safe LRU of parsed readings keyed by source
// fingerprint. Because keys are content hashes, a changed source can never
// serve a stale entry; invalidation falls out of the keying.
type resultCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cachedResult
	prev  *entry
	next  *entry
}

// cachedResult is stored by value; get returns a defensive copy of the
// slice header's backing array so one run cannot mutate another's view.
type cachedResult = []domain.Reading

func newResultCache(maxEntries int) *resultCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &resultCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *resultCache) get(key string) (cachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)

	out := make(cachedResult, len(e.value))
	copy(out, e.value)
	return out, true
}

func (c *resultCache) put(key string, value cachedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make(cachedResult, len(value))
	copy(stored, value)

	if e, ok := c.entries[key]; ok {
		e.value = stored
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: stored}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *resultCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *resultCache) addToFront(e *entry) {
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

func (c *resultCache) remove(e *entry) {
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

func (c *resultCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
