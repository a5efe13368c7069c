// Package peakcache holds a fixed number of extracted peak arrays,
// keyed by scan number, with least-recently-used eviction. It exists so
// that precursor scans revisited by several dependent scans are not
// centroided again; regular scans are visited once and must not be
// cached.
package peakcache

import "container/list"

// Entry is one cached pair of peak arrays, sorted ascending by m/z.
type Entry struct {
	Masses      []float64
	Intensities []float64
}

// Cache is a fixed-capacity LRU map from scan number to peak arrays.
// Not safe for concurrent use; the conversion pipeline is sequential.
type Cache struct {
	capacity int
	order    *list.List // front = most recently used
	items    map[int]*list.Element
}

type node struct {
	scan  int
	entry Entry
}

// New creates a cache that never holds more than capacity entries.
// A capacity below 1 is treated as 1.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element, capacity),
	}
}

// Get returns the cached arrays for a scan and refreshes its recency.
func (c *Cache) Get(scan int) (Entry, bool) {
	el, ok := c.items[scan]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*node).entry, true
}

// Put inserts or replaces the arrays for a scan. When the cache is at
// capacity the least-recently-touched entry is evicted first.
func (c *Cache) Put(scan int, masses, intensities []float64) {
	if el, ok := c.items[scan]; ok {
		el.Value.(*node).entry = Entry{Masses: masses, Intensities: intensities}
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*node).scan)
		}
	}
	el := c.order.PushFront(&node{scan: scan, entry: Entry{Masses: masses, Intensities: intensities}})
	c.items[scan] = el
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.order.Len() }
