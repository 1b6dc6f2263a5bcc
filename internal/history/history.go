// Package history keeps the recency-ordered, de-duplicated log of item reads.
package history

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Unbounded disables the capacity limit.
const Unbounded = 0

// Tracker records item ids in access order. Every operation is O(1): the LRU
// keeps a hash index over a doubly linked list.
type Tracker struct {
	capacity int
	entries  *simplelru.LRU[int64, struct{}]
}

// New builds a tracker. A capacity of zero or less means no limit; with a
// limit the least recently read id is dropped once it is exceeded.
func New(capacity int) *Tracker {
	if capacity < 0 {
		capacity = Unbounded
	}
	return &Tracker{capacity: capacity, entries: newLRU(capacity)}
}

func newLRU(capacity int) *simplelru.LRU[int64, struct{}] {
	size := capacity
	if size == Unbounded {
		size = math.MaxInt
	}
	// size is always positive here, which is the only failure NewLRU reports.
	lru, _ := simplelru.NewLRU[int64, struct{}](size, nil)
	return lru
}

// Record moves id to the most recent end, inserting it if absent.
func (t *Tracker) Record(id int64) {
	t.entries.Add(id, struct{}{})
}

func (t *Tracker) Evict(id int64) {
	t.entries.Remove(id)
}

func (t *Tracker) Contains(id int64) bool {
	return t.entries.Contains(id)
}

// Snapshot returns the ids from least to most recently read. The slice is a
// fresh copy.
func (t *Tracker) Snapshot() []int64 {
	return t.entries.Keys()
}

func (t *Tracker) Len() int {
	return t.entries.Len()
}

func (t *Tracker) Capacity() int {
	return t.capacity
}

func (t *Tracker) Reset() {
	t.entries.Purge()
}
