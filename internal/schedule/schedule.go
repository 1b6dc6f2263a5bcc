// Package schedule indexes time-bearing items by start time and answers
// interval conflict queries.
package schedule

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b intersect. Ranges that only touch do not.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

type entry struct {
	id   int64
	span Interval
}

func (e entry) before(other entry) bool {
	if e.span.Start.Equal(other.span.Start) {
		return e.id < other.id
	}
	return e.span.Start.Before(other.span.Start)
}

// Scheduler keeps entries sorted by start, id breaking ties. Ids must be
// positive; zero is reserved for "exclude nothing".
type Scheduler struct {
	entries []entry
	byID    map[int64]Interval
}

func New() *Scheduler {
	return &Scheduler{byID: make(map[int64]Interval)}
}

// Conflict returns the first indexed id, other than excludeID, whose range
// overlaps span.
func (s *Scheduler) Conflict(span Interval, excludeID int64) (int64, bool) {
	// Only entries starting before span.End can overlap it.
	limit := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].span.Start.Before(span.End)
	})
	for _, e := range s.entries[:limit] {
		if e.id == excludeID {
			continue
		}
		if Overlaps(e.span, span) {
			return e.id, true
		}
	}
	return 0, false
}

func (s *Scheduler) WouldConflict(span Interval, excludeID int64) bool {
	_, ok := s.Conflict(span, excludeID)
	return ok
}

// Insert indexes id, replacing any previous range it had.
func (s *Scheduler) Insert(id int64, span Interval) {
	if _, ok := s.byID[id]; ok {
		s.Remove(id)
	}
	e := entry{id: id, span: span}
	pos := sort.Search(len(s.entries), func(i int) bool {
		return e.before(s.entries[i])
	})
	s.entries = append(s.entries, entry{})
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = e
	s.byID[id] = span
}

func (s *Scheduler) Remove(id int64) {
	span, ok := s.byID[id]
	if !ok {
		return
	}
	target := entry{id: id, span: span}
	pos := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].before(target)
	})
	if pos < len(s.entries) && s.entries[pos].id == id {
		s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	}
	delete(s.byID, id)
}

// Reindex moves id to its new range, or drops it when ok is false.
func (s *Scheduler) Reindex(id int64, span Interval, ok bool) {
	if !ok {
		s.Remove(id)
		return
	}
	s.Insert(id, span)
}

// Ordered returns the indexed ids ascending by start time.
func (s *Scheduler) Ordered() []int64 {
	ids := make([]int64, 0, len(s.entries))
	for _, e := range s.entries {
		ids = append(ids, e.id)
	}
	return ids
}

func (s *Scheduler) Contains(id int64) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Scheduler) Len() int {
	return len(s.entries)
}

func (s *Scheduler) Reset() {
	s.entries = nil
	s.byID = make(map[int64]Interval)
}
