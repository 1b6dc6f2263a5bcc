package schedule

import (
	"slices"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func span(startMin, durationMin int) Interval {
	start := base.Add(time.Duration(startMin) * time.Minute)
	return Interval{Start: start, End: start.Add(time.Duration(durationMin) * time.Minute)}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "disjoint", a: span(0, 30), b: span(60, 15), want: false},
		{name: "touching", a: span(0, 30), b: span(30, 15), want: false},
		{name: "partial", a: span(0, 30), b: span(10, 10), want: true},
		{name: "contained", a: span(0, 60), b: span(15, 5), want: true},
		{name: "same start", a: span(0, 10), b: span(0, 20), want: true},
		{name: "zero length inside", a: span(0, 30), b: span(15, 0), want: true},
		{name: "zero length on edge", a: span(0, 30), b: span(30, 0), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrderedByStartThenID(t *testing.T) {
	s := New()
	s.Insert(5, span(60, 10))
	s.Insert(3, span(0, 10))
	s.Insert(4, span(30, 0))
	s.Insert(2, span(30, 10))

	got := s.Ordered()
	if !slices.Equal(got, []int64{3, 2, 4, 5}) {
		t.Fatalf("expected [3 2 4 5], got %v", got)
	}
}

func TestConflictExcludesOwnInterval(t *testing.T) {
	s := New()
	s.Insert(1, span(0, 30))
	s.Insert(2, span(60, 30))

	if !s.WouldConflict(span(20, 20), 0) {
		t.Fatalf("expected conflict with item 1")
	}
	if s.WouldConflict(span(10, 10), 1) {
		t.Fatalf("expected no conflict when excluding item 1")
	}
	id, ok := s.Conflict(span(50, 20), 1)
	if !ok || id != 2 {
		t.Fatalf("expected conflict with item 2, got %d %v", id, ok)
	}
	if s.WouldConflict(span(30, 30), 0) {
		t.Fatalf("touching ranges must not conflict")
	}
}

func TestConflictFindsLongEarlierInterval(t *testing.T) {
	s := New()
	s.Insert(1, span(0, 0))
	s.Insert(2, span(0, 120))
	s.Insert(3, span(200, 10))

	id, ok := s.Conflict(span(90, 10), 0)
	if !ok || id != 2 {
		t.Fatalf("expected conflict with item 2, got %d %v", id, ok)
	}
}

func TestRemoveAndReindex(t *testing.T) {
	s := New()
	s.Insert(1, span(0, 30))
	s.Insert(2, span(60, 30))

	s.Reindex(1, span(120, 10), true)
	if got := s.Ordered(); !slices.Equal(got, []int64{2, 1}) {
		t.Fatalf("expected [2 1] after reindex, got %v", got)
	}

	s.Reindex(2, Interval{}, false)
	if s.Contains(2) {
		t.Fatalf("expected item 2 to be dropped")
	}

	s.Remove(1)
	s.Remove(99)
	if s.Len() != 0 {
		t.Fatalf("expected empty index, got %d", s.Len())
	}
}

func TestInsertReplacesPreviousRange(t *testing.T) {
	s := New()
	s.Insert(1, span(0, 30))
	s.Insert(1, span(90, 30))

	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}
	if s.WouldConflict(span(0, 30), 0) {
		t.Fatalf("old range should be gone")
	}
}
