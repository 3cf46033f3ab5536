package holiday

import (
	"sort"

	"github.com/username/workdays-calculator/pkg/dateutil"
)

// Snapshot is an immutable, date-ordered view of the holidays relevant to one
// calculation. Keys are unique. It is safe for concurrent readers.
type Snapshot struct {
	entries []Entry
	index   map[dateutil.Date]int
}

// NewSnapshot builds a snapshot from entries with unique dates
func NewSnapshot(entries []Entry) *Snapshot {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s := &Snapshot{
		entries: sorted[:0],
		index:   make(map[dateutil.Date]int, len(sorted)),
	}
	for _, e := range sorted {
		// Later entries for the same date replace earlier ones
		if i, ok := s.index[e.Date]; ok {
			s.entries[i] = e
			continue
		}
		s.index[e.Date] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// Len returns the number of holiday days
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Lookup returns the holiday on d
func (s *Snapshot) Lookup(d dateutil.Date) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	i, ok := s.index[d]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Contains reports whether d is a holiday
func (s *Snapshot) Contains(d dateutil.Date) bool {
	_, ok := s.Lookup(d)
	return ok
}

// Entries returns a copy of all entries in date order
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Between returns the entries dated in [from, to] inclusive
func (s *Snapshot) Between(from, to dateutil.Date) []Entry {
	if s == nil || to.Before(from) {
		return nil
	}
	lo := s.search(from)
	hi := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Date.After(to)
	})
	if lo >= hi {
		return nil
	}
	out := make([]Entry, hi-lo)
	copy(out, s.entries[lo:hi])
	return out
}

// Since returns a snapshot restricted to dates on or after from
func (s *Snapshot) Since(from dateutil.Date) *Snapshot {
	if s == nil {
		return NewSnapshot(nil)
	}
	return NewSnapshot(s.entries[s.search(from):])
}

// search returns the index of the first entry on or after d
func (s *Snapshot) search(d dateutil.Date) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Date.Before(d)
	})
}
