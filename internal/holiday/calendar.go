package holiday

import (
	"fmt"

	"github.com/username/workdays-calculator/pkg/dateutil"
)

// Options configures a calendar build
type Options struct {
	MinYear int
	MaxYear int
	Region  RegionFilter
	Merge   MergePolicy
}

// Stats summarises what went into a calendar
type Stats struct {
	External       int // dataset entries parsed
	RegionFiltered int // dataset entries dropped by the region filter
	Extra          int // days expanded from user-defined sources
	Collisions     int // days claimed by more than one entry
}

// Calendar is the merged holiday calendar for a configuration. It is built once
// per configuration change and sliced into snapshots per query.
type Calendar struct {
	all     *Snapshot
	stats   Stats
	skipped []error
}

// NewCalendar merges the raw dataset with the expanded sources
func NewCalendar(raw []byte, sources []Source, opts Options) *Calendar {
	return newCalendar(raw, sources, opts, dateutil.Date{})
}

func newCalendar(raw []byte, sources []Source, opts Options, start dateutil.Date) *Calendar {
	cal := &Calendar{}

	matcher, err := opts.Region.compile()
	if err != nil {
		cal.skipped = append(cal.skipped, err)
		matcher = &regionMatcher{exclude: opts.Region.ExcludeRegional}
	}

	m := newMerger(opts.Merge)

	external, skipped := ParseDataset(raw)
	cal.skipped = append(cal.skipped, skipped...)
	for _, e := range external {
		if e.Date.Before(start) {
			continue
		}
		cal.stats.External++
		if !matcher.allows(e) {
			cal.stats.RegionFiltered++
			continue
		}
		m.add(e)
	}

	for i, src := range sources {
		days, err := src.Expand(opts.MinYear, opts.MaxYear)
		if err != nil {
			cal.skipped = append(cal.skipped, err)
			continue
		}
		for _, day := range days {
			if day.Date.Before(start) {
				continue
			}
			cal.stats.Extra++
			m.add(Entry{
				Date:   day.Date,
				Title:  day.Title,
				Global: true,
				Origin: src.origin(i + 1),
			})
		}
	}

	cal.stats.Collisions = m.collisions
	cal.all = NewSnapshot(m.entries())
	return cal
}

// Build produces the snapshot for one query: dataset entries and expanded
// sources dated on or after start, region-filtered and merged. Records that
// were skipped are returned alongside.
func Build(raw []byte, sources []Source, opts Options, start dateutil.Date) (*Snapshot, []error) {
	cal := newCalendar(raw, sources, opts, start)
	return cal.all, cal.skipped
}

// Snapshot returns the holidays dated on or after start
func (c *Calendar) Snapshot(start dateutil.Date) *Snapshot {
	return c.all.Since(start)
}

// Len returns the number of holiday days in the calendar
func (c *Calendar) Len() int {
	return c.all.Len()
}

// Stats returns build statistics
func (c *Calendar) Stats() Stats {
	return c.stats
}

// Skipped returns the records that could not be used
func (c *Calendar) Skipped() []error {
	out := make([]error, len(c.skipped))
	copy(out, c.skipped)
	return out
}

// merger applies the MergePolicy while preserving insertion order per date
type merger struct {
	policy     MergePolicy
	byDate     map[dateutil.Date]Entry
	order      []dateutil.Date
	collisions int
}

func newMerger(policy MergePolicy) *merger {
	if policy == "" {
		policy = MergeLastWins
	}
	return &merger{
		policy: policy,
		byDate: make(map[dateutil.Date]Entry),
	}
}

func (m *merger) add(e Entry) {
	prev, exists := m.byDate[e.Date]
	if !exists {
		m.order = append(m.order, e.Date)
		m.byDate[e.Date] = e
		return
	}

	m.collisions++
	if m.policy == MergeConcatenate && prev.Title != e.Title {
		e.Title = fmt.Sprintf("%s%s%s", prev.Title, titleSeparator, e.Title)
	}
	m.byDate[e.Date] = e
}

func (m *merger) entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, d := range m.order {
		out = append(out, m.byDate[d])
	}
	return out
}
