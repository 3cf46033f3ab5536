// Package resolver turns a start date and a working-day offset into a concrete
// due date, stepping over weekends and the holidays of a snapshot.
package resolver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/pkg/dateutil"
)

// Unit is what an interval offset counts
type Unit string

const (
	// UnitWeekdays counts Monday to Friday only
	UnitWeekdays Unit = "weekdays"
	// UnitDays counts every calendar day
	UnitDays Unit = "days"
)

// ParseUnit parses a configured unit. Empty means weekdays.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitWeekdays:
		return UnitWeekdays, nil
	case UnitDays:
		return UnitDays, nil
	default:
		return "", fmt.Errorf("%w: unknown unit %q", holiday.ErrInvalidConfiguration, s)
	}
}

// Interval is one configured offset
type Interval struct {
	ID     int  `mapstructure:"id"`
	Offset int  `mapstructure:"days"`
	Sort   int  `mapstructure:"sort"`
	Unit   Unit `mapstructure:"unit"`
}

// Validate rejects negative offsets and unknown units
func (i Interval) Validate() error {
	if i.Offset < 0 {
		return fmt.Errorf("%w: interval %d: negative offset %d", holiday.ErrInvalidConfiguration, i.ID, i.Offset)
	}
	if _, err := ParseUnit(string(i.Unit)); err != nil {
		return fmt.Errorf("interval %d: %w", i.ID, err)
	}
	return nil
}

// Label renders the interval for display, e.g. "+5 working days"
func (i Interval) Label() string {
	noun := "day"
	if i.unit() == UnitWeekdays {
		noun = "working day"
	}
	if i.Offset != 1 {
		noun += "s"
	}
	return fmt.Sprintf("+%d %s", i.Offset, noun)
}

func (i Interval) unit() Unit {
	if i.Unit == UnitDays {
		return UnitDays
	}
	return UnitWeekdays
}

// Resolved is the outcome of resolving one interval
type Resolved struct {
	Interval Interval
	Start    dateutil.Date
	Date     dateutil.Date
	Absorbed []holiday.Entry // date ascending, unique
}

// Advance moves d forward n units, ignoring holidays
func Advance(d dateutil.Date, n int, unit Unit) dateutil.Date {
	if unit == UnitDays {
		return d.AddDays(n)
	}
	return d.AddWeekdays(n)
}

// Resolve computes the due date offset units after start.
//
// The naive end date is extended by one unit per non-weekend holiday inside
// the period until the holiday count stops changing, then snapped forward to
// the next working day.
func Resolve(start dateutil.Date, offset int, unit Unit, snap *holiday.Snapshot) Resolved {
	if unit != UnitDays {
		unit = UnitWeekdays
	}
	if offset < 0 {
		offset = 0
	}

	initial := Advance(start, offset, unit)
	candidate := initial
	period := workdayHolidays(snap.Between(start, candidate))

	// Each round only grows the period, so the count can rise at most Len times
	for round := 0; round <= snap.Len(); round++ {
		next := Advance(initial, len(period), unit)
		if next.Equal(candidate) {
			break
		}
		candidate = next
		found := workdayHolidays(snap.Between(start, candidate))
		if len(found) == len(period) {
			period = found
			break
		}
		period = found
	}

	date, snapped := NextWorkingDay(candidate, snap)

	return Resolved{
		Interval: Interval{Offset: offset, Unit: unit},
		Start:    start,
		Date:     date,
		Absorbed: union(period, snapped),
	}
}

// NextWorkingDay returns the first day on or after d that is neither a weekend
// nor a holiday, together with the holidays stepped over. Applying it to its
// own result is a no-op.
func NextWorkingDay(d dateutil.Date, snap *holiday.Snapshot) (dateutil.Date, []holiday.Entry) {
	var absorbed []holiday.Entry

	// One holiday per pass at most, plus the leading weekend and the final check
	limit := snap.Len() + 3
	for pass := 0; pass < limit; pass++ {
		changed := false

		if e, ok := snap.Lookup(d); ok {
			absorbed = append(absorbed, e)
			d = d.AddDays(1)
			changed = true
		}

		switch d.Weekday() {
		case time.Saturday:
			d = d.AddDays(2)
			changed = true
		case time.Sunday:
			d = d.AddDays(1)
			changed = true
		}

		if !changed {
			break
		}
	}

	return d, absorbed
}

// ResolveAll resolves every valid interval from start. Intervals that fail
// validation are skipped and reported; the rest are resolved in parallel and
// returned ordered by Sort, then ID.
func ResolveAll(start dateutil.Date, intervals []Interval, snap *holiday.Snapshot) ([]Resolved, []error) {
	var (
		valid   []Interval
		skipped []error
	)
	for _, in := range intervals {
		if err := in.Validate(); err != nil {
			skipped = append(skipped, err)
			continue
		}
		valid = append(valid, in)
	}

	results := iter.Map(valid, func(in *Interval) Resolved {
		r := Resolve(start, in.Offset, in.unit(), snap)
		r.Interval = *in
		return r
	})

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Interval, results[j].Interval
		if a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		return a.ID < b.ID
	})

	return results, skipped
}

// workdayHolidays drops holidays falling on a weekend; the weekend already
// consumes that day
func workdayHolidays(entries []holiday.Entry) []holiday.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if !e.Date.IsWeekend() {
			out = append(out, e)
		}
	}
	return out
}

func union(a, b []holiday.Entry) []holiday.Entry {
	seen := make(map[dateutil.Date]bool, len(a)+len(b))
	out := make([]holiday.Entry, 0, len(a)+len(b))
	for _, list := range [][]holiday.Entry{a, b} {
		for _, e := range list {
			if seen[e.Date] {
				continue
			}
			seen[e.Date] = true
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
