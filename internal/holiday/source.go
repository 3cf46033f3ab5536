package holiday

import (
	"fmt"
	"sort"
	"strings"

	"github.com/username/workdays-calculator/pkg/dateutil"
)

// Kind is the shape of a user-defined holiday
type Kind string

const (
	KindDate  Kind = "date"
	KindRange Kind = "range"
)

// SourceRecord is a holiday rule as it appears in configuration
type SourceRecord struct {
	ID        int    `mapstructure:"id"`
	Title     string `mapstructure:"title"`
	Type      string `mapstructure:"type"` // "date" or "range"
	From      string `mapstructure:"from"`
	To        string `mapstructure:"to"`
	Recurring bool   `mapstructure:"recurring"`
}

// Source is a validated user-defined holiday: a single date or a date range,
// optionally repeated every year
type Source struct {
	ID        int
	Title     string
	Kind      Kind
	From      dateutil.Date
	To        dateutil.Date
	Recurring bool
}

// Dated is one expanded holiday day
type Dated struct {
	Date  dateutil.Date
	Title string
}

// Expansion is the date-ascending result of Source.Expand
type Expansion []Dated

// ParseSource converts a configuration record into a Source
func ParseSource(rec SourceRecord) (Source, error) {
	src := Source{
		ID:        rec.ID,
		Title:     rec.Title,
		Recurring: rec.Recurring,
	}

	switch strings.ToLower(strings.TrimSpace(rec.Type)) {
	case "", string(KindDate):
		src.Kind = KindDate
	case string(KindRange):
		src.Kind = KindRange
	default:
		return Source{}, fmt.Errorf("%w: holiday %d (%q): unknown type %q",
			ErrInvalidConfiguration, rec.ID, rec.Title, rec.Type)
	}

	if strings.TrimSpace(rec.From) != "" {
		from, err := dateutil.ParseDate(rec.From)
		if err != nil {
			return Source{}, fmt.Errorf("%w: holiday %d (%q): from: %v",
				ErrInvalidConfiguration, rec.ID, rec.Title, err)
		}
		src.From = from
	}

	if strings.TrimSpace(rec.To) != "" {
		to, err := dateutil.ParseDate(rec.To)
		if err != nil {
			return Source{}, fmt.Errorf("%w: holiday %d (%q): to: %v",
				ErrInvalidConfiguration, rec.ID, rec.Title, err)
		}
		src.To = to
	}

	if err := src.Validate(); err != nil {
		return Source{}, err
	}
	return src, nil
}

// Validate checks the range invariants. An unset From is valid and expands to nothing.
func (s Source) Validate() error {
	if s.Kind != KindRange || s.From.IsZero() {
		return nil
	}
	if s.To.IsZero() {
		return fmt.Errorf("%w: holiday %d (%q): range without end date",
			ErrInvalidConfiguration, s.ID, s.Title)
	}
	if !s.Recurring && s.To.Before(s.From) {
		return fmt.Errorf("%w: holiday %d (%q): range ends %s before it starts %s",
			ErrInvalidConfiguration, s.ID, s.Title, s.To, s.From)
	}
	return nil
}

// wrapsYearEnd reports whether a recurring range crosses New Year (Dec 31 -> Jan 2)
func (s Source) wrapsYearEnd() bool {
	return s.From.Year == s.To.Year-1
}

// Expand lists every concrete day of the source for the years [startYear, endYear]
func (s Source) Expand(startYear, endYear int) (Expansion, error) {
	if s.From.IsZero() {
		return Expansion{}, nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	dates := make(map[dateutil.Date]string)

	switch {
	case s.Kind == KindDate && !s.Recurring:
		dates[s.From] = s.Title

	case s.Kind == KindDate:
		for year := startYear; year <= endYear; year++ {
			if d, ok := anniversary(s.From, year); ok {
				dates[d] = s.Title
			}
		}

	case !s.Recurring:
		addRange(dates, s.From, s.To, s.Title)

	default:
		wraps := s.wrapsYearEnd()
		for year := startYear; year <= endYear; year++ {
			toYear := year
			if wraps {
				toYear = year + 1
			}
			// A range bounded by Feb 29 keeps only the days that exist:
			// it starts on Mar 1 or ends on Feb 28 in common years
			from, _ := anniversary(s.From, year)
			to, ok := anniversary(s.To, toYear)
			if !ok {
				to = to.AddDays(-1)
			}
			addRange(dates, from, to, s.Title)
		}
	}

	out := make(Expansion, 0, len(dates))
	for d, title := range dates {
		out = append(out, Dated{Date: d, Title: title})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out, nil
}

// origin returns the Origin stamped on entries expanded from this source
func (s Source) origin(index int) Origin {
	kind := OriginDate
	if s.Kind == KindRange {
		kind = OriginRange
	}
	return Origin{Kind: kind, SourceID: s.ID, Index: index}
}

// anniversary moves d into year. Feb 29 has no anniversary in common years.
func anniversary(d dateutil.Date, year int) (dateutil.Date, bool) {
	a := dateutil.NewDate(year, d.Month, d.Day)
	return a, a.Day == d.Day
}

// addRange writes every day in [from, to] inclusive; an inverted range adds nothing
func addRange(dates map[dateutil.Date]string, from, to dateutil.Date, title string) {
	for d := from; !d.After(to); d = d.AddDays(1) {
		dates[d] = title
	}
}
