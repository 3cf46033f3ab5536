// Package display renders resolved intervals for people
package display

import (
	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/internal/resolver"
	"github.com/username/workdays-calculator/pkg/dateutil"
)

// DefaultLayout is used when no date format is configured
const DefaultLayout = "02/01/2006"

// Holiday is one absorbed holiday, or a collapsed run of them, ready to print
type Holiday struct {
	Title string `json:"title" csv:"title"`
	Date  string `json:"displayDate" csv:"display_date"`
}

// Format renders the absorbed holidays of r. Neighbouring days expanded from
// the same range source within one calendar year collapse into a single
// "<first> - <last>" entry.
func Format(r resolver.Resolved, layout string) []Holiday {
	if layout == "" {
		layout = DefaultLayout
	}

	out := make([]Holiday, 0, len(r.Absorbed))
	for i := 0; i < len(r.Absorbed); {
		first := r.Absorbed[i]
		j := i + 1
		for j < len(r.Absorbed) && sameRun(first, r.Absorbed[j]) {
			j++
		}
		last := r.Absorbed[j-1]

		h := Holiday{Title: first.Title, Date: first.Date.Format(layout)}
		if j-i > 1 {
			h.Date = span(first.Date, last.Date, layout)
		}
		out = append(out, h)
		i = j
	}
	return out
}

func sameRun(first, next holiday.Entry) bool {
	return first.IsRange() && next.IsRange() &&
		first.Origin == next.Origin &&
		first.Date.Year == next.Date.Year
}

func span(from, to dateutil.Date, layout string) string {
	return from.Format(layout) + " - " + to.Format(layout)
}
