// Package holiday builds the holiday calendar used by the resolver: it expands
// user-defined holiday sources, parses the public-holiday dataset, applies
// regional filtering and merges everything into a date-ordered snapshot.
//
// The package is pure: it performs no I/O and no logging. Records that cannot
// be used are skipped and reported back to the caller as errors wrapping one of
// the sentinel errors below.
package holiday

import (
	"errors"

	"github.com/username/workdays-calculator/pkg/dateutil"
)

var (
	// ErrInvalidConfiguration marks a holiday source or interval record that cannot be used
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnparseableDate marks a dataset record whose date cannot be parsed
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrMalformedDataset marks a dataset record (or the dataset itself) with a broken shape
	ErrMalformedDataset = errors.New("malformed dataset")
)

// OriginKind tells where an Entry came from
type OriginKind int

const (
	OriginExternal OriginKind = iota
	OriginDate
	OriginRange
)

func (k OriginKind) String() string {
	switch k {
	case OriginDate:
		return "date"
	case OriginRange:
		return "range"
	default:
		return "external"
	}
}

// Origin identifies the record an Entry was produced from
type Origin struct {
	Kind     OriginKind
	SourceID int // zero for external entries
	Index    int // 1-based position of the source in the build, unique even when IDs repeat
}

// Entry represents one holiday on one calendar day
type Entry struct {
	Date    dateutil.Date
	Title   string
	Global  bool
	Regions []string
	Origin  Origin
}

// IsRange reports whether the entry was expanded from a Range source
func (e Entry) IsRange() bool {
	return e.Origin.Kind == OriginRange
}

// MergePolicy decides what happens when two entries fall on the same date
type MergePolicy string

const (
	// MergeLastWins keeps the entry merged last (extra holidays override the dataset)
	MergeLastWins MergePolicy = "last_wins"

	// MergeConcatenate keeps the last entry but joins all titles with " / "
	MergeConcatenate MergePolicy = "concatenate"
)

// titleSeparator joins titles under MergeConcatenate
const titleSeparator = " / "
