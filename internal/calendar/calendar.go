package calendar

import (
	"bytes"
	"context"
	"errors"

	"github.com/buger/jsonparser"
)

// ErrNoData is returned when a provider has nothing for any requested year
var ErrNoData = errors.New("no holiday data")

// Provider supplies the raw public-holiday dataset: a JSON array of
// {date, localName, name, countryCode, global, counties} records
type Provider interface {
	// Fetch returns the merged dataset for the country and years
	Fetch(ctx context.Context, country string, years []int) ([]byte, error)
}

// refresher is a Provider that can bypass its own cache
type refresher interface {
	Refresh(ctx context.Context, country string, years []int) ([]byte, error)
}

// Years lists every year in [minYear, maxYear]
func Years(minYear, maxYear int) []int {
	if maxYear < minYear {
		return nil
	}
	years := make([]int, 0, maxYear-minYear+1)
	for y := minYear; y <= maxYear; y++ {
		years = append(years, y)
	}
	return years
}

// mergeArrays concatenates JSON arrays into one. Parts that are not arrays are ignored.
func mergeArrays(parts [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for _, part := range parts {
		part = bytes.TrimSpace(part)
		if len(part) == 0 || part[0] != '[' {
			continue
		}
		_, _ = jsonparser.ArrayEach(part, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if n > 0 {
				buf.WriteByte(',')
			}
			// ArrayEach hands out strings without their quotes
			if dataType == jsonparser.String {
				buf.WriteByte('"')
				buf.Write(value)
				buf.WriteByte('"')
			} else {
				buf.Write(value)
			}
			n++
		})
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// countRecords returns the number of elements in a JSON array
func countRecords(raw []byte) int {
	n := 0
	_, _ = jsonparser.ArrayEach(raw, func([]byte, jsonparser.ValueType, int, error) { n++ })
	return n
}
