package holiday

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/username/workdays-calculator/pkg/dateutil"
)

// ParseDataset decodes a public-holiday dataset: a JSON array of
// {date, name, localName, global, counties} records.
// Records that cannot be used are skipped one by one and reported in the
// returned error slice; a partially broken dataset still yields its good entries.
func ParseDataset(raw []byte) ([]Entry, []error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, []error{fmt.Errorf("%w: dataset is not a JSON array", ErrMalformedDataset)}
	}

	var (
		entries []Entry
		skipped []error
		index   int
	)

	_, err := jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		defer func() { index++ }()

		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w: record %d: %v", ErrMalformedDataset, index, err))
			return
		}
		if dataType != jsonparser.Object {
			skipped = append(skipped, fmt.Errorf("%w: record %d: expected object, got %s",
				ErrMalformedDataset, index, dataType))
			return
		}

		entry, err := parseRecord(value)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", index, err))
			return
		}
		entries = append(entries, entry)
	})
	if err != nil {
		skipped = append(skipped, fmt.Errorf("%w: stopped after %d records: %v", ErrMalformedDataset, index, err))
	}

	return entries, skipped
}

func parseRecord(value []byte) (Entry, error) {
	dateStr, err := jsonparser.GetString(value, "date")
	if err != nil {
		return Entry{}, fmt.Errorf("%w: missing date", ErrUnparseableDate)
	}
	date, err := dateutil.ParseDate(dateStr)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnparseableDate, dateStr)
	}

	title, _ := jsonparser.GetString(value, "name")
	if title == "" {
		title, _ = jsonparser.GetString(value, "localName")
	}
	if title == "" {
		return Entry{}, fmt.Errorf("%w: holiday on %s has no name", ErrMalformedDataset, date)
	}

	global, err := parseGlobal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: holiday on %s: %v", ErrMalformedDataset, date, err)
	}

	regions, err := parseCounties(value)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: holiday on %s: %v", ErrMalformedDataset, date, err)
	}

	return Entry{
		Date:    date,
		Title:   title,
		Global:  global,
		Regions: regions,
		Origin:  Origin{Kind: OriginExternal},
	}, nil
}

// parseGlobal treats a missing or null flag as a nationwide holiday
func parseGlobal(value []byte) (bool, error) {
	raw, dataType, _, err := jsonparser.Get(value, "global")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if dataType != jsonparser.Boolean {
		return false, fmt.Errorf("global is %s", dataType)
	}
	return jsonparser.ParseBoolean(raw)
}

func parseCounties(value []byte) ([]string, error) {
	raw, dataType, _, err := jsonparser.Get(value, "counties")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("counties is %s", dataType)
	}

	var (
		regions []string
		bad     error
	)
	_, err = jsonparser.ArrayEach(raw, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		if itemType != jsonparser.String {
			bad = fmt.Errorf("county code is %s", itemType)
			return
		}
		code, err := jsonparser.ParseString(item)
		if err != nil {
			bad = err
			return
		}
		regions = append(regions, code)
	})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, bad
	}
	return regions, nil
}
