package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
	"go.uber.org/zap"
)

// builtinHolidays are the national holidays known without network access
var builtinHolidays = map[string][]*cal.Holiday{
	"NZ": nz.Holidays,
	"US": {
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	},
}

// datasetRecord is one element of the public-holiday dataset
type datasetRecord struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
}

// BuiltinProvider produces the dataset from compiled-in holiday rules. It is
// the offline fallback when the API cannot be reached.
type BuiltinProvider struct {
	logger *zap.Logger
}

// NewBuiltinProvider creates a BuiltinProvider
func NewBuiltinProvider(logger *zap.Logger) *BuiltinProvider {
	return &BuiltinProvider{logger: logger}
}

// Countries lists the supported country codes
func (p *BuiltinProvider) Countries() []string {
	codes := make([]string, 0, len(builtinHolidays))
	for code := range builtinHolidays {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Fetch computes the observed dates of every built-in holiday
func (p *BuiltinProvider) Fetch(ctx context.Context, country string, years []int) ([]byte, error) {
	country = strings.ToUpper(country)
	holidays, ok := builtinHolidays[country]
	if !ok {
		return nil, fmt.Errorf("%w: no built-in holidays for %s", ErrNoData, country)
	}

	records := make([]datasetRecord, 0, len(holidays)*len(years))
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, h := range holidays {
			_, observed := h.Calc(year)
			if observed.IsZero() {
				continue
			}
			records = append(records, datasetRecord{
				Date:        observed.Format("2006-01-02"),
				LocalName:   h.Name,
				Name:        h.Name,
				CountryCode: country,
				Global:      true,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode built-in holidays: %w", err)
	}

	p.logger.Debug("Built-in holidays computed",
		zap.String("country", country),
		zap.Ints("years", years),
		zap.Int("records", len(records)))

	return data, nil
}
