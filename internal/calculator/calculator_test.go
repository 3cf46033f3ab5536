package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/username/workdays-calculator/internal/config"
	"github.com/username/workdays-calculator/internal/display"
	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/internal/resolver"
	"github.com/username/workdays-calculator/pkg/dateutil"
	"go.uber.org/zap"
)

const nzDataset = `[
  {"date":"2024-12-25","localName":"Christmas Day","name":"Christmas Day","countryCode":"NZ","global":true,"counties":null},
  {"date":"2024-12-26","localName":"Boxing Day","name":"Boxing Day","countryCode":"NZ","global":true,"counties":null},
  {"date":"2025-01-01","localName":"New Year's Day","name":"New Year's Day","countryCode":"NZ","global":true,"counties":null}
]`

type stubProvider struct {
	data      []byte
	err       error
	fetches   int
	refreshes int
}

func (s *stubProvider) Fetch(_ context.Context, _ string, _ []int) ([]byte, error) {
	s.fetches++
	return s.data, s.err
}

func (s *stubProvider) Refresh(_ context.Context, _ string, _ []int) ([]byte, error) {
	s.refreshes++
	return s.data, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Calculator: config.CalculatorConfig{
			Country: "NZ",
			MinYear: 2024,
			MaxYear: 2025,
			Intervals: []resolver.Interval{
				{ID: 2, Offset: 5, Sort: 2, Unit: resolver.UnitDays},
				{ID: 1, Offset: 5, Sort: 1},
				{ID: 3, Offset: -1, Sort: 3},
			},
			ExtraHolidays: []holiday.SourceRecord{
				{ID: 9, Title: "Year-end shutdown", Type: "range", From: "2024-12-30", To: "2024-12-31"},
				{ID: 10, Title: "Broken", Type: "range", From: "2024-12-30"},
			},
		},
	}
}

func newTestCalculator(t *testing.T, provider *stubProvider) *Calculator {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return New(testConfig(), provider, logger)
}

func TestCalculate(t *testing.T) {
	provider := &stubProvider{data: []byte(nzDataset)}
	calc := newTestCalculator(t, provider)

	report, err := calc.Calculate(context.Background(), dateutil.MustParse("2024-12-20"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	want := []Result{
		{
			IntervalID:   1,
			Offset:       5,
			Unit:         resolver.UnitWeekdays,
			Label:        "+5 working days",
			ResolvedDate: "2025-01-03",
			DisplayDate:  "03/01/2025",
			Holidays: []display.Holiday{
				{Title: "Christmas Day", Date: "25/12/2024"},
				{Title: "Boxing Day", Date: "26/12/2024"},
				{Title: "Year-end shutdown", Date: "30/12/2024 - 31/12/2024"},
				{Title: "New Year's Day", Date: "01/01/2025"},
			},
		},
		{
			IntervalID:   2,
			Offset:       5,
			Unit:         resolver.UnitDays,
			Label:        "+5 days",
			ResolvedDate: "2024-12-27",
			DisplayDate:  "27/12/2024",
			Holidays: []display.Holiday{
				{Title: "Christmas Day", Date: "25/12/2024"},
				{Title: "Boxing Day", Date: "26/12/2024"},
			},
		},
	}
	if diff := cmp.Diff(want, report.Results); diff != "" {
		t.Errorf("Calculate() results mismatch (-want +got):\n%s", diff)
	}

	// The broken extra holiday and the negative interval
	if len(report.Skipped) != 2 {
		t.Errorf("Skipped = %v, want 2 records", report.Skipped)
	}
	for _, err := range report.Skipped {
		if !errors.Is(err, holiday.ErrInvalidConfiguration) {
			t.Errorf("Skipped error = %v, want ErrInvalidConfiguration", err)
		}
	}
	if report.Degraded {
		t.Error("Degraded = true, want false")
	}
	if report.Country != "nz" {
		t.Errorf("Country = %q, want nz", report.Country)
	}
}

func TestCalculateCachesCalendar(t *testing.T) {
	provider := &stubProvider{data: []byte(nzDataset)}
	calc := newTestCalculator(t, provider)
	ctx := context.Background()

	for _, d := range []string{"2024-12-20", "2024-12-23", "2025-01-06"} {
		if _, err := calc.Calculate(ctx, dateutil.MustParse(d)); err != nil {
			t.Fatalf("Calculate(%s) error = %v", d, err)
		}
	}
	if provider.fetches != 1 {
		t.Errorf("provider fetched %d times, want 1", provider.fetches)
	}

	// Same settings keep the cache
	calc.SetConfig(testConfig())
	if _, err := calc.Calculate(ctx, dateutil.MustParse("2024-12-20")); err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if provider.fetches != 1 {
		t.Errorf("provider fetched %d times after identical config, want 1", provider.fetches)
	}

	// A new interval rebuilds the calendar from the kept dataset
	cfg := testConfig()
	cfg.Calculator.Intervals = append(cfg.Calculator.Intervals, resolver.Interval{ID: 4, Offset: 1, Sort: 4})
	calc.SetConfig(cfg)
	report, err := calc.Calculate(ctx, dateutil.MustParse("2024-12-20"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if len(report.Results) != 3 {
		t.Errorf("Results = %d, want 3", len(report.Results))
	}
	if provider.fetches != 1 {
		t.Errorf("provider fetched %d times after interval change, want 1", provider.fetches)
	}

	// Other years need a new dataset
	cfg = testConfig()
	cfg.Calculator.MaxYear = 2026
	calc.SetConfig(cfg)
	if _, err := calc.Calculate(ctx, dateutil.MustParse("2024-12-20")); err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if provider.fetches != 2 {
		t.Errorf("provider fetched %d times after year change, want 2", provider.fetches)
	}

	calc.Invalidate()
	if _, err := calc.Snapshot(ctx, dateutil.MustParse("2024-12-20")); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if provider.fetches != 3 {
		t.Errorf("provider fetched %d times after Invalidate, want 3", provider.fetches)
	}
}

func TestRefresh(t *testing.T) {
	provider := &stubProvider{data: []byte(nzDataset)}
	calc := newTestCalculator(t, provider)
	ctx := context.Background()

	if err := calc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if provider.refreshes != 1 || provider.fetches != 0 {
		t.Errorf("refreshes = %d, fetches = %d; want 1, 0", provider.refreshes, provider.fetches)
	}

	status, err := calc.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Holidays != 5 || status.Stats.External != 3 || status.Stats.Extra != 2 {
		t.Errorf("GetStatus() = %+v, want 5 holidays from 3 external and 2 extra", status)
	}
	if provider.fetches != 0 {
		t.Errorf("GetStatus() fetched %d times, want cached calendar", provider.fetches)
	}

	provider.err = errors.New("connection refused")
	if err := calc.Refresh(ctx); err == nil {
		t.Error("Refresh() expected error, got nil")
	}
	// The previous calendar stays in use
	status, _ = calc.GetStatus(ctx)
	if status.Holidays != 5 {
		t.Errorf("Holidays after failed refresh = %d, want 5", status.Holidays)
	}
}

func TestCalculateWithoutDataset(t *testing.T) {
	provider := &stubProvider{err: errors.New("no route to host")}
	calc := newTestCalculator(t, provider)

	report, err := calc.Calculate(context.Background(), dateutil.MustParse("2024-12-20"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if !report.Degraded {
		t.Error("Degraded = false, want true")
	}

	// Only the extra holidays and weekends remain: +5 working days lands on
	// Friday 27th, the shutdown on the 30th and 31st is beyond it
	if got := report.Results[0].ResolvedDate; got != "2024-12-27" {
		t.Errorf("ResolvedDate = %s, want 2024-12-27", got)
	}
}

func TestCalculateRange(t *testing.T) {
	provider := &stubProvider{data: []byte(nzDataset)}
	calc := newTestCalculator(t, provider)
	ctx := context.Background()

	result, err := calc.CalculateRange(ctx, dateutil.MustParse("2024-12-23"), dateutil.MustParse("2024-12-29"), true)
	if err != nil {
		t.Fatalf("CalculateRange() error = %v", err)
	}
	// Mon 23, Tue 24 and Fri 27 are working days
	if result.ProcessedDays != 3 || result.SkippedDays != 4 {
		t.Errorf("processed = %d, skipped = %d; want 3, 4", result.ProcessedDays, result.SkippedDays)
	}
	var starts []string
	for _, r := range result.Reports {
		starts = append(starts, r.Start.String())
	}
	if diff := cmp.Diff([]string{"2024-12-23", "2024-12-24", "2024-12-27"}, starts); diff != "" {
		t.Errorf("CalculateRange() starts mismatch (-want +got):\n%s", diff)
	}

	all, err := calc.CalculateRange(ctx, dateutil.MustParse("2024-12-23"), dateutil.MustParse("2024-12-29"), false)
	if err != nil {
		t.Fatalf("CalculateRange() error = %v", err)
	}
	if all.ProcessedDays != 7 {
		t.Errorf("processed = %d, want 7", all.ProcessedDays)
	}

	if _, err := calc.CalculateRange(ctx, dateutil.MustParse("2024-12-29"), dateutil.MustParse("2024-12-23"), false); err == nil {
		t.Error("CalculateRange() expected error for inverted range")
	}
	if _, err := calc.CalculateRange(ctx, dateutil.MustParse("2024-01-01"), dateutil.MustParse("2025-12-31"), false); err == nil {
		t.Error("CalculateRange() expected error for oversized range")
	}
}
