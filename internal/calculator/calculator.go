package calculator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/username/workdays-calculator/internal/calendar"
	"github.com/username/workdays-calculator/internal/config"
	"github.com/username/workdays-calculator/internal/display"
	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/internal/resolver"
	"github.com/username/workdays-calculator/pkg/dateutil"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Refresher is implemented by providers that can bypass their own cache
type Refresher interface {
	Refresh(ctx context.Context, country string, years []int) ([]byte, error)
}

// Result is one resolved interval, ready for output
type Result struct {
	IntervalID   int               `json:"intervalId"`
	Offset       int               `json:"offset"`
	Unit         resolver.Unit     `json:"unit"`
	Label        string            `json:"label"`
	ResolvedDate string            `json:"resolvedDate"` // YYYY-MM-DD
	DisplayDate  string            `json:"displayDate"`
	Holidays     []display.Holiday `json:"holidays"`
}

// Report is the outcome of one calculation
type Report struct {
	Start    dateutil.Date `json:"start"`
	Country  string        `json:"country"`
	Results  []Result      `json:"results"`
	Skipped  []error       `json:"-"`
	Degraded bool          `json:"degraded,omitempty"` // dataset unavailable, only weekends and extra holidays applied
}

// Status describes the cached calendar
type Status struct {
	Country   string
	Years     []int
	Holidays  int
	Stats     holiday.Stats
	BuiltAt   time.Time
	Degraded  bool
	Intervals int
}

// Calculator resolves the configured intervals. The merged holiday calendar is
// built once per configuration and dataset and shared by all calculations.
type Calculator struct {
	provider calendar.Provider
	logger   *zap.Logger

	mu       sync.RWMutex
	cfg      config.CalculatorConfig
	calendar *holiday.Calendar
	skipped  []error // records dropped while building calendar
	dataset  []byte
	degraded bool
	builtAt  time.Time
}

// state is a consistent view of the cached calendar
type state struct {
	calendar *holiday.Calendar
	cfg      config.CalculatorConfig
	skipped  []error
	degraded bool
	builtAt  time.Time
}

// New creates a new calculator
func New(cfg *config.Config, provider calendar.Provider, logger *zap.Logger) *Calculator {
	return &Calculator{
		provider: provider,
		logger:   logger,
		cfg:      cfg.Calculator,
	}
}

// SetConfig swaps the configuration. The cached calendar is dropped when the
// calculation settings changed; the dataset is kept unless country or years changed.
func (c *Calculator) SetConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.cfg
	c.cfg = cfg.Calculator
	if fingerprint(prev) == fingerprint(c.cfg) {
		return
	}

	c.calendar = nil
	if prev.GetCountry() != c.cfg.GetCountry() || prev.MinYear != c.cfg.MinYear || prev.MaxYear != c.cfg.MaxYear {
		c.dataset = nil
	}

	c.logger.Info("Calculator configuration changed, calendar invalidated",
		zap.String("country", c.cfg.GetCountry()),
		zap.Int("intervals", len(c.cfg.Intervals)))
}

// Invalidate drops the cached calendar and dataset
func (c *Calculator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calendar = nil
	c.dataset = nil
	c.logger.Info("Calendar cache invalidated")
}

// Refresh fetches the dataset again, bypassing provider caches where
// possible, and rebuilds the calendar
func (c *Calculator) Refresh(ctx context.Context) error {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	country := cfg.GetCountry()
	years := calendar.Years(cfg.MinYear, cfg.MaxYear)

	var (
		data []byte
		err  error
	)
	if r, ok := c.provider.(Refresher); ok {
		data, err = r.Refresh(ctx, country, years)
	} else {
		data, err = c.provider.Fetch(ctx, country, years)
	}
	if err != nil {
		return fmt.Errorf("failed to refresh dataset: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataset = data
	c.degraded = false
	c.build()

	return nil
}

// Snapshot returns the holidays on or after start
func (c *Calculator) Snapshot(ctx context.Context, start dateutil.Date) (*holiday.Snapshot, error) {
	st, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return st.calendar.Snapshot(start), nil
}

// Calculate resolves every configured interval from start
func (c *Calculator) Calculate(ctx context.Context, start dateutil.Date) (*Report, error) {
	st, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Calculating intervals",
		zap.Stringer("start", start),
		zap.Int("intervals", len(st.cfg.Intervals)))

	report := calculate(st.calendar, st.cfg, start)
	if len(report.Skipped) > 0 {
		c.logger.Warn("Skipped invalid intervals",
			zap.Int("count", len(report.Skipped)),
			zap.Error(multierr.Combine(report.Skipped...)))
	}

	report.Degraded = st.degraded
	report.Skipped = append(append([]error{}, st.skipped...), report.Skipped...)

	return report, nil
}

// GetStatus returns information about the cached calendar
func (c *Calculator) GetStatus(ctx context.Context) (*Status, error) {
	st, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Country:   st.cfg.GetCountry(),
		Years:     calendar.Years(st.cfg.MinYear, st.cfg.MaxYear),
		Holidays:  st.calendar.Len(),
		Stats:     st.calendar.Stats(),
		BuiltAt:   st.builtAt,
		Degraded:  st.degraded,
		Intervals: len(st.cfg.Intervals),
	}, nil
}

// calculate runs the resolver over a built calendar. Record-level problems of
// the intervals end up in Report.Skipped.
func calculate(cal *holiday.Calendar, cfg config.CalculatorConfig, start dateutil.Date) *Report {
	intervals := make([]resolver.Interval, len(cfg.Intervals))
	for i, in := range cfg.Intervals {
		if in.Unit == "" {
			in.Unit = cfg.GetUnit()
		}
		intervals[i] = in
	}

	resolved, skipped := resolver.ResolveAll(start, intervals, cal.Snapshot(start))

	layout := cfg.GetDateFormat()
	report := &Report{
		Start:   start,
		Country: cfg.GetCountry(),
		Results: make([]Result, 0, len(resolved)),
		Skipped: skipped,
	}
	for _, r := range resolved {
		report.Results = append(report.Results, Result{
			IntervalID:   r.Interval.ID,
			Offset:       r.Interval.Offset,
			Unit:         r.Interval.Unit,
			Label:        r.Interval.Label(),
			ResolvedDate: r.Date.String(),
			DisplayDate:  r.Date.Format(layout),
			Holidays:     display.Format(r, layout),
		})
	}
	return report
}

// current returns the cached calendar, building it on first use
func (c *Calculator) current(ctx context.Context) (state, error) {
	c.mu.RLock()
	if c.calendar != nil {
		st := c.state()
		c.mu.RUnlock()
		return st, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have built it meanwhile
	if c.calendar != nil {
		return c.state(), nil
	}

	if c.dataset == nil {
		country := c.cfg.GetCountry()
		years := calendar.Years(c.cfg.MinYear, c.cfg.MaxYear)

		data, err := c.provider.Fetch(ctx, country, years)
		switch {
		case err == nil:
			c.dataset = data
			c.degraded = false
		case ctx.Err() != nil:
			return state{}, ctx.Err()
		default:
			// Weekends and extra holidays still apply
			c.logger.Warn("Public holiday dataset unavailable, continuing without it",
				zap.String("country", country),
				zap.Error(err))
			c.dataset = []byte{}
			c.degraded = true
		}
	}

	c.build()
	return c.state(), nil
}

// state snapshots the cache. Callers hold c.mu.
func (c *Calculator) state() state {
	return state{
		calendar: c.calendar,
		cfg:      c.cfg,
		skipped:  c.skipped,
		degraded: c.degraded,
		builtAt:  c.builtAt,
	}
}

// build merges the dataset with the extra holidays. Callers hold c.mu.
func (c *Calculator) build() {
	sources, skipped := parseSources(c.cfg.ExtraHolidays)

	cal := holiday.NewCalendar(c.dataset, sources, holiday.Options{
		MinYear: c.cfg.MinYear,
		MaxYear: c.cfg.MaxYear,
		Region:  c.cfg.Region,
		Merge:   c.cfg.GetMergePolicy(),
	})

	skipped = append(skipped, cal.Skipped()...)
	if len(skipped) > 0 {
		c.logger.Warn("Holiday records skipped while building calendar",
			zap.Int("count", len(skipped)),
			zap.Error(multierr.Combine(skipped...)))
	}

	stats := cal.Stats()
	c.logger.Info("Holiday calendar built",
		zap.String("country", c.cfg.GetCountry()),
		zap.Int("holidays", cal.Len()),
		zap.Int("external", stats.External),
		zap.Int("region_filtered", stats.RegionFiltered),
		zap.Int("extra", stats.Extra),
		zap.Int("collisions", stats.Collisions))

	c.calendar = cal
	c.skipped = skipped
	c.builtAt = time.Now()
}

func parseSources(records []holiday.SourceRecord) ([]holiday.Source, []error) {
	var (
		sources []holiday.Source
		errs    []error
	)
	for _, rec := range records {
		src, err := holiday.ParseSource(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, errs
}

func fingerprint(cfg config.CalculatorConfig) string {
	return fmt.Sprintf("%#v", cfg)
}
