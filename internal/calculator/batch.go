package calculator

import (
	"context"
	"fmt"
	"time"

	"github.com/username/workdays-calculator/pkg/dateutil"
	"go.uber.org/zap"
)

// maxRangeDays bounds a single range calculation
const maxRangeDays = 366

// RangeResult represents the result of a calculation over several start dates
type RangeResult struct {
	From          dateutil.Date
	To            dateutil.Date
	ProcessedDays int
	SkippedDays   int // non-working start dates left out
	Reports       []*Report
	Duration      time.Duration
}

// CalculateRange runs Calculate for every start date in [from, to]. With
// workdaysOnly set, weekends and holidays are not used as start dates.
func (c *Calculator) CalculateRange(ctx context.Context, from, to dateutil.Date, workdaysOnly bool) (*RangeResult, error) {
	started := time.Now()

	if to.Before(from) {
		return nil, fmt.Errorf("range ends %s before it starts %s", to, from)
	}
	if days := dateutil.DaysBetween(from, to) + 1; days > maxRangeDays {
		return nil, fmt.Errorf("range of %d days exceeds the limit of %d", days, maxRangeDays)
	}

	c.logger.Info("Starting range calculation",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Bool("workdays_only", workdaysOnly))

	snap, err := c.Snapshot(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to build holiday snapshot: %w", err)
	}

	result := &RangeResult{
		From:    from,
		To:      to,
		Reports: []*Report{},
	}

	for d := from; !d.After(to); d = d.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if workdaysOnly && (d.IsWeekend() || snap.Contains(d)) {
			result.SkippedDays++
			continue
		}

		report, err := c.Calculate(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate %s: %w", d, err)
		}

		result.Reports = append(result.Reports, report)
		result.ProcessedDays++
	}

	result.Duration = time.Since(started)

	c.logger.Info("Range calculation completed",
		zap.Int("processed_days", result.ProcessedDays),
		zap.Int("skipped_days", result.SkippedDays),
		zap.Duration("duration", result.Duration))

	return result, nil
}
