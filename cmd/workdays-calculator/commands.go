package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/workdays-calculator/internal/config"
	"github.com/username/workdays-calculator/internal/daemon"
	"github.com/username/workdays-calculator/internal/export"
	"github.com/username/workdays-calculator/pkg/dateutil"
	"go.uber.org/zap"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func calcCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "calc [date]",
		Short: "Resolve the configured intervals from a start date",
		Long:  "Resolve every configured interval from the start date (default: today). Accepts today, yesterday, tomorrow or a date.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseStart(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			calc, err := initializeCalculator(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			report, err := calc.Calculate(ctx, start)
			if err != nil {
				return fmt.Errorf("calculation failed: %w", err)
			}
			for _, skipped := range report.Skipped {
				fmt.Fprintf(os.Stderr, "skipped: %v\n", skipped)
			}

			w, closeOutput, err := openOutput(output)
			if err != nil {
				return err
			}
			defer closeOutput()

			return export.Write(w, export.Format(format), report)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to file instead of stdout")

	return cmd
}

func holidaysCmd() *cobra.Command {
	var toStr string

	cmd := &cobra.Command{
		Use:   "holidays [date]",
		Short: "List the merged holidays on or after a date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseStart(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			to := dateutil.NewDate(cfg.Calculator.MaxYear, time.December, 31)
			if toStr != "" {
				if to, err = dateutil.ParseDate(toStr); err != nil {
					return fmt.Errorf("invalid to date: %w", err)
				}
			}

			calc, err := initializeCalculator(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			snap, err := calc.Snapshot(ctx, from)
			if err != nil {
				return fmt.Errorf("failed to build holiday snapshot: %w", err)
			}

			layout := cfg.Calculator.GetDateFormat()
			entries := snap.Between(from, to)

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDAY\tTITLE\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date.Format(layout), e.Date.Weekday(), e.Title, e.Origin.Kind)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d holiday(s) between %s and %s\n", len(entries), from, to)

			return nil
		},
	}

	cmd.Flags().StringVar(&toStr, "to", "", "Last date to list (YYYY-MM-DD, default: end of max_year)")

	return cmd
}

func tableCmd() *cobra.Command {
	var fromStr string
	var toStr string
	var workdaysOnly bool
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Resolve the configured intervals for every start date in a period",
		Long:  "Resolve the configured intervals for each start date between --from and --to (default: current month).",
		RunE: func(cmd *cobra.Command, args []string) error {
			var from, to dateutil.Date
			var err error

			// Default: current month
			if fromStr == "" && toStr == "" {
				today := dateutil.Today()
				from = dateutil.NewDate(today.Year, today.Month, 1)
				to = dateutil.FromTime(from.Time().AddDate(0, 1, -1))
			} else {
				if fromStr == "" || toStr == "" {
					return fmt.Errorf("both --from and --to must be specified")
				}
				from, err = dateutil.ParseDate(fromStr)
				if err != nil {
					return fmt.Errorf("invalid from date: %w", err)
				}
				to, err = dateutil.ParseDate(toStr)
				if err != nil {
					return fmt.Errorf("invalid to date: %w", err)
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			calc, err := initializeCalculator(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := calc.CalculateRange(ctx, from, to, workdaysOnly)
			if err != nil {
				return fmt.Errorf("range calculation failed: %w", err)
			}

			w, closeOutput, err := openOutput(output)
			if err != nil {
				return err
			}
			defer closeOutput()

			if err := export.Write(w, export.Format(format), result.Reports...); err != nil {
				return err
			}

			// Summary goes to stderr so exports stay clean
			fmt.Fprintf(os.Stderr, "\nRange summary (%s to %s):\n", result.From, result.To)
			fmt.Fprintf(os.Stderr, "  Start dates:   %d\n", result.ProcessedDays)
			fmt.Fprintf(os.Stderr, "  Skipped dates: %d\n", result.SkippedDays)
			fmt.Fprintf(os.Stderr, "  Took:          %s\n", result.Duration.Round(time.Millisecond))

			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "First start date (YYYY-MM-DD, default: first day of current month)")
	cmd.Flags().StringVar(&toStr, "to", "", "Last start date (YYYY-MM-DD, default: last day of current month)")
	cmd.Flags().BoolVar(&workdaysOnly, "workdays-only", false, "Skip weekends and holidays as start dates")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to file instead of stdout")

	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the public holiday dataset again, bypassing caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			calc, err := initializeCalculator(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			if err := calc.Refresh(ctx); err != nil {
				return err
			}

			status, err := calc.GetStatus(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Country:   %s\n", strings.ToUpper(status.Country))
			fmt.Printf("Years:     %v\n", status.Years)
			fmt.Printf("Holidays:  %d (%d public, %d filtered by region, %d extra, %d collisions)\n",
				status.Holidays,
				status.Stats.External,
				status.Stats.RegionFiltered,
				status.Stats.Extra,
				status.Stats.Collisions)
			fmt.Printf("Intervals: %d\n", status.Intervals)

			return nil
		},
	}
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep the holiday calendar fresh and follow config changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The watcher starts before the daemon exists
			var current atomic.Pointer[daemon.Daemon]

			cfg, err := config.Watch(configPath,
				func(next *config.Config) {
					logger.Info("Config file changed, applying")
					if d := current.Load(); d != nil {
						d.ApplyConfig(next)
					}
				},
				func(err error) {
					logger.Warn("Ignoring invalid config change", zap.Error(err))
				})
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			calc, err := initializeCalculator(cfg)
			if err != nil {
				return err
			}

			hour, minute := cfg.Daemon.GetDailyTime()
			logger.Info("Starting daemon",
				zap.String("country", cfg.Calculator.GetCountry()),
				zap.Int("daily_hour", hour),
				zap.Int("daily_minute", minute),
				zap.Bool("system_tray", cfg.Daemon.SystemTray))

			d := daemon.NewScheduledDaemon(calc, cfg.Daemon, logger)
			current.Store(d)
			return d.Start()
		},
	}
}
