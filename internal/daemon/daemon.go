package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/username/workdays-calculator/internal/calculator"
	"github.com/username/workdays-calculator/internal/config"
	"go.uber.org/zap"
)

// refreshTimeout bounds a single dataset refresh
const refreshTimeout = 2 * time.Minute

// Daemon keeps the holiday calendar fresh: it refreshes the dataset once a
// day and applies configuration changes while running
type Daemon struct {
	calc           *calculator.Calculator
	dailyHour      int  // Hour to run daily refresh (0-23)
	dailyMinute    int  // Minute to run daily refresh (0-59)
	systemTray     bool // Show system tray icon
	logger         *zap.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	trayApp        *TrayApp
	now            func() time.Time
	mu             sync.Mutex // Protects the fields below
	lastRunDate    string     // Last successful refresh date, avoids duplicate runs
	lastRunTime    time.Time
	lastErr        error
	refreshRunning bool
}

// NewScheduledDaemon creates a new daemon instance with daily schedule
func NewScheduledDaemon(calc *calculator.Calculator, cfg config.DaemonConfig, logger *zap.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	hour, minute := cfg.GetDailyTime()

	return &Daemon{
		calc:        calc,
		dailyHour:   hour,
		dailyMinute: minute,
		systemTray:  cfg.SystemTray,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Start starts the daemon and blocks until it is stopped
func (d *Daemon) Start() error {
	// Initialize system tray if enabled (Windows only)
	if d.systemTray {
		d.logger.Info("Initializing system tray")
		trayApp, err := NewTrayApp(d, d.logger)
		if err != nil {
			d.logger.Warn("Failed to initialize system tray", zap.Error(err))
			d.runScheduledLogic()
			return nil
		}
		d.trayApp = trayApp
		// Run tray (blocks until Quit)
		d.trayApp.Run()
		return nil
	}

	d.logger.Info("Running without system tray")
	d.runScheduledLogic()
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// ApplyConfig passes a reloaded configuration to the calculator and
// reschedules the daily refresh
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	d.calc.SetConfig(cfg)

	hour, minute := cfg.Daemon.GetDailyTime()

	d.mu.Lock()
	changed := hour != d.dailyHour || minute != d.dailyMinute
	d.dailyHour, d.dailyMinute = hour, minute
	d.mu.Unlock()

	if changed {
		d.logger.Info("Daily refresh rescheduled",
			zap.Int("daily_hour", hour),
			zap.Int("daily_minute", minute),
			zap.Time("next_run", d.calculateNextRun(d.now())))
	}
}

// runScheduledLogic runs the scheduled refresh logic (called from tray or standalone)
func (d *Daemon) runScheduledLogic() {
	hour, minute := d.schedule()
	d.logger.Info("Daemon scheduled logic started",
		zap.Int("daily_hour", hour),
		zap.Int("daily_minute", minute))

	// Build the calendar up front so the first calculation does not wait
	if status, err := d.calc.GetStatus(d.ctx); err != nil {
		d.logger.Error("Initial calendar build failed", zap.Error(err))
	} else {
		d.logger.Info("Calendar ready",
			zap.String("country", status.Country),
			zap.Int("holidays", status.Holidays),
			zap.Bool("degraded", status.Degraded))
		if status.Degraded {
			d.notify("Refresh Failed", "Public holidays unavailable, retrying at the scheduled time")
		}
	}

	nextRun := d.calculateNextRun(d.now())
	d.logger.Info("Next refresh scheduled",
		zap.Time("next_run", nextRun),
		zap.Duration("wait_duration", time.Until(nextRun)))

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Check every minute if it's time to run
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("Daemon stopped")
			if d.trayApp != nil {
				d.trayApp.Stop()
			}
			return

		case sig := <-sigChan:
			d.logger.Info("Received signal, shutting down",
				zap.String("signal", sig.String()))
			if d.trayApp != nil {
				d.trayApp.Stop()
			}
			d.Stop()
			return

		case now := <-ticker.C:
			if !d.shouldRunAt(now) {
				continue
			}

			d.logger.Info("Starting scheduled refresh", zap.Time("time", now))
			if err := d.runRefresh(); err != nil {
				d.logger.Error("Refresh failed", zap.Error(err))
				d.notify("Refresh Failed", fmt.Sprintf("Error: %v", err))
				continue
			}
			d.notify("Refresh Completed", "Public holidays updated")

			nextRun = d.calculateNextRun(d.now())
			d.logger.Info("Next refresh scheduled",
				zap.Time("next_run", nextRun),
				zap.Duration("wait_duration", time.Until(nextRun)))
		}
	}
}

// RefreshNow triggers an immediate refresh (called from tray menu)
func (d *Daemon) RefreshNow() error {
	d.logger.Info("Manual refresh triggered")

	d.mu.Lock()
	d.lastRunDate = "" // a manual refresh always runs
	d.mu.Unlock()

	if err := d.runRefresh(); err != nil {
		d.logger.Error("Manual refresh failed", zap.Error(err))
		d.notify("Refresh Failed", fmt.Sprintf("Error: %v", err))
		return err
	}

	d.logger.Info("Manual refresh completed successfully")
	d.notify("Refresh Completed", "Public holidays updated")
	return nil
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	status := map[string]interface{}{
		"running":  d.ctx.Err() == nil,
		"next_run": d.calculateNextRunLocked(d.now()).Format("2006-01-02 15:04"),
	}
	if !d.lastRunTime.IsZero() {
		status["last_refresh"] = d.lastRunTime.Format(time.RFC3339)
	}
	if d.lastErr != nil {
		status["last_error"] = d.lastErr.Error()
	}
	d.mu.Unlock()

	cal, err := d.calc.GetStatus(d.ctx)
	if err == nil {
		status["calendar"] = map[string]interface{}{
			"country":   cal.Country,
			"years":     cal.Years,
			"holidays":  cal.Holidays,
			"intervals": cal.Intervals,
			"degraded":  cal.Degraded,
			"built_at":  cal.BuiltAt.Format(time.RFC3339),
		}
	}

	return status
}

// StatusText summarises GetStatus for people, one fact per line
func (d *Daemon) StatusText() string {
	status := d.GetStatus()

	var b strings.Builder
	if cal, ok := status["calendar"].(map[string]interface{}); ok {
		fmt.Fprintf(&b, "%v public holidays %v: %v days\n",
			strings.ToUpper(fmt.Sprint(cal["country"])), cal["years"], cal["holidays"])
		fmt.Fprintf(&b, "Intervals configured: %v\n", cal["intervals"])
		if degraded, _ := cal["degraded"].(bool); degraded {
			b.WriteString("Public holidays unavailable, weekends and extra holidays only\n")
		}
	} else {
		b.WriteString("Holiday calendar not built\n")
	}
	if last, ok := status["last_refresh"]; ok {
		fmt.Fprintf(&b, "Last refresh: %v\n", last)
	}
	if lastErr, ok := status["last_error"]; ok {
		fmt.Fprintf(&b, "Last refresh failed: %v\n", lastErr)
	}
	fmt.Fprintf(&b, "Next refresh: %v", status["next_run"])

	return b.String()
}

// runRefresh fetches the dataset again
// Protected with mutex so a tray click and the schedule cannot overlap
func (d *Daemon) runRefresh() error {
	d.mu.Lock()
	if d.refreshRunning {
		d.mu.Unlock()
		d.logger.Warn("Refresh already running, skipping concurrent execution")
		return fmt.Errorf("refresh already in progress")
	}

	today := d.now().Format("2006-01-02")
	if d.lastRunDate == today {
		d.mu.Unlock()
		d.logger.Info("Already refreshed today, skipping",
			zap.String("last_run_date", today))
		return nil
	}
	d.refreshRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(d.ctx, refreshTimeout)
	defer cancel()

	err := d.calc.Refresh(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshRunning = false
	d.lastErr = err
	if err != nil {
		return err
	}
	d.lastRunDate = today
	d.lastRunTime = d.now()
	return nil
}

func (d *Daemon) notify(title, message string) {
	if d.trayApp != nil {
		d.trayApp.ShowNotification(title, message)
	}
}

func (d *Daemon) schedule() (hour, minute int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dailyHour, d.dailyMinute
}

// calculateNextRun calculates the next scheduled run time (local time)
func (d *Daemon) calculateNextRun(now time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calculateNextRunLocked(now)
}

func (d *Daemon) calculateNextRunLocked(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(),
		d.dailyHour, d.dailyMinute, 0, 0, now.Location())

	// If target time already passed today, schedule for tomorrow
	if !now.Before(today) {
		return today.AddDate(0, 0, 1)
	}
	return today
}

// shouldRunAt checks if the refresh should run at the given time
func (d *Daemon) shouldRunAt(now time.Time) bool {
	hour, minute := d.schedule()
	return now.Hour() == hour && now.Minute() == minute
}
