package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/username/workdays-calculator/internal/calculator"
	"github.com/username/workdays-calculator/internal/calendar"
	"github.com/username/workdays-calculator/internal/config"
	"github.com/username/workdays-calculator/pkg/dateutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPath string
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "workdays-calculator",
		Short: "Working-day interval calculator",
		Long:  "Resolve \"N working days from a start date\" against weekends, public holidays and company-defined holidays",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Daemon.LogFile != "" {
				logger, err = initFileLogger(cfg.Daemon.LogFile, cfg.Daemon.LogLevel)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file path")

	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(holidaysCmd())
	rootCmd.AddCommand(tableCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(daemonCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initializeCalculator(cfg *config.Config) (*calculator.Calculator, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return calculator.New(cfg, provider, logger), nil
}

// newProvider builds the dataset provider chain for the configured calendar type
func newProvider(cfg *config.Config) (calendar.Provider, error) {
	calType := cfg.Calendar.GetType()

	switch calType {
	case "nager":
		logger.Info("Using date.nager.at public holiday API",
			zap.String("api_url", cfg.Calendar.APIURL),
			zap.Bool("proxy", cfg.Calendar.Proxy != ""))

		primary, err := calendar.NewNagerProvider(
			cfg.Calendar.APIURL,
			cfg.Calendar.Proxy,
			cfg.Calendar.GetCacheTTL(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create holiday API client: %w", err)
		}

		cache := calendar.NewFileCache(cfg.Calendar.CacheFile, logger)
		fallbacks := []calendar.Provider{calendar.NewBuiltinProvider(logger)}
		if cfg.Calendar.DatasetFile != "" {
			fallbacks = append([]calendar.Provider{calendar.NewFileProvider(cfg.Calendar.DatasetFile, logger)}, fallbacks...)
		}

		return calendar.NewCompositeProvider(primary, cache, cfg.Calendar.GetCacheTTL(), logger, fallbacks...), nil

	case "builtin":
		logger.Info("Using built-in holiday rules")
		return calendar.NewBuiltinProvider(logger), nil

	case "file":
		logger.Info("Using holiday dataset file", zap.String("path", cfg.Calendar.DatasetFile))
		return calendar.NewFileProvider(cfg.Calendar.DatasetFile, logger), nil

	default:
		return nil, fmt.Errorf("unknown calendar type: %s", calType)
	}
}

// parseStart reads an optional start date argument: today, yesterday,
// tomorrow or a date in one of the accepted layouts
func parseStart(args []string) (dateutil.Date, error) {
	if len(args) == 0 {
		return dateutil.Today(), nil
	}

	switch strings.ToLower(args[0]) {
	case "today":
		return dateutil.Today(), nil
	case "yesterday":
		return dateutil.Today().AddDays(-1), nil
	case "tomorrow":
		return dateutil.Today().AddDays(1), nil
	}

	date, err := dateutil.ParseDate(args[0])
	if err != nil {
		return dateutil.Date{}, fmt.Errorf("invalid start date: %w", err)
	}
	return date, nil
}

// openOutput returns stdout or the named file
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return f, f.Close, nil
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	// Setup encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
