package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/username/workdays-calculator/internal/display"
	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/internal/resolver"
)

const (
	defaultCountry  = "nz"
	defaultCacheTTL = 24 * time.Hour
	maxYearSpan     = 50
)

// Config represents application configuration
type Config struct {
	Calculator CalculatorConfig `mapstructure:"calculator"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
}

// CalculatorConfig holds what the working-day calculation needs
type CalculatorConfig struct {
	Country       string                 `mapstructure:"country"` // ISO-3166 alpha-2, default nz
	MinYear       int                    `mapstructure:"min_year"`
	MaxYear       int                    `mapstructure:"max_year"`
	Unit          string                 `mapstructure:"unit"`        // "weekdays" or "days"
	DateFormat    string                 `mapstructure:"date_format"` // Go layout, default 02/01/2006
	MergePolicy   string                 `mapstructure:"merge_policy"`
	Region        holiday.RegionFilter   `mapstructure:"region"`
	Intervals     []resolver.Interval    `mapstructure:"intervals"`
	ExtraHolidays []holiday.SourceRecord `mapstructure:"extra_holidays"`
}

// CalendarConfig represents public-holiday dataset configuration
type CalendarConfig struct {
	Type        string `mapstructure:"type"` // "nager", "builtin" or "file"
	APIURL      string `mapstructure:"api_url"`
	Proxy       string `mapstructure:"proxy"` // outbound proxy, e.g. http://${PROXY_HOST}:3128
	CacheFile   string `mapstructure:"cache_file"`
	CacheTTL    string `mapstructure:"cache_ttl"`
	DatasetFile string `mapstructure:"dataset_file"` // For file type
}

// DaemonConfig represents daemon mode configuration
type DaemonConfig struct {
	DailyTime  string `mapstructure:"daily_time"` // Time to refresh the dataset (HH:MM, local time)
	LogFile    string `mapstructure:"log_file"`
	LogLevel   string `mapstructure:"log_level"`
	SystemTray bool   `mapstructure:"system_tray"` // Show system tray icon (Windows only)
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return decode(v)
}

// Watch loads the configuration and keeps watching the file. Every valid
// edit is passed to onChange; invalid edits go to onError and are ignored.
func Watch(configPath string, onChange func(*Config), onError func(error)) (*Config, error) {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.workdays-calculator")
		v.AddConfigPath("/etc/workdays-calculator")
	}

	// WORKDAYS_CALENDAR_PROXY overrides calendar.proxy and so on
	v.SetEnvPrefix("workdays")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		timeToDateHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// timeToDateHookFunc turns YAML timestamps (an unquoted 2024-12-24) back into
// date strings so holiday records always carry text
func timeToDateHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}
		if t, ok := data.(time.Time); ok {
			return t.Format("2006-01-02"), nil
		}
		return data, nil
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	calc := c.Calculator

	// Validate Calculator config
	if calc.MinYear <= 0 || calc.MaxYear <= 0 {
		return fmt.Errorf("calculator.min_year and calculator.max_year are required")
	}
	if calc.MaxYear < calc.MinYear {
		return fmt.Errorf("calculator.max_year (%d) is before calculator.min_year (%d)", calc.MaxYear, calc.MinYear)
	}
	if calc.MaxYear-calc.MinYear > maxYearSpan {
		return fmt.Errorf("calculator year range is limited to %d years", maxYearSpan)
	}
	if len(strings.TrimSpace(calc.GetCountry())) != 2 {
		return fmt.Errorf("calculator.country must be a two-letter code, got '%s'", calc.Country)
	}
	if _, err := resolver.ParseUnit(calc.Unit); err != nil {
		return fmt.Errorf("calculator.unit must be 'weekdays' or 'days', got '%s'", calc.Unit)
	}
	switch holiday.MergePolicy(calc.MergePolicy) {
	case "", holiday.MergeLastWins, holiday.MergeConcatenate:
	default:
		return fmt.Errorf("calculator.merge_policy must be 'last_wins' or 'concatenate', got '%s'", calc.MergePolicy)
	}
	if err := calc.Region.Validate(); err != nil {
		return fmt.Errorf("calculator.region: %w", err)
	}

	// Validate Calendar config
	switch c.Calendar.GetType() {
	case "nager", "builtin":
	case "file":
		if c.Calendar.DatasetFile == "" {
			return fmt.Errorf("calendar.dataset_file is required for file type")
		}
	default:
		return fmt.Errorf("calendar.type must be 'nager', 'builtin' or 'file', got '%s'", c.Calendar.Type)
	}
	if c.Calendar.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Calendar.CacheTTL); err != nil {
			return fmt.Errorf("calendar.cache_ttl: %w", err)
		}
	}

	// Validate Daemon config
	if c.Daemon.DailyTime != "" {
		if _, _, ok := parseClock(c.Daemon.DailyTime); !ok {
			return fmt.Errorf("daemon.daily_time must be HH:MM, got '%s'", c.Daemon.DailyTime)
		}
	}

	return nil
}

// GetCountry returns the configured country code, lower case
func (c *CalculatorConfig) GetCountry() string {
	if c.Country == "" {
		return defaultCountry
	}
	return strings.ToLower(c.Country)
}

// GetUnit returns the default interval unit
func (c *CalculatorConfig) GetUnit() resolver.Unit {
	unit, err := resolver.ParseUnit(c.Unit)
	if err != nil {
		return resolver.UnitWeekdays
	}
	return unit
}

// GetDateFormat returns the display layout
func (c *CalculatorConfig) GetDateFormat() string {
	if c.DateFormat == "" {
		return display.DefaultLayout
	}
	return c.DateFormat
}

// GetMergePolicy returns the collision policy
func (c *CalculatorConfig) GetMergePolicy() holiday.MergePolicy {
	if c.MergePolicy == "" {
		return holiday.MergeLastWins
	}
	return holiday.MergePolicy(c.MergePolicy)
}

// GetType returns the dataset provider type. Default: nager
func (c *CalendarConfig) GetType() string {
	if c.Type == "" {
		return "nager"
	}
	return strings.ToLower(c.Type)
}

// GetCacheTTL returns cache TTL duration
func (c *CalendarConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL == "" {
		return defaultCacheTTL
	}
	duration, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return defaultCacheTTL
	}
	return duration
}

// GetDailyTime returns the configured daily refresh time
// Returns hour and minute (0-23, 0-59). Default: 03:00
func (c *DaemonConfig) GetDailyTime() (hour, minute int) {
	h, m, ok := parseClock(c.DailyTime)
	if !ok {
		return 3, 0
	}
	return h, m
}

func parseClock(s string) (hour, minute int, ok bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Calendar.APIURL = os.ExpandEnv(c.Calendar.APIURL)
	c.Calendar.Proxy = os.ExpandEnv(c.Calendar.Proxy)
	c.Calendar.CacheFile = os.ExpandEnv(c.Calendar.CacheFile)
	c.Calendar.DatasetFile = os.ExpandEnv(c.Calendar.DatasetFile)
	c.Daemon.LogFile = os.ExpandEnv(c.Daemon.LogFile)
}
