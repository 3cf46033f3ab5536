package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/username/workdays-calculator/internal/holiday"
	"github.com/username/workdays-calculator/internal/resolver"
)

const sampleConfig = `
calculator:
  country: NZ
  min_year: 2024
  max_year: 2026
  unit: days
  merge_policy: concatenate
  region:
    exclude_regional: true
    codes: ["NZ-AUK", "NZ-W*"]
  intervals:
    - {id: 1, days: 5, sort: 2}
    - {id: 2, days: 10, sort: 1, unit: weekdays}
  extra_holidays:
    - id: 7
      title: Office closed
      type: range
      from: 2024-12-24
      to: "2025-01-03"
      recurring: true
calendar:
  type: nager
  proxy: http://${TEST_PROXY_HOST}:3128
  cache_file: holidays.cache
  cache_ttl: 12h
daemon:
  daily_time: "04:30"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_PROXY_HOST", "proxy.internal")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	calc := cfg.Calculator
	if calc.GetCountry() != "nz" {
		t.Errorf("GetCountry() = %q, want nz", calc.GetCountry())
	}
	if calc.GetUnit() != resolver.UnitDays {
		t.Errorf("GetUnit() = %q, want days", calc.GetUnit())
	}
	if calc.GetMergePolicy() != holiday.MergeConcatenate {
		t.Errorf("GetMergePolicy() = %q, want concatenate", calc.GetMergePolicy())
	}
	if len(calc.Region.Codes) != 2 || !calc.Region.ExcludeRegional {
		t.Errorf("Region = %+v, want two codes excluding regional", calc.Region)
	}

	if len(calc.Intervals) != 2 {
		t.Fatalf("Intervals = %d, want 2", len(calc.Intervals))
	}
	want := resolver.Interval{ID: 2, Offset: 10, Sort: 1, Unit: resolver.UnitWeekdays}
	if calc.Intervals[1] != want {
		t.Errorf("Intervals[1] = %+v, want %+v", calc.Intervals[1], want)
	}

	if len(calc.ExtraHolidays) != 1 {
		t.Fatalf("ExtraHolidays = %d, want 1", len(calc.ExtraHolidays))
	}
	extra := calc.ExtraHolidays[0]
	if extra.From != "2024-12-24" || extra.To != "2025-01-03" {
		t.Errorf("ExtraHolidays[0] from/to = %q/%q, want 2024-12-24/2025-01-03", extra.From, extra.To)
	}
	if _, err := holiday.ParseSource(extra); err != nil {
		t.Errorf("ParseSource() error = %v", err)
	}

	if cfg.Calendar.Proxy != "http://proxy.internal:3128" {
		t.Errorf("Proxy = %q, want expanded", cfg.Calendar.Proxy)
	}
	if cfg.Calendar.GetCacheTTL() != 12*time.Hour {
		t.Errorf("GetCacheTTL() = %v, want 12h", cfg.Calendar.GetCacheTTL())
	}
	if h, m := cfg.Daemon.GetDailyTime(); h != 4 || m != 30 {
		t.Errorf("GetDailyTime() = %d:%d, want 4:30", h, m)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Calculator: CalculatorConfig{MinYear: 2024, MaxYear: 2025}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"missing years", func(c *Config) { c.Calculator.MinYear = 0 }, "min_year"},
		{"inverted years", func(c *Config) { c.Calculator.MaxYear = 2020 }, "before"},
		{"too many years", func(c *Config) { c.Calculator.MaxYear = 2100 }, "limited"},
		{"bad country", func(c *Config) { c.Calculator.Country = "nzl" }, "country"},
		{"bad unit", func(c *Config) { c.Calculator.Unit = "hours" }, "unit"},
		{"bad merge policy", func(c *Config) { c.Calculator.MergePolicy = "first_wins" }, "merge_policy"},
		{"bad region pattern", func(c *Config) { c.Calculator.Region.Codes = []string{"NZ-[A"} }, "region"},
		{"bad calendar type", func(c *Config) { c.Calendar.Type = "isdayoff" }, "calendar.type"},
		{"file without dataset", func(c *Config) { c.Calendar.Type = "file" }, "dataset_file"},
		{"bad cache ttl", func(c *Config) { c.Calendar.CacheTTL = "daily" }, "cache_ttl"},
		{"bad daily time", func(c *Config) { c.Daemon.DailyTime = "25:00" }, "daily_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	var cfg Config

	if got := cfg.Calculator.GetCountry(); got != "nz" {
		t.Errorf("GetCountry() = %q, want nz", got)
	}
	if got := cfg.Calculator.GetUnit(); got != resolver.UnitWeekdays {
		t.Errorf("GetUnit() = %q, want weekdays", got)
	}
	if got := cfg.Calculator.GetDateFormat(); got != "02/01/2006" {
		t.Errorf("GetDateFormat() = %q, want 02/01/2006", got)
	}
	if got := cfg.Calculator.GetMergePolicy(); got != holiday.MergeLastWins {
		t.Errorf("GetMergePolicy() = %q, want last_wins", got)
	}
	if got := cfg.Calendar.GetType(); got != "nager" {
		t.Errorf("GetType() = %q, want nager", got)
	}
	if got := cfg.Calendar.GetCacheTTL(); got != 24*time.Hour {
		t.Errorf("GetCacheTTL() = %v, want 24h", got)
	}
	if h, m := cfg.Daemon.GetDailyTime(); h != 3 || m != 0 {
		t.Errorf("GetDailyTime() = %d:%d, want 3:0", h, m)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) expected error, got nil")
	}

	path := writeConfig(t, "calculator:\n  min_year: 2024\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("Load() error = %v, want invalid config", err)
	}
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	changed := make(chan *Config, 4)
	cfg, err := Watch(path, func(c *Config) { changed <- c }, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if cfg.Calculator.MaxYear != 2026 {
		t.Fatalf("MaxYear = %d, want 2026", cfg.Calculator.MaxYear)
	}

	updated := strings.Replace(sampleConfig, "max_year: 2026", "max_year: 2027", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Calculator.MaxYear == 2027 {
				return
			}
		case <-timeout:
			t.Fatal("config change was not observed")
		}
	}
}
