package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"spain-energy/internal/model"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultPort   = 8080
	DefaultMarket = "omie_da"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Markets MarketsConfig `yaml:"markets"`

	// Optional: load battery parameters from a separate YAML (e.g. examples/batteries/*.yaml).
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile string          `yaml:"battery_file"`
	Battery     BatteryConfig   `yaml:"battery"`
	Schedule    ScheduleConfig  `yaml:"schedule"`
	PPA         PPAConfig       `yaml:"ppa"`
	Inflation   InflationConfig `yaml:"inflation"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Release        bool     `yaml:"release"`
	BatteryDir     string   `yaml:"battery_dir"`
}

type MarketsConfig struct {
	Default string `yaml:"default"`
	// Forecasts lists the markets whose prices are inflated.
	Forecasts []string `yaml:"forecasts"`
}

type BatteryConfig struct {
	Name          string  `yaml:"name"`
	PowerMW       float64 `yaml:"power_mw"`
	DurationHours float64 `yaml:"duration_hours"`
	Efficiency    float64 `yaml:"efficiency"`
}

type ScheduleConfig struct {
	Cycle1 *strategy.Cycle `yaml:"cycle_1"`
	Cycle2 *strategy.Cycle `yaml:"cycle_2"`
}

type PPAConfig struct {
	StrikePrice float64 `yaml:"strike_price"`
}

type InflationConfig struct {
	Rate float64 `yaml:"rate"`
	// BaseDate is YYYY-MM-DD; empty means the day the analysis runs.
	BaseDate string `yaml:"base_date"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults("")
	return c
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// If battery_file is set, load it and merge in any explicit overrides from c.Battery.
	if c.BatteryFile != "" {
		loaded, err := LoadBatteryFile(resolve(path, c.BatteryFile))
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	c.applyDefaults(path)
	return &c, nil
}

func (c *Config) applyDefaults(path string) {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Driver == DriverSQLite {
		if c.Storage.DSN == "" {
			c.Storage.DSN = "data/spain_energy.db"
		}
		if path != "" {
			c.Storage.DSN = resolve(path, c.Storage.DSN)
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.BatteryDir != "" && path != "" {
		c.Server.BatteryDir = resolve(path, c.Server.BatteryDir)
	}
	if c.Markets.Default == "" {
		c.Markets.Default = DefaultMarket
	}
}

// resolve interprets a relative path against the config file directory,
// falling back to the path as given (relative to cwd) when that doesn't exist.
func resolve(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	if _, err := os.Stat(filepath.Dir(cand)); err == nil {
		return cand
	}
	return p
}

// ApplyEnv overlays the API environment variables: API_PORT, API_ENV and
// BATTERY_DIR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if os.Getenv("API_ENV") == "production" {
		c.Server.Release = true
	}
	if v := os.Getenv("BATTERY_DIR"); v != "" {
		c.Server.BatteryDir = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage.dsn is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.PPA.StrikePrice < 0 {
		return errors.New("ppa.strike_price must be >= 0")
	}
	if _, err := c.Inflation.Model(); err != nil {
		return err
	}
	// Battery and schedule are optional as a pair; when one is set both must be valid.
	if c.Battery != (BatteryConfig{}) || c.Schedule.Cycle1 != nil {
		if err := c.Battery.ToSpec().Validate(); err != nil {
			return fmt.Errorf("battery config invalid: %w", err)
		}
		if _, err := strategy.NewScheduleStrategy(strategy.ScheduleParams{
			Cycles:        c.Schedule.Cycles(),
			DurationHours: c.Battery.DurationHours,
		}); err != nil {
			return fmt.Errorf("schedule config invalid: %w", err)
		}
	}
	return nil
}

func (b BatteryConfig) ToSpec() model.BatterySpec {
	return model.BatterySpec{
		PowerMW:       b.PowerMW,
		DurationHours: b.DurationHours,
		Efficiency:    b.Efficiency,
	}
}

// Cycles returns the configured cycles in order.
func (s ScheduleConfig) Cycles() []strategy.Cycle {
	var out []strategy.Cycle
	if s.Cycle1 != nil {
		out = append(out, *s.Cycle1)
	}
	if s.Cycle2 != nil {
		out = append(out, *s.Cycle2)
	}
	return out
}

// Model parses the base date. A zero BaseDate is left for the caller to
// resolve to the current day.
func (i InflationConfig) Model() (model.Inflation, error) {
	if i.Rate <= -1 {
		return model.Inflation{}, errors.New("inflation.rate must be > -1")
	}
	out := model.Inflation{Rate: i.Rate}
	if strings.TrimSpace(i.BaseDate) != "" {
		d, err := timeutil.ParseDate(strings.TrimSpace(i.BaseDate))
		if err != nil {
			return model.Inflation{}, fmt.Errorf("inflation.base_date: %w", err)
		}
		out.BaseDate = d
	}
	return out, nil
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

// LoadBatteryFile reads a battery preset of the form `battery: {...}`.
func LoadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Battery, nil
}

// MergeBattery overlays non-zero fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.PowerMW != 0 {
		out.PowerMW = override.PowerMW
	}
	if override.DurationHours != 0 {
		out.DurationHours = override.DurationHours
	}
	if override.Efficiency != 0 {
		out.Efficiency = override.Efficiency
	}
	return out
}
