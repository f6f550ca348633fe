package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sim"
	"gopkg.in/yaml.v3"
)

// Config represents the complete trader configuration
type Config struct {
	Database    DatabaseConfig          `json:"database" yaml:"database"`
	Ledger      LedgerConfig            `json:"ledger" yaml:"ledger"`
	Simulator   SimulatorConfig         `json:"simulator" yaml:"simulator"`
	Instruments []market.InstrumentSeed `json:"instruments" yaml:"instruments"`
	Journal     JournalConfig           `json:"journal" yaml:"journal"`
	Log         LogConfig               `json:"log" yaml:"log"`
}

// DatabaseConfig selects and configures the store
type DatabaseConfig struct {
	Driver      string `json:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN         string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	User        string `json:"user,omitempty" yaml:"user,omitempty"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode     string `json:"sslmode,omitempty" yaml:"sslmode,omitempty"`
	MaxConns    int    `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"` // e.g. "5s"
}

// LedgerConfig contains account and trade settings
type LedgerConfig struct {
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
	Currency        string  `json:"currency" yaml:"currency"`
	TxTimeout       string  `json:"tx_timeout" yaml:"tx_timeout"` // e.g. "5s"
}

// SimulatorConfig contains price simulation parameters
type SimulatorConfig struct {
	Interval string  `json:"interval" yaml:"interval"` // e.g. "5s", "1m"
	Model    string  `json:"model" yaml:"model"`       // "lognormal" or "random_walk"
	MinPrice float64 `json:"min_price" yaml:"min_price"`
	Seed     uint64  `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 seeds from the clock
}

// JournalConfig contains equity curve output; an empty path disables it
type JournalConfig struct {
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// parseDuration treats an empty string as "use the default"
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// BusyTimeoutDuration converts busy_timeout to a time.Duration
func (d DatabaseConfig) BusyTimeoutDuration() (time.Duration, error) {
	return parseDuration("database.busy_timeout", d.BusyTimeout)
}

// TxTimeoutDuration converts tx_timeout to a time.Duration
func (l LedgerConfig) TxTimeoutDuration() (time.Duration, error) {
	return parseDuration("ledger.tx_timeout", l.TxTimeout)
}

// IntervalDuration converts interval to a time.Duration
func (s SimulatorConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("simulator.interval", s.Interval)
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres'")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	if _, err := c.Database.BusyTimeoutDuration(); err != nil {
		return err
	}

	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("ledger.starting_balance must not be negative")
	}
	if c.Ledger.Currency == "" {
		return fmt.Errorf("ledger.currency is required")
	}
	if _, err := c.Ledger.TxTimeoutDuration(); err != nil {
		return err
	}

	interval, err := c.Simulator.IntervalDuration()
	if err != nil {
		return err
	}
	if interval == 0 {
		return fmt.Errorf("simulator.interval is required")
	}
	if _, err := sim.ModelByName(c.Simulator.Model); err != nil {
		return fmt.Errorf("simulator.model: %w", err)
	}
	if c.Simulator.MinPrice < 0 {
		return fmt.Errorf("simulator.min_price must not be negative")
	}

	seen := make(map[string]bool, len(c.Instruments))
	for i, seed := range c.Instruments {
		seed.Symbol = strings.ToUpper(seed.Symbol)
		if err := ledger.ValidateSeed(seed); err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if seen[seed.Symbol] {
			return fmt.Errorf("instruments[%d]: duplicate symbol %s", i, seed.Symbol)
		}
		seen[seed.Symbol] = true
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "./papertrader.db",
			BusyTimeout: "5s",
		},
		Ledger: LedgerConfig{
			StartingBalance: market.DefaultStartingBalance,
			Currency:        market.DefaultCurrency,
			TxTimeout:       "5s",
		},
		Simulator: SimulatorConfig{
			Interval: "5s",
			Model:    sim.ModelLognormal,
			MinPrice: market.MinPrice,
		},
		Instruments: append([]market.InstrumentSeed(nil), market.DefaultInstruments...),
		Journal: JournalConfig{
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LedgerSettings converts the ledger section for ledger.New.
func (c *Config) LedgerSettings() ledger.Config {
	timeout, _ := c.Ledger.TxTimeoutDuration()
	return ledger.Config{
		StartingBalance: c.Ledger.StartingBalance,
		Currency:        c.Ledger.Currency,
		TxTimeout:       timeout,
	}
}

// SimulatorSettings converts the simulator section for sim.New.
func (c *Config) SimulatorSettings() sim.Config {
	interval, _ := c.Simulator.IntervalDuration()
	return sim.Config{
		Interval: interval,
		MinPrice: c.Simulator.MinPrice,
		Model:    c.Simulator.Model,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
