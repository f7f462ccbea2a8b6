package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Deployment modes
const (
	ModeEmployee = "employee" // one scope per named employee
	ModeRole     = "role"     // one shared scope, anonymous performers
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the runtime settings read from CLOCKIN_* environment variables
type Config struct {
	DBPath      string        `env:"CLOCKIN_DB_PATH"`
	Mode        string        `env:"CLOCKIN_MODE" envDefault:"employee"`
	LogLevel    string        `env:"CLOCKIN_LOG_LEVEL" envDefault:"warn"`
	LogFormat   string        `env:"CLOCKIN_LOG_FORMAT" envDefault:"text"`
	BusyTimeout time.Duration `env:"CLOCKIN_BUSY_TIMEOUT" envDefault:"5s"`
	TxRetries   int           `env:"CLOCKIN_TX_RETRIES" envDefault:"3"`
	PinCost     int           `env:"CLOCKIN_PIN_COST" envDefault:"10"`
	AdminToken  string        `env:"CLOCKIN_ADMIN_TOKEN"`
	Timezone    string        `env:"CLOCKIN_TIMEZONE" envDefault:"Local"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return Config{}, fmt.Errorf("failed to get database path: %w", err)
		}
		cfg.DBPath = path
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges
func (c Config) Validate() error {
	switch c.Mode {
	case ModeEmployee, ModeRole:
	default:
		return fmt.Errorf("%w: CLOCKIN_MODE must be %q or %q, got %q", ErrInvalidConfig, ModeEmployee, ModeRole, c.Mode)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: CLOCKIN_LOG_FORMAT must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.TxRetries < 0 {
		return fmt.Errorf("%w: CLOCKIN_TX_RETRIES must not be negative", ErrInvalidConfig)
	}
	if c.PinCost < 4 || c.PinCost > 31 {
		return fmt.Errorf("%w: CLOCKIN_PIN_COST must be between 4 and 31", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: CLOCKIN_TIMEZONE: %v", ErrInvalidConfig, err)
	}
	return loc, nil
}

// RoleMode reports whether the deployment uses the shared role scope
func (c Config) RoleMode() bool {
	return c.Mode == ModeRole
}

// defaultDBPath returns ~/.clockin/clockin.db
func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".clockin", "clockin.db"), nil
}
