package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a printwatch run.
type Config struct {
	Printers PrintersConfig `yaml:"printers"`
	Timezone string         `yaml:"timezone"`
	CSV      CSVConfig      `yaml:"csv"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Postgres PostgresConfig `yaml:"postgres"`
	LogLevel string         `yaml:"log_level"`
}

// PrintersConfig holds printer polling configuration.
type PrintersConfig struct {
	ListPath       string `yaml:"list_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageSize       int    `yaml:"page_size"`
	MaxRetries     int    `yaml:"max_retries"`
	FetchWorkers   int    `yaml:"fetch_workers"`
}

// Timeout returns the per-request printer timeout as a duration.
func (c PrintersConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CSVConfig holds the local CSV sink configuration.
type CSVConfig struct {
	Path string `yaml:"path"`
}

// SheetsConfig holds the Google Sheets sink configuration.
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsPath string `yaml:"credentials_path"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the Sheets API request timeout as a duration.
func (c SheetsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PostgresConfig holds the optional Postgres sink configuration.
type PostgresConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Defaults
	if cfg.Printers.ListPath == "" {
		cfg.Printers.ListPath = "printers.txt"
	}
	if cfg.Printers.TimeoutSeconds == 0 {
		cfg.Printers.TimeoutSeconds = 10
	}
	if cfg.Printers.PageSize == 0 {
		cfg.Printers.PageSize = 50
	}
	if cfg.Printers.MaxRetries == 0 {
		cfg.Printers.MaxRetries = 3
	}
	if cfg.Printers.FetchWorkers == 0 {
		cfg.Printers.FetchWorkers = 4
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Los_Angeles"
	}
	if cfg.CSV.Path == "" {
		cfg.CSV.Path = "print_logs.csv"
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Sheet1"
	}
	if cfg.Sheets.TimeoutSeconds == 0 {
		cfg.Sheets.TimeoutSeconds = 30
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars under the scheduler.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PRINTWATCH_PRINTERS"); v != "" {
		cfg.Printers.ListPath = v
	}
	if v := os.Getenv("PRINTWATCH_CSV_PATH"); v != "" {
		cfg.CSV.Path = v
	}
	if v := os.Getenv("PRINTWATCH_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("SHEETS_CREDENTIALS_PATH"); v != "" {
		cfg.Sheets.CredentialsPath = v
	}
	if v := os.Getenv("SHEETS_SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("SHEETS_SHEET_NAME"); v != "" {
		cfg.Sheets.SheetName = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DatabaseURL = v
		if !cfg.Postgres.Enabled {
			cfg.Postgres.Enabled = true
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Location resolves the configured timezone. The zone is fixed for the
// whole run; a bad zone name is a setup error.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
