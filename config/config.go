// Package config loads runtime settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"sola-lending/library"
	"sola-lending/library/credential"
)

// Config holds all configuration for the application
type Config struct {
	DataDir       string
	CatalogueFile string
	LoanFile      string
	AccountFile   string

	SettleDelay time.Duration
	BcryptCost  int

	LogLevel  slog.Level
	LogFormat string

	AdminPasswordHash string
	FineSchedule      string

	// EnvFile is the .env file that was read, empty when none was found.
	EnvFile string
}

// Load reads configuration from the first env file that exists (".env" when
// none are given) and the environment. Environment variables win over the
// file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	env := map[string]string{}
	var loaded string
	for _, name := range envFiles {
		vars, err := godotenv.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		env, loaded = vars, name
		break
	}
	get := func(key, defaultValue string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
		return defaultValue
	}

	cfg := &Config{
		DataDir:           get("SOLA_DATA_DIR", "."),
		CatalogueFile:     get("SOLA_CATALOGUE_FILE", "CatalogueItems.csv"),
		LoanFile:          get("SOLA_LOAN_FILE", "BorrowedItems.csv"),
		AccountFile:       get("SOLA_ACCOUNT_FILE", "UserData.csv"),
		LogFormat:         strings.ToLower(get("SOLA_LOG_FORMAT", "text")),
		AdminPasswordHash: get("SOLA_ADMIN_PASSWORD_HASH", ""),
		FineSchedule:      get("SOLA_FINE_SCHEDULE", "@daily"),
		EnvFile:           loaded,
	}

	var err error
	if cfg.SettleDelay, err = time.ParseDuration(get("SOLA_SETTLE_DELAY", "0s")); err != nil || cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("invalid SOLA_SETTLE_DELAY: %q", get("SOLA_SETTLE_DELAY", "0s"))
	}
	if cfg.BcryptCost, err = strconv.Atoi(get("SOLA_BCRYPT_COST", strconv.Itoa(credential.DefaultCost))); err != nil {
		return nil, fmt.Errorf("invalid SOLA_BCRYPT_COST: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("SOLA_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid SOLA_LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid SOLA_LOG_FORMAT: '%s' (must be 'text' or 'json')", cfg.LogFormat)
	}
	if _, err := cron.ParseStandard(cfg.FineSchedule); err != nil {
		return nil, fmt.Errorf("invalid SOLA_FINE_SCHEDULE: %w", err)
	}
	return cfg, nil
}

// Paths resolves the three flat files; relative names are taken from DataDir.
func (c *Config) Paths() library.Paths {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(c.DataDir, name)
	}
	return library.Paths{
		Catalogue: resolve(c.CatalogueFile),
		Loans:     resolve(c.LoanFile),
		Accounts:  resolve(c.AccountFile),
	}
}

// NewLogger builds the slog logger described by the config.
func NewLogger(c *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
