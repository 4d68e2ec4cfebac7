// Package config loads the environment-variable contract described in
// the project's external interfaces: bind address, database location,
// backup schedule, and the SRS tuning knobs.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every externally tunable parameter for the core engine.
// None of it is specific to the HTTP/UI layer; that layer reads this
// same struct rather than re-parsing the environment itself.
type Config struct {
	BindInterface string
	BindPort      int

	DatabaseURL string

	BackupEnabled bool
	BackupPath    string
	BackupHour    int

	SRSDefaultEase float64
	SRSMinimumEase float64
	SRSEasyBonus   float64
	SRSDayEndHour  int
	SRSReviewOrder string
}

// Load reads configuration from the environment, first loading a
// ".env" file in the current directory if one exists. Missing .env is
// not an error; missing required variables fall back to documented
// defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not load .env file: %v", err)
	}

	cfg := &Config{
		BindInterface:  getEnvOrDefault("BIND_INTERFACE", "127.0.0.1"),
		BindPort:       mustInt(getEnvOrDefault("BIND_PORT", "3030")),
		DatabaseURL:    resolveDatabaseURL(),
		BackupEnabled:  mustBool(getEnvOrDefault("BACKUP_ENABLED", "false")),
		BackupPath:     getEnvOrDefault("BACKUP_PATH", "./backups"),
		BackupHour:     mustInt(getEnvOrDefault("BACKUP_HOUR", "4")),
		SRSDefaultEase: mustFloat(getEnvOrDefault("SRS_DEFAULT_EASE", "2.5")),
		SRSMinimumEase: mustFloat(getEnvOrDefault("SRS_MINIMUM_EASE", "1.3")),
		SRSEasyBonus:   mustFloat(getEnvOrDefault("SRS_EASY_BONUS", "1.3")),
		SRSDayEndHour:  mustInt(getEnvOrDefault("SRS_DAY_END_HOUR", "4")),
		SRSReviewOrder: getEnvOrDefault("SRS_REVIEW_ORDER", "DueTime"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveDatabaseURL honors the legacy SQLITE_DB_NAME variable, which
// older deployments still set, rewriting it into a sqlite:// URL.
func resolveDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if name := os.Getenv("SQLITE_DB_NAME"); name != "" {
		return "sqlite://" + name
	}
	return "sqlite://puzzles.sqlite"
}

func (c *Config) validate() error {
	if c.SRSMinimumEase <= 0 {
		return fmt.Errorf("config: SRS_MINIMUM_EASE must be positive, got %v", c.SRSMinimumEase)
	}
	if c.SRSDefaultEase < c.SRSMinimumEase {
		return fmt.Errorf("config: SRS_DEFAULT_EASE (%v) must be >= SRS_MINIMUM_EASE (%v)",
			c.SRSDefaultEase, c.SRSMinimumEase)
	}
	if c.SRSDayEndHour < 0 || c.SRSDayEndHour > 23 {
		return fmt.Errorf("config: SRS_DAY_END_HOUR must be in [0,23], got %d", c.SRSDayEndHour)
	}
	switch strings.ToLower(c.SRSReviewOrder) {
	case "duetime", "puzzlerating", "random":
	default:
		return fmt.Errorf("config: unrecognized SRS_REVIEW_ORDER %q", c.SRSReviewOrder)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("config: invalid integer value %q", s)
	}
	return v
}

func mustFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("config: invalid float value %q", s)
	}
	return v
}

func mustBool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("config: invalid boolean value %q", s)
	}
	return v
}
