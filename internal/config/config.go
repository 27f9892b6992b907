// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"go-school-library/internal/lifecycle"
	"go-school-library/pkg/clock"
)

// Config holds every tunable of the library service.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"production"`
	Port       string `env:"PORT" envDefault:"3000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	DBLogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"` // silent, error, warn or info
	Timezone   string `env:"TIMEZONE" envDefault:"Asia/Jakarta"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"simpus"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"your-super-secret-key-change-in-production"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Aturan peminjaman
	LoanDays       int   `env:"LOAN_DAYS" envDefault:"7"`
	ExtensionDays  int   `env:"EXTENSION_DAYS" envDefault:"7"`
	GraceDays      int   `env:"GRACE_DAYS" envDefault:"7"`
	FirstFine      int64 `env:"FIRST_FINE" envDefault:"15000"`
	FineIncrement  int64 `env:"FINE_INCREMENT" envDefault:"2000"`
	FineCap        int64 `env:"FINE_CAP" envDefault:"0"`
	MaxActiveLoans int   `env:"MAX_ACTIVE_LOANS" envDefault:"3"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"24h"`
	SweepOnStart  bool          `env:"SWEEP_ON_START" envDefault:"true"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@sekolah.sch.id"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
}

// Load reads the optional .env files and then parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return Parse()
}

// Parse builds a Config from environment variables only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.LoanDays <= 0:
		return errors.New("LOAN_DAYS must be positive")
	case c.ExtensionDays <= 0:
		return errors.New("EXTENSION_DAYS must be positive")
	case c.GraceDays <= 0:
		return errors.New("GRACE_DAYS must be positive")
	case c.FirstFine < 0 || c.FineIncrement < 0 || c.FineCap < 0:
		return errors.New("fine amounts must not be negative")
	case c.MaxActiveLoans <= 0:
		return errors.New("MAX_ACTIVE_LOANS must be positive")
	case c.SweepInterval <= 0:
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL, or a key/value DSN assembled from the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.Timezone,
	)
}

// Policy returns the borrowing rules configured for this deployment.
func (c *Config) Policy() lifecycle.Policy {
	return lifecycle.Policy{
		LoanDays:      c.LoanDays,
		ExtensionDays: c.ExtensionDays,
		GraceDays:     c.GraceDays,
		FirstFine:     c.FirstFine,
		FineIncrement: c.FineIncrement,
		FineCap:       c.FineCap,
	}
}

func (c *Config) Location() *time.Location {
	return clock.LoadLocation(c.Timezone)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
