package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	Timezone    string `env:"TIMEZONE" envDefault:"Local"`

	JWTSecret    string `env:"JWT_SECRET,required" validate:"required,min=32"`
	ResendAPIKey string `env:"RESEND_API_KEY"      validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"         validate:"required_if=Env production,required_if=Env staging"`

	BookingAPIURL     string `env:"BOOKING_API_URL,required" validate:"required,url"`
	BookingTimeoutSec int    `env:"BOOKING_TIMEOUT_SEC" envDefault:"30" validate:"min=1,max=300"`

	AdmissionURL              string `env:"ADMISSION_URL,required"           validate:"required,url"`
	AdmissionQueueGroup       string `env:"ADMISSION_QUEUE_GROUP"            envDefault:"default"`
	AdmissionPollIntervalSec  int    `env:"ADMISSION_POLL_INTERVAL_SEC"      envDefault:"10" validate:"min=1,max=600"`
	AdmissionRetryIntervalSec int    `env:"ADMISSION_RETRY_INTERVAL_SEC"     envDefault:"3"  validate:"min=1,max=600"`
	AdmissionRefreshBufferSec int    `env:"ADMISSION_REFRESH_BUFFER_SEC"     envDefault:"60" validate:"min=0,max=3600"`

	MaintenanceCron           string `env:"MAINTENANCE_CRON"            envDefault:"0 3 * * *" validate:"required"`
	LogRetentionDays          int    `env:"LOG_RETENTION_DAYS"          envDefault:"30" validate:"min=1"`
	NotificationRetentionDays int    `env:"NOTIFICATION_RETENTION_DAYS" envDefault:"30" validate:"min=1"`
	CatchUpOnStart            bool   `env:"CATCH_UP_ON_START"           envDefault:"true"`
}

func Load() (*Config, error) {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location is the zone staggered schedules are computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) BookingTimeout() time.Duration {
	return time.Duration(c.BookingTimeoutSec) * time.Second
}

func (c *Config) AdmissionPollInterval() time.Duration {
	return time.Duration(c.AdmissionPollIntervalSec) * time.Second
}

func (c *Config) AdmissionRetryInterval() time.Duration {
	return time.Duration(c.AdmissionRetryIntervalSec) * time.Second
}

func (c *Config) AdmissionRefreshBuffer() time.Duration {
	return time.Duration(c.AdmissionRefreshBufferSec) * time.Second
}

// DatabaseConfig is the subset the operator CLI needs.
type DatabaseConfig struct {
	Env         string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	Timezone    string `env:"TIMEZONE" envDefault:"Local"`
}

func LoadDatabase() (*DatabaseConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &DatabaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
