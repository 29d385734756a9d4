package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/conferly.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	// Scan-station client settings, read by cmd/scan.
	APIBaseURL           string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	AllowOfflineFallback bool          `env:"ALLOW_OFFLINE_FALLBACK" envDefault:"false"`

	// Bootstrap admin account, created on startup if no admins exist.
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`

	// Per-IP rate limit for the public check-in endpoints.
	CheckinRPS   float64 `env:"CHECKIN_RPS" envDefault:"5"`
	CheckinBurst int     `env:"CHECKIN_BURST" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
