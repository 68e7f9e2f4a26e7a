/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"referral-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// env mirrors the process environment; Load maps it onto models.Config.
type env struct {
	Backend         string        `envconfig:"STORE_BACKEND" default:"sqlite"`
	DatabasePath    string        `envconfig:"DATABASE_PATH" default:"rewards.db"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"30s"`
	PingTimeout     time.Duration `envconfig:"DB_PING_TIMEOUT" default:"5s"`
	BusyTimeout     time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"5s"`

	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"3s"`

	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	AllowedOrigins string        `envconfig:"HTTP_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`

	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"@every 1h"`

	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	RestaurantsFile string `envconfig:"RESTAURANTS_FILE" default:"restaurants.yaml"`
}

// LoadDotEnv reads .env from the working directory if present. A missing file
// is not an error; variables can come from the shell or the container.
func LoadDotEnv() error {
	return godotenv.Load()
}

// Load reads the configuration from the environment and validates it.
func Load() (*models.Config, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}

	cfg := &models.Config{
		Backend: strings.ToLower(strings.TrimSpace(e.Backend)),
		Database: models.DatabaseConfig{
			Path:            e.DatabasePath,
			URL:             e.DatabaseURL,
			MaxOpenConns:    e.MaxOpenConns,
			MaxIdleConns:    e.MaxIdleConns,
			ConnMaxLifetime: e.ConnMaxLifetime,
			ConnMaxIdleTime: e.ConnMaxIdleTime,
			PingTimeout:     e.PingTimeout,
			BusyTimeout:     e.BusyTimeout,
		},
		Ledger: models.LedgerConfig{
			LockTimeout: e.LockTimeout,
		},
		Server: models.ServerConfig{
			Addr:           e.HTTPAddr,
			AllowedOrigins: splitList(e.AllowedOrigins),
			ReadTimeout:    e.ReadTimeout,
			WriteTimeout:   e.WriteTimeout,
		},
		Jobs: models.JobsConfig{
			ReconcileSchedule: strings.TrimSpace(e.ReconcileSchedule),
		},
		LogLevel:        e.LogLevel,
		RestaurantsFile: e.RestaurantsFile,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Backend {
	case BackendSQLite:
		if cfg.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q, expected %q or %q", cfg.Backend, BackendSQLite, BackendPostgres)
	}
	if cfg.Ledger.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive, got %v", cfg.Ledger.LockTimeout)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
