package models

import "time"

// Config represents the application configuration
type Config struct {
	Backend         string
	Database        DatabaseConfig
	Ledger          LedgerConfig
	Server          ServerConfig
	Jobs            JobsConfig
	LogLevel        string
	RestaurantsFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// LedgerConfig holds engine settings
type LedgerConfig struct {
	LockTimeout time.Duration
}

// ServerConfig holds HTTP transport settings
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// JobsConfig holds background job settings
type JobsConfig struct {
	ReconcileSchedule string
}
