package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"referral-ledger-go/internal/api"
	"referral-ledger-go/internal/config"
	"referral-ledger-go/internal/database"
	"referral-ledger-go/internal/ledger"
	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/postgres"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via export, docker, etc.
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

type Services struct {
	Store  store.Store
	Engine *ledger.Service
	Ledger *api.LedgerService
}

func InitializeLogger(level string) (*zap.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			log.Printf("Unknown log level %q, using info\n", level)
		} else {
			zapCfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStore opens the backend named by cfg.Backend and brings its
// schema up to date.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		svc, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.BackendPostgres:
		svc, err := postgres.NewService(ctx, cfg.Database, cfg.Ledger.LockTimeout)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	st, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := ledger.NewService(st, ledger.WithLockTimeout(cfg.Ledger.LockTimeout))
	zap.L().Info("Ledger engine ready",
		zap.String("backend", cfg.Backend),
		zap.Duration("lock_timeout", cfg.Ledger.LockTimeout))

	return &Services{
		Store:  st,
		Engine: engine,
		Ledger: api.NewLedgerService(engine, st),
	}, nil
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
