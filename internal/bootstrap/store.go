package bootstrap

import (
	"context"
	"fmt"

	"go-digital-inventory/internal/config"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenStore connects the backend named by cfg.StoreBackend and returns the
// store with a function that releases its connections.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (*repository.Store, func() error, error) {
	opts := database.Options{LogSQL: cfg.DBLogSQL, Log: log}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("store ready", zap.String("backend", cfg.StoreBackend), zap.String("addr", cfg.RedisAddr))
		return repository.NewRedisStore(client), client.Close, nil
	case config.BackendPostgres:
		db, err = database.ConnectPostgres(cfg.PostgresDSN(), opts)
	case config.BackendSQLite:
		db, err = database.ConnectSQLite(cfg.SQLitePath, opts)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, nil, err
	}

	// TODO: move to versioned migrations once the schema needs data backfills
	if err := repository.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrating schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	log.Info("store ready", zap.String("backend", cfg.StoreBackend))
	return repository.NewGormStore(db), sqlDB.Close, nil
}
