package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectOptions bounds how long startup waits for the newsletter database.
type ConnectOptions struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultConnectOptions fits a database container starting alongside the
// service.
var DefaultConnectOptions = ConnectOptions{Attempts: 10, Backoff: 2 * time.Second}

// ConnectPostgres opens the subscriber database and migrates the given
// models. Failed attempts are retried with a linearly growing backoff until
// opts.Attempts is used up or ctx is done, so a shutdown during startup is
// not held up by an unreachable database.
func ConnectPostgres(ctx context.Context, dsn string, opts ConnectOptions, logger *zap.Logger, autoMigrateModels ...interface{}) (*gorm.DB, error) {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			if sqlDB, poolErr := db.DB(); poolErr == nil {
				// Signups are rare; a small pool is plenty.
				sqlDB.SetMaxOpenConns(5)
				sqlDB.SetMaxIdleConns(1)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			if len(autoMigrateModels) > 0 {
				if err := db.WithContext(ctx).AutoMigrate(autoMigrateModels...); err != nil {
					return nil, fmt.Errorf("migrate subscriber schema: %w", err)
				}
			}
			logger.Info("Connected to subscriber database", zap.Int("attempt", attempt))
			return db, nil
		}

		logger.Warn("Subscriber database unreachable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", opts.Attempts),
			zap.Error(err),
		)
		if attempt == opts.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to subscriber database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * opts.Backoff):
		}
	}

	return nil, fmt.Errorf("subscriber database unreachable after %d attempts: %w", opts.Attempts, err)
}
