// File: cmd/server/providers.go
package main

import (
	"log"
	"time"

	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/platform/cache"
	"marketplace_backend/internal/platform/database"
	"marketplace_backend/internal/platform/logger"
	"marketplace_backend/internal/user"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDatabase opens Postgres and migrates the schema when DB_AUTO_MIGRATE is set.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		err = database.AutoMigrate(db, logger,
			&user.Profile{},
			&listing.Listing{},
			&listing.BusinessDetails{},
			&listing.FranchiseDetails{},
			&listing.InvestmentDetails{},
			&listing.ListingDocument{},
			&notification.Notification{},
		)
		if err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, err
		}
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

func provideRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	client, err := cache.NewRedisClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { cache.CloseRedis(client, logger) }, nil
}

// provideDraftStore picks Redis when REDIS_URL is configured and an
// in-process cache otherwise.
func provideDraftStore(client *redis.Client, logger *zap.Logger) draft.Store {
	if client == nil {
		logger.Warn("Draft autosave is using an in-memory store; drafts do not survive restarts")
		return draft.NewMemoryStore(10 * time.Minute)
	}
	return draft.NewRedisStore(client)
}

func provideAutosaver(store draft.Store, cfg *config.Config, logger *zap.Logger) *draft.Autosaver {
	return draft.NewAutosaver(store, cfg.DraftAutosaveDebounce, cfg.DraftTTL, logger)
}
