package leaderboard

import (
	"context"
	"fmt"

	"github.com/annel0/tower-stacker/internal/cache"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/logging"
)

// Open создаёт хранилище по имени бэкенда и, если задан Redis, оборачивает его кешем.
func Open(ctx context.Context, storage config.StorageConfig, cacheCfg config.CacheConfig) (Repository, error) {
	repo, err := openBackend(ctx, storage)
	if err != nil {
		return nil, err
	}

	if cacheCfg.Addr == "" {
		return repo, nil
	}

	rc, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:       cacheCfg.Addr,
		Password:   cacheCfg.Password,
		DB:         cacheCfg.DB,
		DefaultTTL: cacheCfg.TTL(),
	})
	if err != nil {
		// без кеша сервис работает, только медленнее
		logging.Warn("⚠️ Redis недоступен, рейтинг без кеша: %v", err)
		return repo, nil
	}
	return NewCachedRepo(repo, rc, cacheCfg.TTL()), nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch cfg.Backend {
	case "", "memory":
		logging.Info("🧠 Leaderboard в памяти (данные не сохраняются)")
		return NewMemoryRepo(), nil
	case "mongo":
		return NewMongoRepo(ctx, MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case "maria", "mysql":
		if cfg.Maria.DSN == "" {
			return nil, fmt.Errorf("storage.maria.dsn не задан")
		}
		return NewMariaRepo(ctx, cfg.Maria.DSN)
	case "badger":
		return NewBadgerRepo(cfg.Badger.Dir)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища: %q", cfg.Backend)
	}
}
