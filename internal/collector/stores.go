package collector

import (
	"context"
	"fmt"

	"dexcollector/config"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/storage/postgres"

	"github.com/redis/go-redis/v9"
)

// needsPostgres reports whether cfg requires a database connection.
func needsPostgres(cfg *config.Config) bool {
	return cfg.Cache.Backend == "postgres" || cfg.Collector.PersistCharts
}

// OpenHistoryStore builds the blob store selected by cfg.Cache.Backend. The
// returned close function releases connections owned by the store; pg is
// only used by the postgres backend.
func OpenHistoryStore(ctx context.Context, cfg *config.Config, pg *postgres.PostgresClient) (historycache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case "", "file":
		store, err := historycache.NewFileStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return historycache.NewRedisStore(client), client.Close, nil

	case "postgres":
		if pg == nil {
			return nil, nil, fmt.Errorf("postgres history cache requires a database connection")
		}
		return historycache.NewPostgresStore(pg), noop, nil

	case "memory":
		return historycache.NewMemoryStore(), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
