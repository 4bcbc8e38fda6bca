package snapshot

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
	"github.com/angelmondragon/packfinderz-storefront/pkg/db"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/migrate"
	pfredis "github.com/angelmondragon/packfinderz-storefront/pkg/redis"
)

// Open builds the backend selected by cfg.Snapshot.Driver. The redis driver reuses
// redisClient when provided. The returned closer releases connections Open created.
func Open(ctx context.Context, cfg *config.Config, redisClient *pfredis.Client, logg *logger.Logger) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Snapshot.Driver {
	case config.SnapshotDriverMemory, "":
		return NewMemoryBackend(), noop, nil

	case config.SnapshotDriverRedis:
		if redisClient != nil {
			return NewRedisBackend(redisClient, cfg.Redis.SnapshotTTL), noop, nil
		}
		client, err := pfredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap redis: %w", err)
		}
		return NewRedisBackend(client, cfg.Redis.SnapshotTTL), client.Close, nil

	case config.SnapshotDriverBolt:
		backend, err := OpenBolt(cfg.Snapshot.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		return backend, backend.Close, nil

	case config.SnapshotDriverPostgres, config.SnapshotDriverSQLite:
		client, err := db.New(ctx, cfg.Snapshot.Driver, cfg.DB, logg)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("migrate cart_snapshots: %w", err)
		}
		return NewSQLBackend(client.DB()), client.Close, nil
	}

	return nil, noop, fmt.Errorf("unsupported snapshot driver %q", cfg.Snapshot.Driver)
}
