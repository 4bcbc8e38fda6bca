package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
	"github.com/angelmondragon/packfinderz-storefront/pkg/db"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// ShouldAutoRun reports whether the snapshot schema is migrated at startup.
// SQLite is a local-only driver and always migrates; Postgres needs dev mode plus
// PACKFINDERZ_AUTO_MIGRATE.
func ShouldAutoRun(cfg *config.Config) bool {
	switch cfg.Snapshot.Driver {
	case config.SnapshotDriverSQLite:
		return true
	case config.SnapshotDriverPostgres:
		return cfg.App.IsDev() && cfg.App.AutoMigrate
	default:
		return false
	}
}

// MaybeRun applies the embedded migrations when ShouldAutoRun allows it.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg) {
		return nil
	}

	dialect, err := Dialect(cfg.Snapshot.Driver)
	if err != nil {
		return err
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, dialect, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
