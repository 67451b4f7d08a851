package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/posrelay/pkg/config"
	"github.com/angelmondragon/posrelay/pkg/db"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

// MaybeRunDev applies the embedded queue migrations when running in dev with the
// postgres queue backend and the auto-migrate flag set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg) || client == nil {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": embeddedDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := RunEmbedded(ctx, sqlDB, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}

// ShouldAutoRun reports whether the dev auto-run applies to cfg.
func ShouldAutoRun(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate && cfg.Relay.Backend() == config.QueueBackendPostgres
}
