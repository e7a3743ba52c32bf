package migration

import (
	"context"

	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Apply brings the schema up to date for the connected dialect.
func Apply(conn *gorm.DB, log *zap.Logger) error {
	switch dialect := conn.Dialector.Name(); dialect {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case "sqlite":
		schema, err := SQLiteSchema()
		if err != nil {
			return err
		}
		return conn.Exec(schema).Error
	default:
		log.Warn("no embedded migrations for dialect", zap.String("dialect", dialect))
		return nil
	}
}

// Module migrates the database on startup and seeds the bootstrap
// administrator when configured.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn, log); err != nil {
			return err
		}

		if !cfg.Bootstrap.Enabled() {
			return nil
		}
		return seed.EnsureBootstrapAdmin(context.Background(), conn, cfg.Bootstrap)
	}),
)
