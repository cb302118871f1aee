package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tableside/internal/config"
	"tableside/internal/domain"
	"tableside/internal/infra/mysql"
	"tableside/internal/infra/postgres"
	"tableside/internal/logger"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// GormConfig is shared by every dialect. TranslateError is required by the
// repositories, which branch on gorm's dialect-neutral constraint errors.
func GormConfig(log *logger.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		Logger: gormlogger.New(
			slog.NewLogLogger(log.Slog().Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

// OpenDatabase connects with the configured driver. The caller owns the
// returned close func.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, func(), error) {
	gcfg := GormConfig(log)
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.NewPostgres(ctx, cfg, gcfg, log)
	case config.DriverMySQL:
		return mysql.NewMySQL(cfg, gcfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
