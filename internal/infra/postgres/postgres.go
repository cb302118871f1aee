package postgres

import (
	"context"
	"fmt"
	"time"

	"tableside/internal/config"
	"tableside/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres builds a pgx pool, waits for the server to answer a ping and
// hands the pool to gorm. The returned func closes both.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig, gcfg *gorm.Config, log *logger.Logger) (*gorm.DB, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := connect(ctx, poolConfig, max(cfg.ConnectRetries, 1), log)
	if err != nil {
		return nil, nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("open gorm on postgres: %w", err)
	}

	closeFn := func() {
		_ = sqlDB.Close()
		pool.Close()
	}
	return db, closeFn, nil
}

func connect(ctx context.Context, poolConfig *pgxpool.Config, attempts int, log *logger.Logger) (*pgxpool.Pool, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}

		if i < attempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Error(ctx, "db_connection_failed",
				fmt.Sprintf("Failed to connect to database, retrying in %v", wait), err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}
