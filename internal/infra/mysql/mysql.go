package mysql

import (
	"fmt"

	"tableside/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL opens the alternate dialect. The returned func releases the pool.
func NewMySQL(cfg config.DatabaseConfig, gcfg *gorm.Config) (*gorm.DB, func(), error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), gcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("mysql pool: %w", err)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 4)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, func() { _ = sqlDB.Close() }, nil
}
