// Package db provides GORM connection and migration helpers.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/switchboardhq/switchboard/internal/config"
	"github.com/switchboardhq/switchboard/internal/models"
)

// DSN builds a MySQL DSN from database settings.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Host, cfg.Port, cfg.Database)
}

// Connect opens a GORM connection for the configured driver.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.Path, err)
		}
		return db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(cfg)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
}

// AllModels lists every model in migration order.
func AllModels() []any {
	return []any{
		&models.Agent{},
		&models.Task{},
		&models.Message{},
		&models.Notification{},
		&models.DeliveryLog{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// Reset drops and recreates all model tables. Used by `sb db reset`.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return Migrate(db)
}
