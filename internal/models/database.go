package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/testdesk/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the global.
func Open(cfg *config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(logLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig, logLevel string) error {
	db, err := Open(cfg, logLevel)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectMember{},
		&Requirement{},
		&TestPlan{},
		&Document{},
		&Comment{},
		&IDFormat{},
		&RefreshToken{},
		&SystemLog{},
		&SystemConfig{},
		&SchedulerLock{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func GetDB() *gorm.DB {
	return DB
}

// Ping checks the underlying connection, bounded by timeout.
func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// SeedDefaultData creates the ID format rows that do not exist yet.
// Existing rows are left alone so admin edits survive restarts.
func SeedDefaultData(db *gorm.DB) error {
	for _, f := range DefaultIDFormats() {
		var existing IDFormat
		err := db.Where("entity_type = ?", f.EntityType).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		format := f
		if err := db.Create(&format).Error; err != nil {
			return fmt.Errorf("seed id format %s: %w", f.EntityType, err)
		}
	}
	return nil
}
