package config

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/ai-interviewer/internal/models"
)

func InitDatabase(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath)
	case "postgres", "":
		dialector = postgres.Open(cfg.GetDatabaseDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("✅ Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("✅ Database migration completed")

	return db, nil
}

// Migrate creates or updates the roster and document tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Document{},
		&models.CandidateRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
