package db

import (
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every durable table, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Account{},
		&model.BusinessDetails{},
		&model.Report{},
		&model.Attestation{},
		&model.ReportDispute{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
