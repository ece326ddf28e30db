package persistence

import (
	"database/sql"

	"story-syndication/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormDB wraps an open PostgreSQL pool for the audit repository so both
// share one set of connections.
func NewGormDB(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// MigrateAudit creates the audit tables.
func MigrateAudit(db *gorm.DB) error {
	return db.AutoMigrate(&model.AuditLog{}, &model.WebhookDelivery{})
}
