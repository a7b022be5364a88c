package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/auma/compliance-gate/internal/models"
)

// Connect opens the escalation store. postgres:// DSNs use the Postgres
// driver; anything else is treated as a SQLite path or URI.
func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if IsPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}

	return db, nil
}

// IsPostgres reports whether dsn selects the Postgres driver.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Migrate creates or updates every table the compliance gate owns or reads.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Escalation{},
		&models.AuditLog{},
		&models.MloUser{},
		&models.Loan{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
