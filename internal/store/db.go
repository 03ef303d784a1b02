package store

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "pgsql"
)

// InitDB opens the configured database and migrates the marketplace schema.
func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbType {
	case TypeSQLite:
		dialector = sqlite.Open(dsn)
	case TypePostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if dbType == TypeSQLite {
		// SQLite allows a single writer; one connection serializes
		// transactions and keeps in-memory databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := db.AutoMigrate(&model.Client{}, &model.Provider{}, &model.Request{}, &model.Bid{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	zap.S().Named("store").Infow("database initialized", "type", dbType)
	return db, nil
}
