// Package repository implements the row-store access layer: prepared
// statement caching, cursor-based pagination, optimistic-locking
// transactions, and full-text search, adapted from
// services/chat-service/internal/repository/chat_repository.go.
package repository

import (
	"database/sql"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Pool tuning constants, matching
// services/chat-service/internal/repository/chat_repository.go.
const (
	maxOpenConns    = 100
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 15 * time.Minute
)

// Open establishes a GORM-backed Postgres connection with the teacher's
// pool tuning, returning both the *gorm.DB used by typed repositories and
// the underlying *sql.DB for health checks and migrations.
func Open(dsn string) (*gorm.DB, *sql.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return db, sqlDB, nil
}
