package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

// NewPostgresDB opens the profiles database. Every session issues short
// single-row statements, so a modest pool with recycled connections is enough.
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(50)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to postgres %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return db, nil
}
