package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // PostgreSQL driver
	"github.com/staybook/settlement-backend/internal/config"
	"github.com/staybook/settlement-backend/internal/models"
)

// pqLockNotAvailable is SQLSTATE 55P03, raised by FOR UPDATE NOWAIT
const pqLockNotAvailable = "55P03"

// pqUniqueViolation is SQLSTATE 23505
const pqUniqueViolation = "23505"

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connection poolers (Supavisor, pgbouncer) reject the extended protocol's
	// mismatched result formats
	connectionURL := cfg.URL
	if !strings.Contains(connectionURL, "prefer_simple_protocol") {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// translateError maps driver errors onto settlement errors.
// A NOWAIT lock failure becomes ErrLockContended so callers can retry.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable:
			return models.NewSettlementError(models.KindLockContended, op, err)
		case pqUniqueViolation:
			return models.NewSettlementError(models.KindValidation, op+": duplicate record", err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
