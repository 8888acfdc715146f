// Package db opens and sizes the single MySQL/MariaDB connection pool used
// by a drip run.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// MySQL driver, selected via sql.Open("mysql", ...).
	_ "github.com/go-sql-driver/mysql"
)

// Pool defaults. drip keeps exactly one statement in flight, so the pool is
// deliberately tiny; the second connection exists for the estimate query.
const (
	DefaultMaxOpenConns    = 2
	DefaultMaxIdleConns    = 1
	DefaultConnMaxLifetime = 30 * time.Minute
)

// Config holds connection parameters for the one target database.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open connects to the target database and verifies it is reachable before
// any batch runs. Connection or authentication failure here is fatal: no
// partial work has been performed yet.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	conn, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(DefaultMaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(DefaultMaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(DefaultConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return conn, nil
}

// ScalarCount runs a query expected to return a single non-negative integer,
// such as a SELECT COUNT(*) sizing the work a mutation still has ahead of it.
func ScalarCount(ctx context.Context, conn *sql.DB, query string) (int64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("count query cannot be empty")
	}

	var n int64
	if err := conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query did not return a single integer: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("count query returned a negative value: %d", n)
	}
	return n, nil
}
