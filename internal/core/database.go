// Package core owns the database connection pool and schema.
package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/rango/config"
)

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id SERIAL PRIMARY KEY,
		name VARCHAR(128) NOT NULL UNIQUE,
		slug VARCHAR(140) NOT NULL UNIQUE,
		likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id SERIAL PRIMARY KEY,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		title VARCHAR(128) NOT NULL,
		url VARCHAR(200) NOT NULL,
		views INTEGER NOT NULL DEFAULT 0 CHECK (views >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL DEFAULT '',
		password_hash VARCHAR(128) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		date_joined TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		website VARCHAR(200) NOT NULL DEFAULT '',
		picture VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_key VARCHAR(64) PRIMARY KEY,
		session_data TEXT NOT NULL,
		expire_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_views ON pages(views DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_likes ON categories(likes DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expire ON sessions(expire_date)`,
}

// Executor runs a statement; *pgxpool.Pool satisfies it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Executor) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
