/*
 * iptv-bridge is a reverse proxy and aggregator for IPTV providers.
 * Copyright (C) 2026  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package database is the PostgreSQL persistence layer. All entity
// operations take an explicit *sql.Tx so callers control transaction
// boundaries; the catalog service always runs ingest, rehydration and
// deletion as a single transaction.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// DBManager handles database operations
type DBManager struct {
	db          *sql.DB
	initialized bool
}

// NewDBManager creates a new database manager. databaseURL takes
// precedence; when empty the connection string is assembled from the
// DB_* environment variables.
func NewDBManager(databaseURL string) (*DBManager, error) {
	utils.InfoLog("Initializing PostgreSQL database connection")

	connStr := databaseURL
	if connStr == "" {
		host := utils.GetEnvOrDefault("DB_HOST", "localhost")
		port := utils.GetEnvOrDefault("DB_PORT", "5432")
		dbName := utils.GetEnvOrDefault("DB_NAME", "iptvbridge")
		user := utils.GetEnvOrDefault("DB_USER", "postgres")
		password := utils.GetEnvOrDefault("DB_PASSWORD", "")

		connStr = fmt.Sprintf(
			"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
			host, port, dbName, user, password,
		)
		utils.DebugLog("Connecting to PostgreSQL: host=%s port=%s dbname=%s user=%s", host, port, dbName, user)
	} else {
		utils.DebugLog("Connecting to PostgreSQL: %s", utils.MaskString(connStr))
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		utils.ErrorLog("Failed to connect to database: %v", err)
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	utils.InfoLog("Database connection successful")

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	manager := &DBManager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	manager.initialized = true
	return manager, nil
}

// Begin opens a transaction.
func (m *DBManager) Begin(ctx context.Context) (*sql.Tx, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.db.BeginTx(ctx, nil)
}

// Close releases the connection pool.
func (m *DBManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// notFoundOr maps sql.ErrNoRows onto ErrNotFound and passes every other
// error through.
func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
