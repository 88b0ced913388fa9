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

package database

import (
	"fmt"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// schemaStatements are applied in order; each uses IF NOT EXISTS so a
// restart against an initialized database is a no-op. The groups table
// is named m3u_group because GROUP is reserved in SQL.
var schemaStatements = []struct {
	table string
	ddl   string
}{
	{"provider", `
		CREATE TABLE IF NOT EXISTS provider (
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			source TEXT NOT NULL,
			groups INTEGER,
			channels INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at TIMESTAMPTZ
		)
	`},
	{"m3u", `
		CREATE TABLE IF NOT EXISTS m3u (
			id BIGSERIAL PRIMARY KEY,
			provider_id BIGINT NOT NULL REFERENCES provider(id),
			domain TEXT NOT NULL,
			port INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at TIMESTAMPTZ
		)
	`},
	{"extinf", `
		CREATE TABLE IF NOT EXISTS extinf (
			id BIGSERIAL PRIMARY KEY,
			m3u_id BIGINT NOT NULL REFERENCES m3u(id),
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			track_id TEXT NOT NULL DEFAULT '',
			prefix TEXT NOT NULL DEFAULT '',
			extension TEXT NOT NULL DEFAULT '',
			exclude BOOLEAN NOT NULL DEFAULT FALSE
		)
	`},
	{"attribute", `
		CREATE TABLE IF NOT EXISTS attribute (
			id BIGSERIAL PRIMARY KEY,
			extinf_id BIGINT NOT NULL REFERENCES extinf(id),
			key TEXT NOT NULL,
			value TEXT NOT NULL
		)
	`},
	{"m3u_group", `
		CREATE TABLE IF NOT EXISTS m3u_group (
			id BIGSERIAL PRIMARY KEY,
			m3u_id BIGINT NOT NULL REFERENCES m3u(id),
			name TEXT NOT NULL,
			exclude BOOLEAN NOT NULL DEFAULT FALSE,
			xtream_cat_id BIGINT
		)
	`},
	{"hls_url", `
		CREATE TABLE IF NOT EXISTS hls_url (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL
		)
	`},
	{"xtream_url", `
		CREATE TABLE IF NOT EXISTS xtream_url (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE
		)
	`},
	{"xmltv_url", `
		CREATE TABLE IF NOT EXISTS xmltv_url (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE
		)
	`},
}

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_m3u_provider_id ON m3u(provider_id)`,
	`CREATE INDEX IF NOT EXISTS idx_extinf_m3u_id ON extinf(m3u_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attribute_extinf_id ON attribute(extinf_id)`,
	`CREATE INDEX IF NOT EXISTS idx_m3u_group_m3u_id ON m3u_group(m3u_id)`,
	`CREATE INDEX IF NOT EXISTS idx_provider_source ON provider(source)`,
}

// initSchema creates database tables if they don't exist
func (m *DBManager) initSchema() error {
	utils.InfoLog("Initializing database schema")

	for _, stmt := range schemaStatements {
		if _, err := m.db.Exec(stmt.ddl); err != nil {
			utils.ErrorLog("Failed to create %s table: %v", stmt.table, err)
			return fmt.Errorf("failed to create %s table: %w", stmt.table, err)
		}
	}
	for _, ddl := range schemaIndexes {
		if _, err := m.db.Exec(ddl); err != nil {
			utils.ErrorLog("Failed to create index: %v", err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	utils.InfoLog("Database schema ready")
	return nil
}
