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
	"database/sql"

	"github.com/lucasduport/iptv-bridge/pkg/types"
)

const m3uColumns = `id, provider_id, domain, port, created_at, modified_at`

func scanM3u(row interface{ Scan(...interface{}) error }) (*types.M3u, error) {
	var u types.M3u
	if err := row.Scan(&u.ID, &u.ProviderID, &u.Domain, &u.Port, &u.CreatedAt, &u.ModifiedAt); err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

// InsertM3u stores a playlist version for a provider and returns its id.
func (m *DBManager) InsertM3u(tx *sql.Tx, providerID uint64, domain string, port *uint16) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`
		INSERT INTO m3u (provider_id, domain, port)
		VALUES ($1, $2, $3)
		RETURNING id
	`, providerID, domain, port).Scan(&id)
	return id, err
}

// GetM3u fetches one playlist version by id.
func (m *DBManager) GetM3u(tx *sql.Tx, id uint64) (*types.M3u, error) {
	return scanM3u(tx.QueryRow(`SELECT `+m3uColumns+` FROM m3u WHERE id = $1`, id))
}

// GetM3uByProviderID fetches the newest playlist version of a provider.
func (m *DBManager) GetM3uByProviderID(tx *sql.Tx, providerID uint64) (*types.M3u, error) {
	return scanM3u(tx.QueryRow(`
		SELECT `+m3uColumns+` FROM m3u
		WHERE provider_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, providerID))
}

// ListM3uIDsByProviderID returns every playlist version id of a provider.
func (m *DBManager) ListM3uIDsByProviderID(tx *sql.Tx, providerID uint64) ([]uint64, error) {
	rows, err := tx.Query(`SELECT id FROM m3u WHERE provider_id = $1`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteM3u removes one playlist version row; its extinf/group children
// must be deleted first.
func (m *DBManager) DeleteM3u(tx *sql.Tx, id uint64) error {
	_, err := tx.Exec(`DELETE FROM m3u WHERE id = $1`, id)
	return err
}
