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

// InsertAttribute stores one key/value pair of a channel entry.
func (m *DBManager) InsertAttribute(tx *sql.Tx, extinfID uint64, key, value string) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`
		INSERT INTO attribute (extinf_id, key, value)
		VALUES ($1, $2, $3)
		RETURNING id
	`, extinfID, key, value).Scan(&id)
	return id, err
}

// GetAttribute fetches one attribute by id.
func (m *DBManager) GetAttribute(tx *sql.Tx, id uint64) (*types.Attribute, error) {
	var a types.Attribute
	err := tx.QueryRow(`
		SELECT id, extinf_id, key, value FROM attribute WHERE id = $1
	`, id).Scan(&a.ID, &a.ExtInfID, &a.Key, &a.Value)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

// ListAttributesByM3uID returns every attribute of a playlist version
// keyed by owning extinf id, in one query instead of one per entry.
func (m *DBManager) ListAttributesByM3uID(tx *sql.Tx, m3uID uint64) (map[uint64][]types.Attribute, error) {
	rows, err := tx.Query(`
		SELECT a.id, a.extinf_id, a.key, a.value
		FROM attribute a
		JOIN extinf e ON e.id = a.extinf_id
		WHERE e.m3u_id = $1
		ORDER BY a.id ASC
	`, m3uID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attributes := map[uint64][]types.Attribute{}
	for rows.Next() {
		var a types.Attribute
		if err := rows.Scan(&a.ID, &a.ExtInfID, &a.Key, &a.Value); err != nil {
			return nil, err
		}
		attributes[a.ExtInfID] = append(attributes[a.ExtInfID], a)
	}
	return attributes, rows.Err()
}

// DeleteAttributesByM3uID removes every attribute under a playlist
// version.
func (m *DBManager) DeleteAttributesByM3uID(tx *sql.Tx, m3uID uint64) error {
	_, err := tx.Exec(`
		DELETE FROM attribute
		WHERE extinf_id IN (SELECT id FROM extinf WHERE m3u_id = $1)
	`, m3uID)
	return err
}
