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

const extinfColumns = `id, m3u_id, name, url, track_id, prefix, extension, exclude`

func scanExtInf(row interface{ Scan(...interface{}) error }) (*types.ExtInf, error) {
	var e types.ExtInf
	if err := row.Scan(&e.ID, &e.M3uID, &e.Name, &e.URL, &e.TrackID, &e.Prefix, &e.Extension, &e.Exclude); err != nil {
		return nil, notFoundOr(err)
	}
	return &e, nil
}

// InsertExtInf stores one channel entry and returns its id.
func (m *DBManager) InsertExtInf(tx *sql.Tx, m3uID uint64, entry *types.ParsedExtInf) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`
		INSERT INTO extinf (m3u_id, name, url, track_id, prefix, extension, exclude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, m3uID, entry.Name, entry.URL, entry.TrackID, entry.Prefix, entry.Extension, entry.Exclude).Scan(&id)
	return id, err
}

// GetExtInf fetches one channel entry by id.
func (m *DBManager) GetExtInf(tx *sql.Tx, id uint64) (*types.ExtInf, error) {
	return scanExtInf(tx.QueryRow(`SELECT `+extinfColumns+` FROM extinf WHERE id = $1`, id))
}

// ListExtInfsByM3uID returns the channel entries of a playlist version
// in insertion order.
func (m *DBManager) ListExtInfsByM3uID(tx *sql.Tx, m3uID uint64) ([]types.ExtInf, error) {
	rows, err := tx.Query(`
		SELECT `+extinfColumns+` FROM extinf
		WHERE m3u_id = $1
		ORDER BY id ASC
	`, m3uID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	extinfs := []types.ExtInf{}
	for rows.Next() {
		e, err := scanExtInf(rows)
		if err != nil {
			return nil, err
		}
		extinfs = append(extinfs, *e)
	}
	return extinfs, rows.Err()
}

// ListExcludedTrackIDs returns the upstream track ids of excluded
// entries of a playlist version, optionally narrowed to one stream-kind
// prefix. Used to filter Xtream API listings.
func (m *DBManager) ListExcludedTrackIDs(tx *sql.Tx, m3uID uint64, prefix string) (map[string]bool, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = tx.Query(`SELECT track_id FROM extinf WHERE m3u_id = $1 AND exclude = TRUE`, m3uID)
	} else {
		rows, err = tx.Query(`SELECT track_id FROM extinf WHERE m3u_id = $1 AND exclude = TRUE AND prefix = $2`, m3uID, prefix)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := map[string]bool{}
	for rows.Next() {
		var trackID string
		if err := rows.Scan(&trackID); err != nil {
			return nil, err
		}
		excluded[trackID] = true
	}
	return excluded, rows.Err()
}

// DeleteExtInfsByM3uID removes every channel entry of a playlist
// version; their attributes must be deleted first.
func (m *DBManager) DeleteExtInfsByM3uID(tx *sql.Tx, m3uID uint64) error {
	_, err := tx.Exec(`DELETE FROM extinf WHERE m3u_id = $1`, m3uID)
	return err
}
