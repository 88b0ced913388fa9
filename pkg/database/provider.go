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

const providerColumns = `id, name, source, groups, channels, created_at, modified_at`

func scanProvider(row interface{ Scan(...interface{}) error }) (*types.Provider, error) {
	var p types.Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Source, &p.Groups, &p.Channels, &p.CreatedAt, &p.ModifiedAt); err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

// InsertProvider stores a new provider snapshot and returns its id.
func (m *DBManager) InsertProvider(tx *sql.Tx, name *string, source string, groups, channels uint) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`
		INSERT INTO provider (name, source, groups, channels)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, name, source, groups, channels).Scan(&id)
	return id, err
}

// GetProvider fetches one provider by id.
func (m *DBManager) GetProvider(tx *sql.Tx, id uint64) (*types.Provider, error) {
	return scanProvider(tx.QueryRow(`SELECT `+providerColumns+` FROM provider WHERE id = $1`, id))
}

// GetLatestProviderBySource fetches the newest provider snapshot for a
// source URL.
func (m *DBManager) GetLatestProviderBySource(tx *sql.Tx, source string) (*types.Provider, error) {
	return scanProvider(tx.QueryRow(`
		SELECT `+providerColumns+` FROM provider
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, source))
}

// ListProviders returns every provider snapshot, newest first.
func (m *DBManager) ListProviders(tx *sql.Tx) ([]types.Provider, error) {
	rows, err := tx.Query(`SELECT ` + providerColumns + ` FROM provider ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []types.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *p)
	}
	return providers, rows.Err()
}

// ListProviderIDs returns every provider id, oldest first.
func (m *DBManager) ListProviderIDs(tx *sql.Tx) ([]uint64, error) {
	rows, err := tx.Query(`SELECT id FROM provider ORDER BY created_at ASC`)
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

// ListObsoleteProviderIDs returns the ids of every snapshot that is not
// the newest one for its source.
func (m *DBManager) ListObsoleteProviderIDs(tx *sql.Tx) ([]uint64, error) {
	rows, err := tx.Query(`
		SELECT id FROM provider
		WHERE id NOT IN (
			SELECT DISTINCT ON (source) id FROM provider
			ORDER BY source, created_at DESC
		)
		ORDER BY created_at ASC
	`)
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

// UpdateProviderCounts refreshes the denormalized group/channel counts
// and bumps modified_at.
func (m *DBManager) UpdateProviderCounts(tx *sql.Tx, id uint64, groups, channels uint) error {
	res, err := tx.Exec(`
		UPDATE provider
		SET groups = $2, channels = $3, modified_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, groups, channels)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProvider removes the provider row itself; its m3u tree must be
// deleted first.
func (m *DBManager) DeleteProvider(tx *sql.Tx, id uint64) error {
	res, err := tx.Exec(`DELETE FROM provider WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ProviderExistsBySource reports whether any snapshot exists for the
// source URL.
func (m *DBManager) ProviderExistsBySource(tx *sql.Tx, source string) (bool, error) {
	var exists bool
	err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM provider WHERE source = $1)`, source).Scan(&exists)
	return exists, err
}
