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

// InsertGroup stores one deduplicated group of a playlist version.
func (m *DBManager) InsertGroup(tx *sql.Tx, m3uID uint64, group *types.ParsedGroup) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`
		INSERT INTO m3u_group (m3u_id, name, exclude, xtream_cat_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, m3uID, group.Name, group.Exclude, group.XtreamCatID).Scan(&id)
	return id, err
}

// ListGroupsByM3uID returns the groups of a playlist version in
// insertion order.
func (m *DBManager) ListGroupsByM3uID(tx *sql.Tx, m3uID uint64) ([]types.Group, error) {
	rows, err := tx.Query(`
		SELECT id, m3u_id, name, exclude, xtream_cat_id
		FROM m3u_group
		WHERE m3u_id = $1
		ORDER BY id ASC
	`, m3uID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []types.Group{}
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.ID, &g.M3uID, &g.Name, &g.Exclude, &g.XtreamCatID); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListExcludedCategoryIDs returns the upstream category ids of excluded
// groups of a playlist version. Groups without a category mapping are
// skipped. Used to filter Xtream category and series listings.
func (m *DBManager) ListExcludedCategoryIDs(tx *sql.Tx, m3uID uint64) (map[int64]bool, error) {
	rows, err := tx.Query(`
		SELECT xtream_cat_id FROM m3u_group
		WHERE m3u_id = $1 AND exclude = TRUE AND xtream_cat_id IS NOT NULL
	`, m3uID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := map[int64]bool{}
	for rows.Next() {
		var catID int64
		if err := rows.Scan(&catID); err != nil {
			return nil, err
		}
		excluded[catID] = true
	}
	return excluded, rows.Err()
}

// DeleteGroupsByM3uID removes every group of a playlist version.
func (m *DBManager) DeleteGroupsByM3uID(tx *sql.Tx, m3uID uint64) error {
	_, err := tx.Exec(`DELETE FROM m3u_group WHERE m3u_id = $1`, m3uID)
	return err
}
