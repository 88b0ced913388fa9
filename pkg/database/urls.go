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
	"errors"
)

// SetHlsURL pins the HLS origin of the most recent live stream response.
// The table holds at most one row; truncate-then-insert keeps the pin
// atomic within the caller's transaction.
func (m *DBManager) SetHlsURL(tx *sql.Tx, url string) error {
	if _, err := tx.Exec(`TRUNCATE hls_url`); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO hls_url (url) VALUES ($1)`, url)
	return err
}

// GetHlsURL returns the pinned HLS origin.
func (m *DBManager) GetHlsURL(tx *sql.Tx) (string, error) {
	var url string
	if err := tx.QueryRow(`SELECT url FROM hls_url LIMIT 1`).Scan(&url); err != nil {
		return "", notFoundOr(err)
	}
	return url, nil
}

// upsertURL returns the id of an existing url row or inserts a new one.
func upsertURL(tx *sql.Tx, table, url string) (uint64, error) {
	var id uint64
	err := tx.QueryRow(`SELECT id FROM `+table+` WHERE url = $1`, url).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRow(`INSERT INTO `+table+` (url) VALUES ($1) RETURNING id`, url).Scan(&id)
	return id, err
}

func getURL(tx *sql.Tx, table string, id uint64) (string, error) {
	var url string
	if err := tx.QueryRow(`SELECT url FROM `+table+` WHERE id = $1`, id).Scan(&url); err != nil {
		return "", notFoundOr(err)
	}
	return url, nil
}

// UpsertXtreamURL interns an upstream URL found inside an Xtream API
// response and returns its stable id.
func (m *DBManager) UpsertXtreamURL(tx *sql.Tx, url string) (uint64, error) {
	return upsertURL(tx, "xtream_url", url)
}

// GetXtreamURL resolves an interned Xtream URL id.
func (m *DBManager) GetXtreamURL(tx *sql.Tx, id uint64) (string, error) {
	return getURL(tx, "xtream_url", id)
}

// UpsertXmltvURL interns an icon URL found inside an XMLTV document and
// returns its stable id.
func (m *DBManager) UpsertXmltvURL(tx *sql.Tx, url string) (uint64, error) {
	return upsertURL(tx, "xmltv_url", url)
}

// GetXmltvURL resolves an interned XMLTV icon URL id.
func (m *DBManager) GetXmltvURL(tx *sql.Tx, id uint64) (string, error) {
	return getURL(tx, "xmltv_url", id)
}
