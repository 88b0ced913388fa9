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

package catalog

import (
	"context"
	"database/sql"
)

// GetExtInfURL resolves the upstream URL of a channel entry, for the
// /stream passthrough.
func (s *Service) GetExtInfURL(ctx context.Context, id uint64) (string, error) {
	var upstream string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		extinf, err := s.db.GetExtInf(tx, id)
		if err != nil {
			return err
		}
		upstream = extinf.URL
		return nil
	})
	return upstream, err
}

// GetAttributeValue resolves the stored value of an attribute, for the
// /attr passthrough serving proxified logo URLs.
func (s *Service) GetAttributeValue(ctx context.Context, id uint64) (string, error) {
	var value string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		attr, err := s.db.GetAttribute(tx, id)
		if err != nil {
			return err
		}
		value = attr.Value
		return nil
	})
	return value, err
}
