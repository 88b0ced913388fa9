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

// Package catalog is the service layer over the provider snapshot store.
// Every multi-entity operation runs in a single transaction: an ingest
// either lands completely or not at all, and readers never observe a
// half-written snapshot.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lucasduport/iptv-bridge/pkg/database"
	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/parser"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// Service ties the parser and the store together.
type Service struct {
	db     *database.DBManager
	parser *parser.Parser
	fetch  *fetcher.Client
}

// New creates the catalog service.
func New(db *database.DBManager, p *parser.Parser, fetch *fetcher.Client) *Service {
	return &Service{db: db, parser: p, fetch: fetch}
}

// withTx runs fn in a transaction, committing on success and rolling
// back on any error.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return utils.PrintErrorAndReturn(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			utils.ErrorLog("Rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// CreateProvider fetches and parses the playlist at source and persists
// a complete new snapshot. Returns the new provider id.
func (s *Service) CreateProvider(ctx context.Context, name *string, source *url.URL) (uint64, error) {
	utils.InfoLog("Creating provider for source %s", utils.MaskURL(source.String()))

	parsed, err := s.parser.ParseURL(ctx, s.fetch, source.String())
	if err != nil {
		return 0, utils.PrintErrorAndReturn(fmt.Errorf("parsing playlist: %w", err))
	}

	var providerID uint64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		providerID, _, err = s.insertSnapshot(tx, name, source, parsed)
		return err
	})
	if err != nil {
		return 0, err
	}

	utils.InfoLog("Provider %d created: %d channels in %d groups",
		providerID, len(parsed.ExtInfs), len(parsed.Groups))
	return providerID, nil
}

// insertSnapshot persists a parsed playlist under a fresh provider row.
// Insertion order is provider, m3u, entries with their attributes, then
// groups.
func (s *Service) insertSnapshot(tx *sql.Tx, name *string, source *url.URL, parsed *types.ParsedM3u) (uint64, uint64, error) {
	providerID, err := s.db.InsertProvider(tx, name, source.String(),
		parser.CountGroups(parsed), parser.CountChannels(parsed))
	if err != nil {
		return 0, 0, fmt.Errorf("inserting provider: %w", err)
	}

	m3uID, err := s.insertM3uTree(tx, providerID, source, parsed)
	if err != nil {
		return 0, 0, err
	}
	return providerID, m3uID, nil
}

// insertM3uTree persists one playlist version with all its children.
func (s *Service) insertM3uTree(tx *sql.Tx, providerID uint64, source *url.URL, parsed *types.ParsedM3u) (uint64, error) {
	domain, port := splitHost(source)
	m3uID, err := s.db.InsertM3u(tx, providerID, domain, port)
	if err != nil {
		return 0, fmt.Errorf("inserting m3u: %w", err)
	}

	for i := range parsed.ExtInfs {
		entry := &parsed.ExtInfs[i]
		extinfID, err := s.db.InsertExtInf(tx, m3uID, entry)
		if err != nil {
			return 0, fmt.Errorf("inserting extinf %q: %w", entry.Name, err)
		}
		for _, attr := range entry.Attributes {
			if _, err := s.db.InsertAttribute(tx, extinfID, attr.Key, attr.Value); err != nil {
				return 0, fmt.Errorf("inserting attribute %q: %w", attr.Key, err)
			}
		}
	}

	for i := range parsed.Groups {
		if _, err := s.db.InsertGroup(tx, m3uID, &parsed.Groups[i]); err != nil {
			return 0, fmt.Errorf("inserting group %q: %w", parsed.Groups[i].Name, err)
		}
	}
	return m3uID, nil
}

// splitHost separates a source URL into the domain and optional port
// used later to reconstruct upstream streaming URLs.
func splitHost(u *url.URL) (string, *uint16) {
	domain := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		return domain, nil
	}
	p, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return domain, nil
	}
	port := uint16(p)
	return domain, &port
}

// GetProvider rehydrates one provider snapshot with its newest playlist
// version, channel entries and attributes.
func (s *Service) GetProvider(ctx context.Context, id uint64) (*types.ProviderDTO, error) {
	var dto *types.ProviderDTO
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		dto, err = s.rehydrate(tx, id)
		return err
	})
	return dto, err
}

func (s *Service) rehydrate(tx *sql.Tx, id uint64) (*types.ProviderDTO, error) {
	provider, err := s.db.GetProvider(tx, id)
	if err != nil {
		return nil, err
	}
	m3u, err := s.db.GetM3uByProviderID(tx, provider.ID)
	if err != nil {
		return nil, err
	}
	extinfs, err := s.db.ListExtInfsByM3uID(tx, m3u.ID)
	if err != nil {
		return nil, err
	}
	attributes, err := s.db.ListAttributesByM3uID(tx, m3u.ID)
	if err != nil {
		return nil, err
	}

	dtos := make([]types.ExtInfDTO, 0, len(extinfs))
	for _, e := range extinfs {
		dtos = append(dtos, types.ExtInfDTO{ExtInf: e, Attributes: attributes[e.ID]})
	}
	return &types.ProviderDTO{Provider: provider, M3u: m3u, ExtInfs: dtos}, nil
}

// ListProviders returns every stored snapshot, newest first.
func (s *Service) ListProviders(ctx context.Context) ([]types.Provider, error) {
	var providers []types.Provider
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		providers, err = s.db.ListProviders(tx)
		return err
	})
	return providers, err
}

// GetLatestProviderBySource returns the newest snapshot for a source
// URL.
func (s *Service) GetLatestProviderBySource(ctx context.Context, source string) (*types.Provider, error) {
	var provider *types.Provider
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		provider, err = s.db.GetLatestProviderBySource(tx, source)
		return err
	})
	return provider, err
}

// ProviderExists reports whether any snapshot exists for a source URL.
func (s *Service) ProviderExists(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		exists, err = s.db.ProviderExistsBySource(tx, source)
		return err
	})
	return exists, err
}

// DeleteProvider removes a snapshot and its whole tree, children first.
func (s *Service) DeleteProvider(ctx context.Context, id uint64) error {
	utils.InfoLog("Deleting provider %d", id)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.deleteProviderTree(tx, id)
	})
}

func (s *Service) deleteProviderTree(tx *sql.Tx, id uint64) error {
	m3uIDs, err := s.db.ListM3uIDsByProviderID(tx, id)
	if err != nil {
		return err
	}
	for _, m3uID := range m3uIDs {
		if err := s.deleteM3uTree(tx, m3uID); err != nil {
			return err
		}
	}
	return s.db.DeleteProvider(tx, id)
}

func (s *Service) deleteM3uTree(tx *sql.Tx, m3uID uint64) error {
	if err := s.db.DeleteAttributesByM3uID(tx, m3uID); err != nil {
		return fmt.Errorf("deleting attributes of m3u %d: %w", m3uID, err)
	}
	if err := s.db.DeleteExtInfsByM3uID(tx, m3uID); err != nil {
		return fmt.Errorf("deleting extinfs of m3u %d: %w", m3uID, err)
	}
	if err := s.db.DeleteGroupsByM3uID(tx, m3uID); err != nil {
		return fmt.Errorf("deleting groups of m3u %d: %w", m3uID, err)
	}
	return s.db.DeleteM3u(tx, m3uID)
}

// RefreshProvider re-fetches the provider's source and replaces its
// playlist tree in place: the new version is inserted, the old versions
// are dropped, and the denormalized counts are updated, all in one
// transaction.
func (s *Service) RefreshProvider(ctx context.Context, id uint64) error {
	var source string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		provider, err := s.db.GetProvider(tx, id)
		if err != nil {
			return err
		}
		source = provider.Source
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLog("Refreshing provider %d from %s", id, utils.MaskURL(source))

	parsed, err := s.parser.ParseURL(ctx, s.fetch, source)
	if err != nil {
		return utils.PrintErrorAndReturn(fmt.Errorf("refreshing provider %d: %w", id, err))
	}

	sourceURL, err := url.Parse(source)
	if err != nil {
		return utils.PrintErrorAndReturn(err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		oldM3uIDs, err := s.db.ListM3uIDsByProviderID(tx, id)
		if err != nil {
			return err
		}
		if _, err := s.insertM3uTree(tx, id, sourceURL, parsed); err != nil {
			return err
		}
		for _, m3uID := range oldM3uIDs {
			if err := s.deleteM3uTree(tx, m3uID); err != nil {
				return err
			}
		}
		return s.db.UpdateProviderCounts(tx, id,
			parser.CountGroups(parsed), parser.CountChannels(parsed))
	})
}

// RefreshAll refreshes every stored provider. Failures are logged and
// do not stop the remaining refreshes.
func (s *Service) RefreshAll(ctx context.Context) error {
	var ids []uint64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		ids, err = s.db.ListProviderIDs(tx)
		return err
	})
	if err != nil {
		return err
	}

	var lastErr error
	for _, id := range ids {
		if err := s.RefreshProvider(ctx, id); err != nil {
			utils.ErrorLog("Refresh of provider %d failed: %v", id, err)
			lastErr = err
		}
	}
	return lastErr
}

// PurgeObsolete deletes every snapshot that is not the newest one for
// its source. Returns the number of deleted snapshots.
func (s *Service) PurgeObsolete(ctx context.Context) (int, error) {
	purged := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.db.ListObsoleteProviderIDs(tx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.deleteProviderTree(tx, id); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		utils.InfoLog("Purged %d obsolete provider snapshots", purged)
	}
	return purged, nil
}
