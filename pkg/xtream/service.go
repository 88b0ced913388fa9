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

// Package xtream mediates the Xtream-compatible endpoint families:
// login, player_api actions, xmltv, get.php and the streaming paths.
// Client-facing payloads never leak upstream credentials or upstream
// URLs; both are substituted on the way through.
package xtream

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/database"
	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// ErrNoProvider is returned when no catalog snapshot exists for the
// configured playlist source.
var ErrNoProvider = errors.New("no provider entry found")

// ErrUnsupportedTypeOutput rejects get.php combinations other than
// m3u_plus with m3u8, ts or rmtp output.
var ErrUnsupportedTypeOutput = errors.New("only m3u8, ts or rmtm supported")

// Service implements the Xtream proxy semantics on top of the catalog
// store and the shared fetcher.
type Service struct {
	db    *database.DBManager
	fetch *fetcher.Client
	cfg   *config.ProxyConfig
}

// New creates the Xtream service.
func New(db *database.DBManager, fetch *fetcher.Client, cfg *config.ProxyConfig) *Service {
	return &Service{db: db, fetch: fetch, cfg: cfg}
}

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

// latestM3u resolves the newest playlist version of the configured
// source.
func (s *Service) latestM3u(tx *sql.Tx) (*types.M3u, error) {
	provider, err := s.db.GetLatestProviderBySource(tx, s.cfg.M3uURL.String())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNoProvider
		}
		return nil, err
	}
	return s.db.GetM3uByProviderID(tx, provider.ID)
}

// credentialsQuery signs a query with the real upstream credentials,
// regardless of what the client sent.
func (s *Service) credentialsQuery() url.Values {
	query := url.Values{}
	query.Set("username", s.cfg.Xtream.Username.String())
	query.Set("password", s.cfg.Xtream.Password.String())
	return query
}

func (s *Service) composeUpstreamURL(path string, query url.Values) string {
	return fmt.Sprintf("http://%s%s?%s", s.cfg.Xtream.BaseDomain, path, query.Encode())
}

// ProxyLogin forwards the credential-less player_api call and rewrites
// the login payload: the client sees the proxied credentials and the
// proxy's own address instead of the upstream ones.
func (s *Service) ProxyLogin(ctx context.Context) ([]byte, int, error) {
	endpoint := s.composeUpstreamURL("/player_api.php", s.credentialsQuery())

	body, _, status, err := s.fetch.GetRaw(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}

	port := strconv.Itoa(s.cfg.Port)
	patches := []struct {
		value string
		path  []string
	}{
		{s.cfg.Xtream.ProxiedUsername.String(), []string{"user_info", "username"}},
		{s.cfg.Xtream.ProxiedPassword.String(), []string{"user_info", "password"}},
		{s.cfg.Xtream.ProxiedDomain, []string{"server_info", "url"}},
		{port, []string{"server_info", "port"}},
		{port, []string{"server_info", "https_port"}},
		{port, []string{"server_info", "rtmp_port"}},
	}
	for _, p := range patches {
		body, err = jsonparser.Set(body, []byte(strconv.Quote(p.value)), p.path...)
		if err != nil {
			return nil, 0, utils.PrintErrorAndReturn(fmt.Errorf("rewriting login payload: %w", err))
		}
	}

	utils.InfoLog("[%d] player_api.php login => %s", status, utils.MaskURL(endpoint))
	return body, status, nil
}

// ProxyAction dispatches one player_api action. Listings are filtered
// against the exclusion state of the latest snapshot and their embedded
// URLs proxified; unknown actions pass through as raw bytes.
func (s *Service) ProxyAction(ctx context.Context, action string, params OptionalParams) ([]byte, int, error) {
	query := s.credentialsQuery()
	query.Set("action", action)
	for key, value := range map[string]string{
		"category_id": params.CategoryID,
		"vod_id":      params.VodID,
		"series_id":   params.SeriesID,
		"stream_id":   params.StreamID,
	} {
		if value != "" {
			query.Set(key, value)
		}
	}
	endpoint := s.composeUpstreamURL("/player_api.php", query)

	var (
		body   []byte
		status int
		err    error
	)
	switch action {
	case "get_live_streams":
		body, status, err = proxyStreams[LiveStream](ctx, s, endpoint, "live")
	case "get_vod_streams":
		body, status, err = proxyStreams[VodStream](ctx, s, endpoint, "movie")
	case "get_series":
		body, status, err = s.proxySeries(ctx, endpoint)
	case "get_live_categories", "get_vod_categories", "get_series_categories":
		body, status, err = s.proxyCategories(ctx, endpoint)
	case "get_series_info", "get_vod_info":
		body, status, err = s.proxyInfo(ctx, endpoint)
	default:
		body, _, status, err = s.fetch.GetRaw(ctx, endpoint)
	}
	if err != nil {
		return nil, 0, err
	}

	utils.InfoLog("[%d] player_api.php action=%s => %s", status, action, utils.MaskURL(endpoint))
	return body, status, nil
}

// proxyStreams filters a stream listing against the excluded track ids
// of the given prefix and proxifies the surviving entries.
func proxyStreams[T interface {
	HasID
	rawCarrier
}](ctx context.Context, s *Service, endpoint, prefix string) ([]byte, int, error) {
	entries, _, status, err := fetcher.GetJSON[[]T](ctx, s.fetch, endpoint)
	if err != nil {
		return nil, 0, err
	}

	var out []byte
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		m3u, err := s.latestM3u(tx)
		if err != nil {
			return err
		}
		excluded, err := s.db.ListExcludedTrackIDs(tx, m3u.ID, prefix)
		if err != nil {
			return err
		}

		kept := make([]T, 0, len(entries))
		for _, entry := range entries {
			if !excluded[entry.ComparableID()] {
				kept = append(kept, entry)
			}
		}
		out, err = s.proxifyEntries(tx, rawsOf(kept))
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, status, nil
}

// proxySeries filters a series listing by the excluded groups' category
// ids and proxifies the surviving entries.
func (s *Service) proxySeries(ctx context.Context, endpoint string) ([]byte, int, error) {
	entries, _, status, err := fetcher.GetJSON[[]Series](ctx, s.fetch, endpoint)
	if err != nil {
		return nil, 0, err
	}

	var out []byte
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		m3u, err := s.latestM3u(tx)
		if err != nil {
			return err
		}
		excluded, err := s.db.ListExcludedCategoryIDs(tx, m3u.ID)
		if err != nil {
			return err
		}

		kept := make([]Series, 0, len(entries))
		for _, entry := range entries {
			if !excluded[entry.CategoryID.Int64()] {
				kept = append(kept, entry)
			}
		}
		out, err = s.proxifyEntries(tx, rawsOf(kept))
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, status, nil
}

// proxyCategories retains only categories whose name belongs to a
// non-excluded group of the latest snapshot. No URL rewriting; category
// listings carry no media URLs.
func (s *Service) proxyCategories(ctx context.Context, endpoint string) ([]byte, int, error) {
	entries, _, status, err := fetcher.GetJSON[[]Category](ctx, s.fetch, endpoint)
	if err != nil {
		return nil, 0, err
	}

	var out []byte
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		m3u, err := s.latestM3u(tx)
		if err != nil {
			return err
		}
		groups, err := s.db.ListGroupsByM3uID(tx, m3u.ID)
		if err != nil {
			return err
		}
		included := map[string]bool{}
		for _, group := range groups {
			if !group.Exclude {
				included[group.Name] = true
			}
		}

		raws := [][]byte{}
		for _, entry := range entries {
			if included[entry.CategoryName] {
				raws = append(raws, entry.raw)
			}
		}
		out = joinJSONArray(raws)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, status, nil
}

// proxyInfo passes a vod/series info object through URL proxification
// without filtering.
func (s *Service) proxyInfo(ctx context.Context, endpoint string) ([]byte, int, error) {
	body, _, status, err := s.fetch.GetRaw(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}

	var out []byte
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		out, err = ProxifyJSON(body, s.cfg.Xtream.ProxiedDomain, func(rawURL string) (uint64, error) {
			return s.db.UpsertXtreamURL(tx, rawURL)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, status, nil
}

// proxifyEntries rewrites each entry's embedded URLs and reassembles
// the JSON array.
func (s *Service) proxifyEntries(tx *sql.Tx, raws [][]byte) ([]byte, error) {
	insert := func(rawURL string) (uint64, error) {
		return s.db.UpsertXtreamURL(tx, rawURL)
	}

	proxified := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		entry, err := ProxifyJSON(raw, s.cfg.Xtream.ProxiedDomain, insert)
		if err != nil {
			return nil, err
		}
		proxified = append(proxified, entry)
	}
	return joinJSONArray(proxified), nil
}

func rawsOf[T rawCarrier](entries []T) [][]byte {
	raws := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		raws = append(raws, entry.Raw())
	}
	return raws
}

func joinJSONArray(raws [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// ResolveStreamURL reconstructs the upstream URL for a client streaming
// path. With Xtream enabled the credential segments are replaced by the
// upstream credentials; otherwise the client segments pass through.
func (s *Service) ResolveStreamURL(ctx context.Context, p StreamPath) (string, error) {
	var composed string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m3u, err := s.latestM3u(tx)
		if err != nil {
			return err
		}
		credUser, credPass := "", ""
		if s.cfg.Xtream.Enabled {
			credUser = s.cfg.Xtream.Username.String()
			credPass = s.cfg.Xtream.Password.String()
		}
		composed, err = ComposeProxyStreamURL(p, m3u, credUser, credPass)
		return err
	})
	return composed, err
}

// PersistFinalResponseURL pins the origin of an HLS response so that
// subsequent segment requests route to the same host. Single-slot
// semantics; last writer wins.
func (s *Service) PersistFinalResponseURL(ctx context.Context, finalURL *url.URL) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.db.SetHlsURL(tx, ComposeFinalResponseURL(finalURL))
	})
}

// ResolveHlsURL composes an HLS segment URL against the pinned origin.
func (s *Service) ResolveHlsURL(ctx context.Context, seg, id string) (string, error) {
	var origin string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		origin, err = s.db.GetHlsURL(tx)
		return err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", origin, seg, id), nil
}

// ResolveXtreamURL looks up an interned upstream URL for the /url
// passthrough.
func (s *Service) ResolveXtreamURL(ctx context.Context, id uint64) (string, error) {
	var rawURL string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rawURL, err = s.db.GetXtreamURL(tx, id)
		return err
	})
	return rawURL, err
}

// ResolveXmltvURL looks up an interned icon URL for the /xmltv
// passthrough.
func (s *Service) ResolveXmltvURL(ctx context.Context, id uint64) (string, error) {
	var rawURL string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rawURL, err = s.db.GetXmltvURL(tx, id)
		return err
	})
	return rawURL, err
}

// ProxyXMLTV forwards the upstream EPG, rewriting channel icon URLs
// through the /xmltv passthrough; the rest of the document passes
// through untouched.
func (s *Service) ProxyXMLTV(ctx context.Context) ([]byte, string, int, error) {
	endpoint := s.composeUpstreamURL("/xmltv.php", s.credentialsQuery())

	body, header, status, err := s.fetch.GetRaw(ctx, endpoint)
	if err != nil {
		return nil, "", 0, err
	}

	var out []byte
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		out, err = RewriteXMLTVIcons(body, s.cfg.Xtream.ProxiedDomain, func(rawURL string) (uint64, error) {
			return s.db.UpsertXmltvURL(tx, rawURL)
		})
		return err
	})
	if err != nil {
		return nil, "", 0, err
	}

	utils.InfoLog("[%d] xmltv.php => %s", status, utils.MaskURL(endpoint))
	return out, header.Get("Content-Type"), status, nil
}

// ValidateTypeOutput guards get.php: only the m3u_plus type with m3u8,
// ts or rmtp output is served.
func ValidateTypeOutput(typeParam, output string) error {
	if typeParam == "m3u_plus" && (output == "m3u8" || output == "ts" || output == "rmtp") {
		return nil
	}
	return ErrUnsupportedTypeOutput
}
