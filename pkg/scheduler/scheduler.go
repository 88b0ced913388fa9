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

// Package scheduler runs the periodic maintenance jobs: provider
// refresh, playlist file purge and catalog snapshot purge. Every job is
// single-flight; a tick arriving while the previous run is still active
// is skipped, never queued.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/catalog"
	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/playlist"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

const (
	filePurgeInterval    = 6 * time.Hour
	catalogPurgeInterval = 24 * time.Hour
)

// Scheduler owns the three periodic jobs.
type Scheduler struct {
	cfg     *config.ProxyConfig
	catalog *catalog.Service
	builder *playlist.Builder
	dir     string

	refreshInFlight      atomic.Bool
	filePurgeInFlight    atomic.Bool
	catalogPurgeInFlight atomic.Bool
}

// New creates the scheduler. dir is the playlist output directory, the
// same one the builder writes into.
func New(cfg *config.ProxyConfig, cat *catalog.Service, builder *playlist.Builder, dir string) *Scheduler {
	return &Scheduler{cfg: cfg, catalog: cat, builder: builder, dir: dir}
}

// InitApp runs the startup ingest path: create the configured provider
// when it does not exist yet, otherwise bring it up to date.
func (s *Scheduler) InitApp(ctx context.Context) error {
	exists, err := s.catalog.ProviderExists(ctx, s.cfg.M3uURL.String())
	if err != nil {
		return err
	}
	if exists {
		s.TryProviderUpdate(ctx)
		return nil
	}

	utils.InfoLog("Creating new provider..")
	id, err := s.catalog.CreateProvider(ctx, nil, s.cfg.M3uURL)
	if err != nil {
		return err
	}
	return s.render(ctx, id)
}

// TryProviderUpdate refreshes the configured provider when its newest
// snapshot is older than the update frequency, or unconditionally in
// development. An up-to-date provider still gets its playlist files
// rendered when none exist.
func (s *Scheduler) TryProviderUpdate(ctx context.Context) {
	provider, err := s.catalog.GetLatestProviderBySource(ctx, s.cfg.M3uURL.String())
	if err != nil {
		utils.ErrorLog("Provider update failed: %v", err)
		return
	}

	threshold := time.Duration(s.cfg.HourlyUpdateFrequency) * time.Hour
	stale := provider.CreatedAt.Add(threshold).Before(time.Now())

	if stale || s.cfg.IsDevelopment() {
		utils.InfoLog("Provider is out of date, refreshing..")
		id, err := s.catalog.CreateProvider(ctx, provider.Name, s.cfg.M3uURL)
		if err != nil {
			utils.ErrorLog("Provider refresh failed: %v", err)
			return
		}
		if err := s.render(ctx, id); err != nil {
			utils.ErrorLog("Playlist generation failed: %v", err)
		}
		return
	}

	utils.InfoLog("Provider is up to date. Skipping update...")
	rendered, err := playlist.AnyFileExists(s.dir)
	if err != nil {
		utils.ErrorLog("Checking playlist files failed: %v", err)
		return
	}
	if !rendered {
		utils.InfoLog("Creating new m3u file..")
		if err := s.render(ctx, provider.ID); err != nil {
			utils.ErrorLog("Playlist generation failed: %v", err)
		}
	}
}

// render rehydrates a snapshot and writes the three playlist variants.
func (s *Scheduler) render(ctx context.Context, providerID uint64) error {
	dto, err := s.catalog.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	return s.builder.RenderAll(dto, time.Now())
}

// Run starts the three job loops and blocks until ctx is cancelled.
// Job bodies are not cancelled mid-tick.
func (s *Scheduler) Run(ctx context.Context) {
	refreshInterval := time.Duration(s.cfg.HourlyUpdateFrequency) * time.Hour

	go s.loop(ctx, "provider refresh", refreshInterval, &s.refreshInFlight, func() {
		s.TryProviderUpdate(context.Background())
	})
	go s.loop(ctx, "file purge", filePurgeInterval, &s.filePurgeInFlight, func() {
		if _, err := playlist.PurgeObsolete(s.dir); err != nil {
			utils.ErrorLog("Playlist purge failed: %v", err)
		}
	})
	go s.loop(ctx, "catalog purge", catalogPurgeInterval, &s.catalogPurgeInFlight, func() {
		if _, err := s.catalog.PurgeObsolete(context.Background()); err != nil {
			utils.ErrorLog("Catalog purge failed: %v", err)
		}
	})

	<-ctx.Done()
}

// loop ticks the job at the given interval. inFlight guards against
// overlap: a tick that finds the previous run active is dropped.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, inFlight *atomic.Bool, job func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !inFlight.CompareAndSwap(false, true) {
				utils.WarnLog("Skipping %s tick: previous run still active", name)
				continue
			}
			utils.DebugLog("Running %s job", name)
			job()
			inFlight.Store(false)
		}
	}
}
