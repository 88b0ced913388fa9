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

// Package server is the gin HTTP surface. Handlers stay thin: decode
// inputs, call a service, map domain errors onto status codes.
package server

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/catalog"
	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/playlist"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
	"github.com/lucasduport/iptv-bridge/pkg/xtream"
)

// Config represents the server configuration
type Config struct {
	*config.ProxyConfig

	catalog *catalog.Service
	xtream  *xtream.Service
	fetch   *fetcher.Client
	builder *playlist.Builder

	// directory holding the generated playlist files
	playlistDir string
}

// NewServer wires the HTTP surface to the service layer.
func NewServer(cfg *config.ProxyConfig, cat *catalog.Service, xt *xtream.Service, fetch *fetcher.Client, builder *playlist.Builder, playlistDir string) *Config {
	return &Config{
		ProxyConfig: cfg,
		catalog:     cat,
		xtream:      xt,
		fetch:       fetch,
		builder:     builder,
		playlistDir: playlistDir,
	}
}

// Serve starts the HTTP listener and blocks.
func (c *Config) Serve() error {
	if !c.ProxyConfig.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(cors.Default())

	c.InitializeRoutes(r)

	utils.InfoLog("Listening on :%d", c.Port)
	return r.Run(fmt.Sprintf(":%d", c.Port))
}
