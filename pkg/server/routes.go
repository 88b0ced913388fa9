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

package server

import (
	"github.com/gin-gonic/gin"
)

// InitializeRoutes sets up all the routes for the server
func (c *Config) InitializeRoutes(r *gin.Engine) {
	c.providerRoutes(r)
	c.m3uRoutes(r)
	c.proxyRoutes(r)

	if c.Xtream.Enabled {
		c.xtreamRoutes(r)
	}
}

// providerRoutes are the admin catalog endpoints, guarded by the
// internal API key.
func (c *Config) providerRoutes(r *gin.Engine) {
	admin := r.Group("/provider", c.apiKeyAuth())
	admin.GET("", c.listProviders)
	admin.POST("", c.createProvider)
	admin.GET("/refresh", c.refreshProviders)
	admin.GET("/:id", c.getProvider)
	admin.DELETE("/:id", c.deleteProvider)
}

func (c *Config) m3uRoutes(r *gin.Engine) {
	r.GET("/m3u", c.getLatestM3u)
	r.GET("/m3u-exist", c.m3uExists)
	r.GET("/m3u/:filename", c.getM3uByName)
	r.POST("/m3u/create", c.apiKeyAuth(), c.createM3uFiles)
}

// proxyRoutes are the unauthenticated passthrough endpoints referenced
// from rendered playlists and rewritten payloads.
func (c *Config) proxyRoutes(r *gin.Engine) {
	r.GET("/stream/:id", c.streamByExtinfID)
	r.GET("/attr/:id", c.streamByAttributeID)
	r.GET("/hls/:seg/:id", c.streamHlsSegment)
	r.GET("/url/:id", c.streamByXtreamURLID)
	r.GET("/xmltv/:id", c.streamByXmltvURLID)
}

func (c *Config) xtreamRoutes(r *gin.Engine) {
	r.GET("/player_api.php", c.authenticate, c.xtreamPlayerAPI)
	r.GET("/xmltv.php", c.authenticate, c.xtreamXMLTV)
	r.GET("/get.php", c.authenticate, c.xtreamGetPhp)

	// Streaming paths. gin allows the static kind prefixes next to the
	// parameterized two-segment form.
	r.GET("/:username/:password/:id", c.authWithPathCredentials(), c.xtreamStreamTwoSegment)
	r.GET("/live/:username/:password/:id", c.authWithPathCredentials(), c.xtreamStreamPrefixed("live"))
	r.GET("/movie/:username/:password/:id", c.authWithPathCredentials(), c.xtreamStreamPrefixed("movie"))
	r.GET("/series/:username/:password/:id", c.authWithPathCredentials(), c.xtreamStreamPrefixed("series"))
}
