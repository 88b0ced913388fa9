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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/playlist"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
	"github.com/lucasduport/iptv-bridge/pkg/xtream"
)

// xtreamPlayerAPI dispatches player_api.php. Without an action the call
// is a login; with one it is forwarded through the action proxy.
func (c *Config) xtreamPlayerAPI(ctx *gin.Context) {
	action := ctx.Query("action")

	var (
		body   []byte
		status int
		err    error
	)
	if action == "" {
		body, status, err = c.xtream.ProxyLogin(ctx.Request.Context())
	} else {
		params := xtream.OptionalParams{
			CategoryID: ctx.Query("category_id"),
			VodID:      ctx.Query("vod_id"),
			SeriesID:   ctx.Query("series_id"),
			StreamID:   ctx.Query("stream_id"),
		}
		body, status, err = c.xtream.ProxyAction(ctx.Request.Context(), action, params)
	}
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	ctx.Data(status, "application/json", body)
}

// xtreamXMLTV serves the rewritten EPG.
func (c *Config) xtreamXMLTV(ctx *gin.Context) {
	body, contentType, status, err := c.xtream.ProxyXMLTV(ctx.Request.Context())
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	if contentType == "" {
		contentType = "application/xml"
	}
	ctx.Data(status, contentType, body)
}

// xtreamGetPhp serves the newest rendered playlist when the requested
// type and output combination is supported.
func (c *Config) xtreamGetPhp(ctx *gin.Context) {
	if err := xtream.ValidateTypeOutput(ctx.Query("type"), ctx.Query("output")); err != nil {
		utils.WarnLog("get.php rejected: type=%q output=%q", ctx.Query("type"), ctx.Query("output"))
		ctx.String(http.StatusInternalServerError, err.Error())
		ctx.Abort()
		return
	}

	path, err := playlist.LatestAnyFile(c.playlistDir)
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	if path == "" {
		utils.DebugLog("No m3u file available for get.php")
		ctx.Status(http.StatusOK)
		return
	}
	serveM3uFile(ctx, path)
}

// xtreamStreamTwoSegment handles /{username}/{password}/{id}.
func (c *Config) xtreamStreamTwoSegment(ctx *gin.Context) {
	c.streamXtream(ctx, xtream.StreamPath{
		Seg1: ctx.Param("username"),
		Seg2: ctx.Param("password"),
		ID:   ctx.Param("id"),
	})
}

// xtreamStreamPrefixed handles /{kind}/{username}/{password}/{id}.
func (c *Config) xtreamStreamPrefixed(kind string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c.streamXtream(ctx, xtream.StreamPath{
			Seg1: kind,
			Seg2: ctx.Param("username"),
			Seg3: ctx.Param("password"),
			ID:   ctx.Param("id"),
		})
	}
}

// streamXtream recomposes the upstream streaming URL and pipes it
// through. When the upstream answers with an HLS playlist the
// responding origin is pinned so the follow-up segment requests hit
// the same host.
func (c *Config) streamXtream(ctx *gin.Context, p xtream.StreamPath) {
	composed, err := c.xtream.ResolveStreamURL(ctx.Request.Context(), p)
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}

	utils.DebugLog("-> Proxying stream: %s", utils.MaskURL(composed))

	resp, err := c.fetch.Request(ctx.Request.Context(), http.MethodGet, composed, ctx.Request.Header)
	if err != nil {
		ctx.String(http.StatusInternalServerError, xtreamInternalError)
		ctx.Abort()
		return
	}
	defer resp.Body.Close()

	// resp.Request.URL is the post-redirect URL; a request without an
	// extension may still land on an m3u8 playlist.
	if xtream.IsHLSStream(resp.Request.URL.Path) {
		if err := c.xtream.PersistFinalResponseURL(ctx.Request.Context(), resp.Request.URL); err != nil {
			utils.ErrorLog("Cannot persist HLS origin: %v", err)
		}
	}

	c.pipeResponse(ctx, resp)
}
