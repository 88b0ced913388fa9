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
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/playlist"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// createProviderRequest is the POST /provider body.
type createProviderRequest struct {
	Name   *string `json:"name"`
	Source string  `json:"source" binding:"required"`
}

func (c *Config) createProvider(ctx *gin.Context) {
	var req createProviderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid body"})
		return
	}

	source, err := url.Parse(req.Source)
	if err != nil || !source.IsAbs() {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid source url"})
		return
	}

	id, err := c.catalog.CreateProvider(ctx.Request.Context(), req.Name, source)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, types.APIResponse{Success: true, Data: id})
}

func (c *Config) listProviders(ctx *gin.Context) {
	providers, err := c.catalog.ListProviders(ctx.Request.Context())
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: providers})
}

func (c *Config) getProvider(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	dto, err := c.catalog.GetProvider(ctx.Request.Context(), id)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: dto})
}

func (c *Config) deleteProvider(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := c.catalog.DeleteProvider(ctx.Request.Context(), id); err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true})
}

func (c *Config) refreshProviders(ctx *gin.Context) {
	if err := c.catalog.RefreshAll(ctx.Request.Context()); err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true})
}

// getLatestM3u serves the newest generated playlist of any variant.
// Responds 200 with an empty body when nothing has been generated yet,
// the way Xtream clients probe for playlists.
func (c *Config) getLatestM3u(ctx *gin.Context) {
	path, err := playlist.LatestAnyFile(c.playlistDir)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	if path == "" {
		utils.DebugLog("No m3u file available")
		ctx.Status(http.StatusOK)
		return
	}
	serveM3uFile(ctx, path)
}

func (c *Config) m3uExists(ctx *gin.Context) {
	exists, err := playlist.AnyFileExists(c.playlistDir)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	if !exists {
		ctx.Status(http.StatusForbidden)
		return
	}
	ctx.Status(http.StatusOK)
}

// getM3uByName serves one generated file by its bare name. The name is
// confined to the playlist directory.
func (c *Config) getM3uByName(ctx *gin.Context) {
	name := ctx.Param("filename")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".m3u") {
		ctx.Status(http.StatusBadRequest)
		return
	}
	serveM3uFile(ctx, filepath.Join(c.playlistDir, name))
}

// createM3uFilesRequest is the POST /m3u/create body.
type createM3uFilesRequest struct {
	ProviderID uint64 `json:"provider_id" binding:"required"`
}

func (c *Config) createM3uFiles(ctx *gin.Context) {
	var req createM3uFilesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid body"})
		return
	}

	dto, err := c.catalog.GetProvider(ctx.Request.Context(), req.ProviderID)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	if err := c.builder.RenderAll(dto, time.Now()); err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true})
}

func serveM3uFile(ctx *gin.Context, path string) {
	ctx.Header("Content-Disposition", `attachment; filename="playlist.m3u"`)
	ctx.Header("Content-Type", "application/octet-stream")
	ctx.File(path)
}
