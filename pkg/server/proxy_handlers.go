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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// streamByExtinfID proxies the upstream URL of one channel entry; the
// custom playlist variant points every entry here.
func (c *Config) streamByExtinfID(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	upstream, err := c.catalog.GetExtInfURL(ctx.Request.Context(), id)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	c.stream(ctx, upstream)
}

// streamByAttributeID proxies URL-typed attribute values, logos mostly.
func (c *Config) streamByAttributeID(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	value, err := c.catalog.GetAttributeValue(ctx.Request.Context(), id)
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	c.stream(ctx, value)
}

// streamHlsSegment proxies an HLS segment against the pinned origin of
// the most recent m3u8 response.
func (c *Config) streamHlsSegment(ctx *gin.Context) {
	upstream, err := c.xtream.ResolveHlsURL(ctx.Request.Context(), ctx.Param("seg"), ctx.Param("id"))
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	c.stream(ctx, upstream)
}

// streamByXtreamURLID proxies an interned URL from a rewritten Xtream
// payload.
func (c *Config) streamByXtreamURLID(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	upstream, err := c.xtream.ResolveXtreamURL(ctx.Request.Context(), id)
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	c.stream(ctx, upstream)
}

// streamByXmltvURLID proxies an interned icon URL from a rewritten
// XMLTV document.
func (c *Config) streamByXmltvURLID(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	upstream, err := c.xtream.ResolveXmltvURL(ctx.Request.Context(), id)
	if err != nil {
		abortWithXtreamError(ctx, err)
		return
	}
	c.stream(ctx, upstream)
}

// stream pipes an upstream body through to the client, preserving
// headers and status. The upstream request is bound to the client
// context so a disconnect tears down the upstream connection.
func (c *Config) stream(ctx *gin.Context, upstream string) {
	utils.DebugLog("-> Proxying to upstream URL: %s", utils.MaskURL(upstream))

	resp, err := c.fetch.Request(ctx.Request.Context(), http.MethodGet, upstream, ctx.Request.Header)
	if err != nil {
		ctx.String(http.StatusInternalServerError, unhandledRejection)
		ctx.Abort()
		return
	}
	defer resp.Body.Close()

	c.pipeResponse(ctx, resp)
}

// pipeResponse copies the response through with periodic flushes so
// live streams reach the player immediately.
func (c *Config) pipeResponse(ctx *gin.Context, resp *http.Response) {
	mergeHTTPHeader(ctx.Writer.Header(), resp.Header)
	ctx.Status(resp.StatusCode)

	w := ctx.Writer
	buf := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Request.Context().Done():
			utils.DebugLog("Client cancelled stream for URL: %s", ctx.Request.URL)
			return
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				utils.DebugLog("Client write error: %v", werr)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				utils.DebugLog("Upstream read error: %v", rerr)
			}
			return
		}
	}
}
