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
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/database"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
	"github.com/lucasduport/iptv-bridge/pkg/xtream"
)

// unhandledRejection is the opaque body of any unexpected failure.
const unhandledRejection = "UNHANDLED_REJECTION"

// xtreamInternalError is the body Xtream clients expect on server-side
// failures.
const xtreamInternalError = "INTERNAL SERVER ERROR"

// abortWithDomainError maps service errors onto the admin surface:
// missing entities are 404, everything else is an opaque 500.
func abortWithDomainError(ctx *gin.Context, err error) {
	utils.ErrorLog("Request %s failed: %v", ctx.Request.URL.Path, err)

	if errors.Is(err, database.ErrNotFound) || errors.Is(err, xtream.ErrNoProvider) {
		ctx.AbortWithStatusJSON(http.StatusNotFound, types.APIResponse{
			Success: false,
			Error:   "not found",
		})
		return
	}
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, types.APIResponse{
		Success: false,
		Error:   unhandledRejection,
	})
}

// abortWithXtreamError maps service errors on the Xtream surface, which
// expects plain-text bodies.
func abortWithXtreamError(ctx *gin.Context, err error) {
	utils.ErrorLog("Xtream request %s failed: %v", ctx.Request.URL.Path, err)

	if errors.Is(err, database.ErrNotFound) || errors.Is(err, xtream.ErrNoProvider) {
		ctx.String(http.StatusNotFound, xtreamInternalError)
		ctx.Abort()
		return
	}
	ctx.String(http.StatusInternalServerError, xtreamInternalError)
	ctx.Abort()
}

// pathID parses the numeric :id path parameter.
func pathID(ctx *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, types.APIResponse{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}

func mergeHTTPHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
