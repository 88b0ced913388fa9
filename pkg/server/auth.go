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
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

var internalAPIKey string

func init() {
	// Generate a random API key at startup or use from environment
	envKey := os.Getenv("INTERNAL_API_KEY")
	if envKey != "" {
		internalAPIKey = envKey
		utils.InfoLog("Using API key from environment")
	} else {
		internalAPIKey = uuid.New().String()
		utils.InfoLog("Generated new internal API key: %s", internalAPIKey)
	}
}

// GetAPIKey returns the process-wide admin API key.
func GetAPIKey() string {
	return internalAPIKey
}

// apiKeyAuth middleware validates the internal API key on the admin
// routes.
func (c *Config) apiKeyAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader("X-API-Key")
		if key != internalAPIKey {
			utils.DebugLog("API authentication failed - invalid key: %s", utils.MaskString(key))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
				Success: false,
				Error:   "Invalid API key",
			})
			return
		}
		ctx.Next()
	}
}

// authRequest represents credentials supplied via query params.
type authRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// authenticate validates query credentials against the proxied Xtream
// credentials. Used by player_api.php, xmltv.php and get.php.
func (c *Config) authenticate(ctx *gin.Context) {
	utils.DebugLog("-> Incoming URL: %s", ctx.Request.URL)
	var authReq authRequest
	if err := ctx.ShouldBindQuery(&authReq); err != nil {
		utils.DebugLog("Bind error: %v", err)
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}

	if authReq.Username != c.Xtream.ProxiedUsername.String() ||
		authReq.Password != c.Xtream.ProxiedPassword.String() {
		utils.DebugLog("Query authentication failed for user: %s", utils.MaskString(authReq.Username))
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}
	ctx.Next()
}

// authWithPathCredentials validates the credential segments of the
// streaming paths: segments one and two in the two-segment form,
// segments two and three when a kind prefix leads the path.
func (c *Config) authWithPathCredentials() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username := ctx.Param("username")
		password := ctx.Param("password")

		if username != c.Xtream.ProxiedUsername.String() ||
			password != c.Xtream.ProxiedPassword.String() {
			utils.DebugLog("Path authentication failed for user: %s", utils.MaskString(username))
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
		ctx.Next()
	}
}
