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

package utils

import "os"

// GetIPTVUserAgent returns the user agent to use for IPTV upstream requests.
// Uses the USER_AGENT environment variable if set, otherwise defaults to "IPTVSmartersPro";
// some providers reject requests carrying unknown agents.
func GetIPTVUserAgent() string {
	userAgent := os.Getenv("USER_AGENT")
	if userAgent == "" {
		return "IPTVSmartersPro"
	}
	return userAgent
}

// GetLanguageHeader returns the Accept-Language value for upstream requests.
func GetLanguageHeader() string {
	lang := os.Getenv("ACCEPT_LANGUAGE")
	if lang == "" {
		return "en-US,en;q=0.9"
	}
	return lang
}
