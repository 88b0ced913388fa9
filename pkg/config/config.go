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

package config

import "net/url"

// CredentialString hides its value from accidental fmt printing.
type CredentialString string

// String returns the raw credential value.
func (s CredentialString) String() string {
	return string(s)
}

// Environment selects refresh behavior at startup and on scheduled ticks.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// XtreamConfig carries the upstream Xtream credentials and the
// proxy-facing ones clients authenticate with.
type XtreamConfig struct {
	Enabled bool

	// Real upstream panel and credentials; never exposed to clients.
	BaseDomain string
	Username   CredentialString
	Password   CredentialString

	// Public proxy domain and the credentials clients authenticate
	// with.
	ProxiedDomain   string
	ProxiedUsername CredentialString
	ProxiedPassword CredentialString
}

// ProxyConfig is the full process configuration, initialised once in cmd
// and passed explicitly through component constructors.
type ProxyConfig struct {
	Port int

	// M3uURL is the configured provider source playlist.
	M3uURL *url.URL

	DatabaseURL string

	// InitApp runs the ingest/generate path at startup.
	InitApp bool

	Environment Environment

	// HourlyUpdateFrequency is the provider refresh interval in hours.
	HourlyUpdateFrequency int

	// GroupExcludes are case-insensitive substring patterns matched
	// against group-title values.
	GroupExcludes []string

	// ProxyDomain is the public hostname composed into proxified URLs.
	ProxyDomain string

	Xtream XtreamConfig
}

// IsDevelopment reports whether the process runs with development refresh
// semantics (refresh and regenerate on every startup and tick).
func (c *ProxyConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
