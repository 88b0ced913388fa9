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

package types

import "time"

// Provider is one ingest snapshot of a playlist source. Multiple rows may
// share a Source; the newest by CreatedAt is the authoritative one.
type Provider struct {
	ID         uint64     `json:"id"`
	Name       *string    `json:"name,omitempty"`
	Source     string     `json:"source"`
	Groups     *uint      `json:"groups,omitempty"`
	Channels   *uint      `json:"channels,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// M3u is one playlist version owned by a Provider. Domain and Port are
// taken from the source URL and used to reconstruct upstream stream URLs.
type M3u struct {
	ID         uint64     `json:"id"`
	ProviderID uint64     `json:"provider_id"`
	Domain     string     `json:"domain"`
	Port       *uint16    `json:"port,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// ExtInf is a single channel entry of an m3u version.
type ExtInf struct {
	ID        uint64 `json:"id"`
	M3uID     uint64 `json:"m3u_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	TrackID   string `json:"track_id,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Extension string `json:"extension,omitempty"`
	Exclude   bool   `json:"exclude"`
}

// Attribute is one key="value" pair from an EXTINF line.
type Attribute struct {
	ID       uint64 `json:"id"`
	ExtInfID uint64 `json:"extinf_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Group is a deduplicated group-title of an m3u version. XtreamCatID is
// set when the upstream Xtream catalog exposed a category with the same
// name.
type Group struct {
	ID          uint64 `json:"id"`
	M3uID       uint64 `json:"m3u_id"`
	Name        string `json:"name"`
	Exclude     bool   `json:"exclude"`
	XtreamCatID *int64 `json:"xtream_cat_id,omitempty"`
}

// ExtInfDTO is an ExtInf rehydrated with its attribute bag.
type ExtInfDTO struct {
	ExtInf
	Attributes []Attribute `json:"attributes"`
}

// ProviderDTO is a fully rehydrated provider snapshot as served by the
// admin API and consumed by the playlist renderer.
type ProviderDTO struct {
	Provider *Provider   `json:"provider"`
	M3u      *M3u        `json:"m3u"`
	ExtInfs  []ExtInfDTO `json:"extinfs"`
}

// ParsedAttribute preserves the attribute order of the EXTINF line.
type ParsedAttribute struct {
	Key   string
	Value string
}

// ParsedExtInf is a parser-produced channel entry before persistence.
type ParsedExtInf struct {
	Name       string
	URL        string
	GroupTitle string
	TrackID    string
	Prefix     string
	Extension  string
	Exclude    bool
	Attributes []ParsedAttribute
}

// ParsedGroup is a parser-produced group before persistence.
type ParsedGroup struct {
	Name        string
	Exclude     bool
	XtreamCatID *int64
}

// ParsedM3u is the parser output: the ordered channel entries and the
// first-seen-ordered unique groups.
type ParsedM3u struct {
	ExtInfs []ParsedExtInf
	Groups  []ParsedGroup
}

// Track is the final path component of a streaming URL split into the
// track id and its optional extension.
type Track struct {
	ID        string
	Extension string
}

// APIResponse is the admin API envelope for non-entity responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
