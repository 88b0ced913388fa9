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

// Package playlist renders a rehydrated provider snapshot into the
// three proxified M3U variants and manages the generated files on disk.
package playlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// Variant selects the URL style of a rendered playlist.
type Variant string

const (
	// VariantCustom points every entry at the /stream/{id} passthrough.
	VariantCustom Variant = "custom"
	// VariantTs composes Xtream-style URLs without the m3u8 extension.
	VariantTs Variant = "ts"
	// VariantM3u8 composes Xtream-style URLs forcing the m3u8 extension.
	VariantM3u8 Variant = "m3u8"
)

// Variants returns every rendered variant in stable order.
func Variants() []Variant {
	return []Variant{VariantCustom, VariantTs, VariantM3u8}
}

// Builder renders playlists against one proxy identity.
type Builder struct {
	dir         string
	proxyDomain string
	username    config.CredentialString
	password    config.CredentialString
}

// NewBuilder creates a renderer writing into dir. The proxied Xtream
// credentials are embedded into ts/m3u8 entry URLs: the path guard on
// the streaming routes accepts them, and the stream proxy substitutes
// the upstream credentials on the way out. The upstream credentials
// never appear in rendered playlists.
func NewBuilder(dir, proxyDomain string, xtream *config.XtreamConfig) *Builder {
	return &Builder{
		dir:         dir,
		proxyDomain: proxyDomain,
		username:    xtream.ProxiedUsername,
		password:    xtream.ProxiedPassword,
	}
}

// RenderAll writes the three variants concurrently. A failing variant
// is logged and abandoned without aborting its peers; the first error
// is returned after all three finished.
func (b *Builder) RenderAll(dto *types.ProviderDTO, now time.Time) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return utils.PrintErrorAndReturn(fmt.Errorf("creating playlist dir: %w", err))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, variant := range Variants() {
		wg.Add(1)
		go func(variant Variant) {
			defer wg.Done()
			path, err := b.render(dto, variant, now)
			if err != nil {
				utils.ErrorLog("Rendering %s playlist failed: %v", variant, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			utils.InfoLog("Rendered %s playlist: %s", variant, path)
		}(variant)
	}
	wg.Wait()
	return firstErr
}

// render writes one variant file and returns its path.
func (b *Builder) render(dto *types.ProviderDTO, variant Variant, now time.Time) (string, error) {
	path := BuildFilePath(b.dir, variant, now)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("#EXTM3U\n"); err != nil {
		return "", err
	}

	skipped := 0
	for i := range dto.ExtInfs {
		entry := &dto.ExtInfs[i]
		if entry.Exclude {
			skipped++
			continue
		}
		if _, err := w.WriteString(b.composeEntry(entry, variant)); err != nil {
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}

	if skipped > 0 {
		utils.DebugLog("Skipped %d excluded entries in %s playlist", skipped, variant)
	}
	return path, nil
}

// composeEntry builds the two lines of one playlist entry.
func (b *Builder) composeEntry(entry *types.ExtInfDTO, variant Variant) string {
	var sb strings.Builder
	sb.WriteString("#EXTINF:-1")
	for _, attr := range entry.Attributes {
		sb.WriteString(fmt.Sprintf(" %s=%q", attr.Key, b.proxifyAttributeValue(&attr)))
	}
	sb.WriteString(",")
	sb.WriteString(entry.Name)
	sb.WriteString("\n")
	sb.WriteString(b.StreamURL(&entry.ExtInf, variant))
	sb.WriteString("\n")
	return sb.String()
}

// proxifyAttributeValue routes URL-typed attribute values (logos and
// the like) through the /attr passthrough; everything else is echoed
// verbatim.
func (b *Builder) proxifyAttributeValue(attr *types.Attribute) string {
	if !strings.HasPrefix(attr.Value, "http://") && !strings.HasPrefix(attr.Value, "https://") {
		return attr.Value
	}
	return fmt.Sprintf("http://%s/attr/%d", b.proxyDomain, attr.ID)
}

// StreamURL composes the proxified streaming URL of one entry for the
// given variant.
//
// Custom targets the /stream passthrough keyed by entry id. Ts and M3u8
// compose Xtream-style paths with the proxy credentials: Ts drops the
// prefix when empty or "live" and never carries an m3u8 extension; M3u8
// defaults the prefix to "live" and always forces the m3u8 extension.
func (b *Builder) StreamURL(entry *types.ExtInf, variant Variant) string {
	switch variant {
	case VariantTs:
		segments := []string{}
		if entry.Prefix != "" && entry.Prefix != "live" {
			segments = append(segments, entry.Prefix)
		}
		segments = append(segments, b.username.String(), b.password.String(), entry.TrackID)
		path := strings.Join(segments, "/")
		if entry.Extension != "" && entry.Extension != "m3u8" {
			path += "." + entry.Extension
		}
		return fmt.Sprintf("http://%s/%s", b.proxyDomain, path)

	case VariantM3u8:
		prefix := entry.Prefix
		if prefix == "" {
			prefix = "live"
		}
		return fmt.Sprintf("http://%s/%s/%s/%s/%s.m3u8",
			b.proxyDomain, prefix, b.username, b.password, entry.TrackID)

	default:
		return fmt.Sprintf("http://%s/stream/%d", b.proxyDomain, entry.ID)
	}
}
