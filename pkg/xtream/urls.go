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

package xtream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lucasduport/iptv-bridge/pkg/parser"
	"github.com/lucasduport/iptv-bridge/pkg/types"
)

// StreamPath is a client streaming request path. The two-segment form
// /{seg1}/{seg2}/{id} carries credentials in seg1/seg2; the
// three-segment form /{seg1}/{seg2}/{seg3}/{id} carries the stream-kind
// prefix in seg1 and credentials in seg2/seg3.
type StreamPath struct {
	Seg1 string
	Seg2 string
	Seg3 string // empty in the two-segment form
	ID   string // final component, may carry an extension
}

// HasPrefix reports whether the path uses the three-segment form.
func (p StreamPath) HasPrefix() bool {
	return p.Seg3 != ""
}

// ComposeProxyStreamURL reconstructs the upstream streaming URL from
// the stored m3u host and the request path. When credential
// replacements are given, they substitute the credential segments;
// the kind prefix of the three-segment form is always preserved.
func ComposeProxyStreamURL(p StreamPath, m3u *types.M3u, credUser, credPass string) (string, error) {
	var sb strings.Builder
	composeHost(&sb, m3u)

	writeSegment := func(original, replacement string) {
		if replacement != "" {
			sb.WriteString("/" + replacement)
			return
		}
		sb.WriteString("/" + original)
	}

	if p.HasPrefix() {
		sb.WriteString("/" + p.Seg1)
		writeSegment(p.Seg2, credUser)
		writeSegment(p.Seg3, credPass)
	} else {
		writeSegment(p.Seg1, credUser)
		writeSegment(p.Seg2, credPass)
	}

	track := parser.ParseTrack(p.ID)
	sb.WriteString("/" + track.ID)
	if track.Extension != "" {
		sb.WriteString("." + track.Extension)
	}

	composed := sb.String()
	if _, err := url.Parse(composed); err != nil {
		return "", fmt.Errorf("cannot parse composed stream url: %w", err)
	}
	return composed, nil
}

func composeHost(sb *strings.Builder, m3u *types.M3u) {
	sb.WriteString("http://")
	sb.WriteString(m3u.Domain)
	if m3u.Port != nil {
		fmt.Fprintf(sb, ":%d", *m3u.Port)
	}
}

// ComposeFinalResponseURL reduces a response URL to its origin,
// scheme://host[:port], the form pinned for HLS segment routing.
func ComposeFinalResponseURL(u *url.URL) string {
	origin := u.Scheme + "://" + u.Hostname()
	if port := u.Port(); port != "" {
		origin += ":" + port
	}
	return origin
}

// IsHLSStream reports whether a URL points at an HLS playlist.
func IsHLSStream(rawURL string) bool {
	return strings.HasSuffix(rawURL, ".m3u8")
}
