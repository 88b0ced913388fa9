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

// Package parser turns a raw M3U body into structured channel entries
// and groups. Malformed lines are skipped and counted, never fatal; only
// a failed playlist fetch aborts a parse.
package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// validExtinfLine requires at least one key="value" pair and a display
// name after the closing comma.
var validExtinfLine = regexp.MustCompile(`^(#\S+(?:\s+[^\s="]+=".*")+),(.*)\s*(.*)`)

// keyValuePairs captures the attribute list of an EXTINF line.
var keyValuePairs = regexp.MustCompile(`[^\s"]+(?:"[^"]*")`)

// streamKindPrefixes are the Xtream-style path segments that classify a
// stream URL.
var streamKindPrefixes = map[string]bool{
	"live":   true,
	"movie":  true,
	"series": true,
}

// Parser holds the exclude patterns and the optional Xtream enrichment
// collaborators.
type Parser struct {
	groupExcludes []string
	xtream        *config.XtreamConfig
	fetch         *fetcher.Client
}

// New creates a parser without Xtream enrichment.
func New(groupExcludes []string) *Parser {
	return &Parser{groupExcludes: groupExcludes}
}

// NewWithXtream creates a parser that cross-references groups against
// the upstream Xtream category catalog.
func NewWithXtream(groupExcludes []string, xtream *config.XtreamConfig, fetch *fetcher.Client) *Parser {
	return &Parser{
		groupExcludes: groupExcludes,
		xtream:        xtream,
		fetch:         fetch,
	}
}

// ParseURL fetches the playlist at source and parses it.
func (p *Parser) ParseURL(ctx context.Context, fetch *fetcher.Client, source string) (*types.ParsedM3u, error) {
	resp, err := fetch.Get(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("could not get m3u content: %w", err)
	}
	defer resp.Body.Close()

	return p.Parse(ctx, resp.Body)
}

// parseStats are the line accounting counters of one scan.
type parseStats struct {
	totalLines           int
	invalidLines         int
	invalidExtinfEntries int
}

// Parse consumes a textual M3U body.
func (p *Parser) Parse(ctx context.Context, body io.Reader) (*types.ParsedM3u, error) {
	extinfs, stats, err := p.scan(body)
	if err != nil {
		return nil, err
	}

	utils.InfoLog("Ignored %d invalid extinf entries", stats.invalidExtinfEntries)
	utils.InfoLog("Ignored %d invalid lines out of a total of %d lines", stats.invalidLines, stats.totalLines)

	groups := collectGroups(extinfs)

	if p.xtream != nil && p.xtream.Enabled {
		if err := p.enrichGroups(ctx, groups); err != nil {
			return nil, fmt.Errorf("enriching groups with xtream categories: %w", err)
		}
	}

	return &types.ParsedM3u{ExtInfs: extinfs, Groups: groups}, nil
}

// scan walks the body line by line and extracts the channel entries.
// Every physical line counts toward totalLines, including URL lines
// consumed as the successor of an EXTINF line.
func (p *Parser) scan(body io.Reader) ([]types.ParsedExtInf, parseStats, error) {
	var stats parseStats
	extinfs := []types.ParsedExtInf{}

	scanner := bufio.NewScanner(body)
	// Some playlists carry very wide EXTINF lines.
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		stats.totalLines++

		if !isValidLine(line) {
			stats.invalidLines++
			utils.DebugLog("Invalid line ignored: %s", line)
			continue
		}

		if !validExtinfLine.MatchString(line) {
			continue
		}

		if !scanner.Scan() {
			stats.invalidExtinfEntries++
			utils.DebugLog("Skipped trailing extinf entry with no URL line: %s", line)
			break
		}
		stats.totalLines++

		urlLine := strings.TrimSpace(scanner.Text())
		parsedURL, err := parseAbsoluteURL(urlLine)
		if err != nil {
			stats.invalidExtinfEntries++
			stats.invalidLines++
			utils.DebugLog("Skipped invalid extinf entry: %s / %s", line, urlLine)
			continue
		}

		attributes := parseAttributes(line)
		groupTitle := groupTitleOf(attributes)
		track := ParseTrack(lastPathSegment(parsedURL))

		extinfs = append(extinfs, types.ParsedExtInf{
			Name:       parseName(line),
			URL:        urlLine,
			GroupTitle: groupTitle,
			TrackID:    track.ID,
			Prefix:     parsePrefix(parsedURL),
			Extension:  track.Extension,
			Exclude:    p.isExcluded(groupTitle),
			Attributes: attributes,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading m3u body: %w", err)
	}
	return extinfs, stats, nil
}

// isValidLine accepts only EXTINF and header lines; URL lines are
// consumed as the successor of a valid EXTINF line.
func isValidLine(line string) bool {
	return strings.HasPrefix(line, "#EXTINF") || strings.HasPrefix(line, "#EXTM3U")
}

func parseAbsoluteURL(line string) (*url.URL, error) {
	u, err := url.Parse(line)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("not an absolute URL: %q", line)
	}
	return u, nil
}

// parseName returns the display name after the final `",`.
func parseName(extinfLine string) string {
	parts := strings.Split(extinfLine, `",`)
	return parts[len(parts)-1]
}

func parseAttributes(extinfLine string) []types.ParsedAttribute {
	captures := keyValuePairs.FindAllString(extinfLine, -1)

	attributes := make([]types.ParsedAttribute, 0, len(captures))
	for _, capture := range captures {
		key, _, found := strings.Cut(capture, "=")
		if !found {
			continue
		}
		quoted := strings.SplitN(capture, `"`, 3)
		if len(quoted) < 2 {
			continue
		}
		attributes = append(attributes, types.ParsedAttribute{Key: key, Value: quoted[1]})
	}
	return attributes
}

func groupTitleOf(attributes []types.ParsedAttribute) string {
	for _, attr := range attributes {
		if attr.Key == "group-title" {
			return attr.Value
		}
	}
	return ""
}

// parsePrefix returns the stream-kind path segment when the URL starts
// with one, empty otherwise.
func parsePrefix(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && streamKindPrefixes[segments[0]] {
		return segments[0]
	}
	return ""
}

func lastPathSegment(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// ParseTrack splits a final path component into track id and extension
// at the first dot.
func ParseTrack(segment string) types.Track {
	id, extension, found := strings.Cut(segment, ".")
	if !found {
		return types.Track{ID: segment}
	}
	return types.Track{ID: id, Extension: extension}
}

// isExcluded reports whether some exclude pattern is a case-insensitive
// substring of the group title. Entries without a group are never
// excluded.
func (p *Parser) isExcluded(groupTitle string) bool {
	if groupTitle == "" {
		return false
	}
	lowered := strings.ToLower(groupTitle)
	for _, pattern := range p.groupExcludes {
		if pattern == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// collectGroups dedupes group titles preserving first-seen order; each
// group carries the exclude flag of its first occurrence.
func collectGroups(extinfs []types.ParsedExtInf) []types.ParsedGroup {
	seen := map[string]bool{}
	groups := []types.ParsedGroup{}

	for _, extinf := range extinfs {
		if extinf.GroupTitle == "" || seen[extinf.GroupTitle] {
			continue
		}
		seen[extinf.GroupTitle] = true
		groups = append(groups, types.ParsedGroup{
			Name:    extinf.GroupTitle,
			Exclude: extinf.Exclude,
		})
	}
	return groups
}

// CountGroups returns the number of unique non-empty group titles.
func CountGroups(parsed *types.ParsedM3u) uint {
	return uint(len(parsed.Groups))
}

// CountChannels returns the number of parsed channel entries.
func CountChannels(parsed *types.ParsedM3u) uint {
	return uint(len(parsed.ExtInfs))
}
