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

package parser

import (
	"context"
	"strings"
	"testing"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="fr.tf1" tvg-name="TF1 HD" tvg-logo="http://logos.example.com/tf1.png" group-title="France",TF1 HD
http://iptv.example.org:8080/live/user1/pass1/101.ts
#EXTINF:-1 tvg-id="fr.m6" tvg-name="M6" group-title="France",M6
http://iptv.example.org:8080/live/user1/pass1/102.ts
#EXTINF:-1 tvg-id="" tvg-name="Some Movie" group-title="VOD | Action",Some Movie
http://iptv.example.org:8080/movie/user1/pass1/2001.mkv
#EXTINF:-1 tvg-id="xx.adult" tvg-name="Blocked" group-title="For Adults",Blocked
http://iptv.example.org:8080/live/user1/pass1/666.ts
`

func TestParsePlaylist(t *testing.T) {
	parsed, err := New([]string{"adults"}).Parse(context.Background(), strings.NewReader(samplePlaylist))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if got := len(parsed.ExtInfs); got != 4 {
		t.Fatalf("expected 4 channel entries, got %d", got)
	}
	if got := len(parsed.Groups); got != 3 {
		t.Fatalf("expected 3 unique groups, got %d", got)
	}

	first := parsed.ExtInfs[0]
	if first.Name != "TF1 HD" {
		t.Errorf("expected name %q, got %q", "TF1 HD", first.Name)
	}
	if first.GroupTitle != "France" {
		t.Errorf("expected group %q, got %q", "France", first.GroupTitle)
	}
	if first.TrackID != "101" || first.Extension != "ts" || first.Prefix != "live" {
		t.Errorf("unexpected track decomposition: id=%q ext=%q prefix=%q", first.TrackID, first.Extension, first.Prefix)
	}
	if first.Exclude {
		t.Error("unexcluded group flagged as excluded")
	}

	if got := len(first.Attributes); got != 4 {
		t.Fatalf("expected 4 attributes, got %d", got)
	}
	if first.Attributes[0].Key != "tvg-id" || first.Attributes[0].Value != "fr.tf1" {
		t.Errorf("unexpected first attribute: %+v", first.Attributes[0])
	}
	if first.Attributes[2].Value != "http://logos.example.com/tf1.png" {
		t.Errorf("unexpected logo attribute value: %q", first.Attributes[2].Value)
	}

	movie := parsed.ExtInfs[2]
	if movie.Prefix != "movie" || movie.Extension != "mkv" {
		t.Errorf("unexpected movie decomposition: prefix=%q ext=%q", movie.Prefix, movie.Extension)
	}

	blocked := parsed.ExtInfs[3]
	if !blocked.Exclude {
		t.Error("expected adult group entry to be excluded")
	}
}

func TestParseGroupDedupe(t *testing.T) {
	parsed, err := New(nil).Parse(context.Background(), strings.NewReader(samplePlaylist))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	want := []string{"France", "VOD | Action", "For Adults"}
	if len(parsed.Groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(parsed.Groups))
	}
	for i, name := range want {
		if parsed.Groups[i].Name != name {
			t.Errorf("group %d: expected %q, got %q", i, name, parsed.Groups[i].Name)
		}
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	playlist := strings.Join([]string{
		"#EXTM3U",
		"this is not a directive",
		`#EXTINF:-1 tvg-id="a" group-title="News",Good Channel`,
		"http://host.example.com/live/u/p/1.ts",
		`#EXTINF:-1 tvg-id="b" group-title="News",Channel Without URL`,
		"not a url at all and no scheme",
		`#EXTINF:-1 tvg-id="c" group-title="News",Trailing Entry`,
	}, "\n")

	parsed, err := New(nil).Parse(context.Background(), strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if got := len(parsed.ExtInfs); got != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", got)
	}
	if parsed.ExtInfs[0].Name != "Good Channel" {
		t.Errorf("wrong surviving entry: %q", parsed.ExtInfs[0].Name)
	}
}

// Every physical line must count toward the total, including URL lines
// consumed as the successor of an EXTINF line.
func TestScanCountsEveryLine(t *testing.T) {
	playlist := strings.Join([]string{
		"#EXTM3U",
		"this is not a directive",
		`#EXTINF:-1 tvg-id="a" group-title="News",Good Channel`,
		"http://host.example.com/live/u/p/1.ts",
		`#EXTINF:-1 tvg-id="b" group-title="News",Channel Without URL`,
		"not a url at all and no scheme",
		`#EXTINF:-1 tvg-id="c" group-title="News",Trailing Entry`,
	}, "\n")

	extinfs, stats, err := New(nil).scan(strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}

	if got := len(extinfs); got != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", got)
	}
	if stats.totalLines != 7 {
		t.Errorf("totalLines = %d, want 7", stats.totalLines)
	}
	if stats.invalidLines != 2 {
		t.Errorf("invalidLines = %d, want 2", stats.invalidLines)
	}
	if stats.invalidExtinfEntries != 2 {
		t.Errorf("invalidExtinfEntries = %d, want 2", stats.invalidExtinfEntries)
	}
}

func TestParseEntryWithoutAttributesIsIgnored(t *testing.T) {
	playlist := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:-1,Bare Name Channel",
		"http://host.example.com/live/u/p/9.ts",
	}, "\n")

	parsed, err := New(nil).Parse(context.Background(), strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got := len(parsed.ExtInfs); got != 0 {
		t.Fatalf("expected attribute-less entry to be ignored, got %d entries", got)
	}
}

func TestParseNameWithCommaInsideQuotes(t *testing.T) {
	playlist := strings.Join([]string{
		"#EXTM3U",
		`#EXTINF:-1 tvg-name="News, World" group-title="News, International",World News`,
		"http://host.example.com/live/u/p/42.ts",
	}, "\n")

	parsed, err := New(nil).Parse(context.Background(), strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got := len(parsed.ExtInfs); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}

	entry := parsed.ExtInfs[0]
	if entry.Name != "World News" {
		t.Errorf("expected name %q, got %q", "World News", entry.Name)
	}
	if entry.GroupTitle != "News, International" {
		t.Errorf("expected group %q, got %q", "News, International", entry.GroupTitle)
	}
}

func TestParseTrack(t *testing.T) {
	tests := []struct {
		segment   string
		id        string
		extension string
	}{
		{"101.ts", "101", "ts"},
		{"2001.mkv", "2001", "mkv"},
		{"42", "42", ""},
		{"index.m3u8", "index", "m3u8"},
	}

	for _, tc := range tests {
		track := ParseTrack(tc.segment)
		if track.ID != tc.id || track.Extension != tc.extension {
			t.Errorf("ParseTrack(%q) = {%q %q}, want {%q %q}",
				tc.segment, track.ID, track.Extension, tc.id, tc.extension)
		}
	}
}

func TestExcludeMatchingIsCaseInsensitive(t *testing.T) {
	p := New([]string{"ADULTS", "shopping"})

	tests := []struct {
		group   string
		exclude bool
	}{
		{"For Adults", true},
		{"Home Shopping Network", true},
		{"News", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := p.isExcluded(tc.group); got != tc.exclude {
			t.Errorf("isExcluded(%q) = %v, want %v", tc.group, got, tc.exclude)
		}
	}
}
