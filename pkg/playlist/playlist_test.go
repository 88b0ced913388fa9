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

package playlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/types"
)

func testBuilder(dir string) *Builder {
	return NewBuilder(dir, "proxy.example.com", &config.XtreamConfig{
		Username:        "realuser",
		Password:        "realpass",
		ProxiedUsername: "proxyuser",
		ProxiedPassword: "proxypass",
	})
}

func TestStreamURLVariants(t *testing.T) {
	b := testBuilder(t.TempDir())

	tests := []struct {
		name    string
		entry   types.ExtInf
		variant Variant
		want    string
	}{
		{
			name:    "custom targets the stream passthrough",
			entry:   types.ExtInf{ID: 7, Prefix: "live", TrackID: "101", Extension: "ts"},
			variant: VariantCustom,
			want:    "http://proxy.example.com/stream/7",
		},
		{
			name:    "ts drops the live prefix",
			entry:   types.ExtInf{ID: 7, Prefix: "live", TrackID: "101", Extension: "ts"},
			variant: VariantTs,
			want:    "http://proxy.example.com/proxyuser/proxypass/101.ts",
		},
		{
			name:    "ts drops an empty prefix and m3u8 extension",
			entry:   types.ExtInf{ID: 7, Prefix: "", TrackID: "101", Extension: "m3u8"},
			variant: VariantTs,
			want:    "http://proxy.example.com/proxyuser/proxypass/101",
		},
		{
			name:    "ts keeps the movie prefix and extension",
			entry:   types.ExtInf{ID: 7, Prefix: "movie", TrackID: "2001", Extension: "mkv"},
			variant: VariantTs,
			want:    "http://proxy.example.com/movie/proxyuser/proxypass/2001.mkv",
		},
		{
			name:    "m3u8 defaults the prefix to live",
			entry:   types.ExtInf{ID: 7, Prefix: "", TrackID: "101", Extension: "ts"},
			variant: VariantM3u8,
			want:    "http://proxy.example.com/live/proxyuser/proxypass/101.m3u8",
		},
		{
			name:    "m3u8 substitutes a foreign extension",
			entry:   types.ExtInf{ID: 7, Prefix: "movie", TrackID: "2001", Extension: "mkv"},
			variant: VariantM3u8,
			want:    "http://proxy.example.com/movie/proxyuser/proxypass/2001.m3u8",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.StreamURL(&tc.entry, tc.variant); got != tc.want {
				t.Errorf("StreamURL = %q, want %q", got, tc.want)
			}
		})
	}
}

// Rendered URLs must carry the credentials the path guard validates,
// never the upstream ones.
func TestStreamURLEmbedsProxiedCredentials(t *testing.T) {
	b := testBuilder(t.TempDir())
	entry := types.ExtInf{ID: 7, Prefix: "live", TrackID: "101", Extension: "ts"}

	for _, variant := range []Variant{VariantTs, VariantM3u8} {
		got := b.StreamURL(&entry, variant)
		if !strings.Contains(got, "/proxyuser/proxypass/") {
			t.Errorf("%s URL %q misses the proxied credentials", variant, got)
		}
		if strings.Contains(got, "realuser") || strings.Contains(got, "realpass") {
			t.Errorf("%s URL %q leaks the upstream credentials", variant, got)
		}
	}
}

func TestRenderAllWritesThreeVariants(t *testing.T) {
	dir := t.TempDir()
	b := testBuilder(dir)

	name := "Test Provider"
	dto := &types.ProviderDTO{
		Provider: &types.Provider{ID: 1, Name: &name, Source: "http://up.example.com/get.php"},
		M3u:      &types.M3u{ID: 1, ProviderID: 1, Domain: "up.example.com"},
		ExtInfs: []types.ExtInfDTO{
			{
				ExtInf: types.ExtInf{ID: 10, M3uID: 1, Name: "TF1", Prefix: "live", TrackID: "101", Extension: "ts"},
				Attributes: []types.Attribute{
					{ID: 100, ExtInfID: 10, Key: "tvg-id", Value: "fr.tf1"},
					{ID: 101, ExtInfID: 10, Key: "tvg-logo", Value: "http://logos.example.com/tf1.png"},
				},
			},
			{
				ExtInf: types.ExtInf{ID: 11, M3uID: 1, Name: "Hidden", Prefix: "live", TrackID: "666", Extension: "ts", Exclude: true},
			},
		},
	}

	now := time.Unix(1700000000, 0)
	if err := b.RenderAll(dto, now); err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}

	for _, variant := range Variants() {
		latest, err := LatestFile(dir, variant)
		if err != nil {
			t.Fatalf("LatestFile(%s): %v", variant, err)
		}
		if latest == "" {
			t.Fatalf("no %s playlist written", variant)
		}

		content, err := os.ReadFile(latest)
		if err != nil {
			t.Fatalf("reading %s: %v", latest, err)
		}
		text := string(content)

		if !strings.HasPrefix(text, "#EXTM3U\n") {
			t.Errorf("%s playlist misses the header", variant)
		}
		if !strings.Contains(text, `tvg-logo="http://proxy.example.com/attr/101"`) {
			t.Errorf("%s playlist did not proxify the logo attribute:\n%s", variant, text)
		}
		if !strings.Contains(text, `tvg-id="fr.tf1"`) {
			t.Errorf("%s playlist altered a non-URL attribute:\n%s", variant, text)
		}
		if strings.Contains(text, "Hidden") {
			t.Errorf("%s playlist contains an excluded entry:\n%s", variant, text)
		}
	}
}

func TestFileNamingSortsChronologically(t *testing.T) {
	dir := t.TempDir()

	older := BuildFilePath(dir, VariantTs, time.Unix(1700000000, 0))
	newer := BuildFilePath(dir, VariantTs, time.Unix(1700003600, 0))

	if filepath.Base(older) >= filepath.Base(newer) {
		t.Fatalf("expected %q < %q lexicographically", filepath.Base(older), filepath.Base(newer))
	}
}

func TestPurgeObsoleteKeepsTwoNewestPerVariant(t *testing.T) {
	dir := t.TempDir()

	base := time.Unix(1700000000, 0)
	var newest []string
	for _, variant := range []Variant{VariantCustom, VariantTs, VariantM3u8} {
		for i := 0; i < 4; i++ {
			path := BuildFilePath(dir, variant, base.Add(time.Duration(i)*time.Hour))
			if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			if i >= 2 {
				newest = append(newest, path)
			}
		}
	}

	removed, err := PurgeObsolete(dir)
	if err != nil {
		t.Fatalf("PurgeObsolete failed: %v", err)
	}
	if removed != 6 {
		t.Fatalf("expected 6 removed files, got %d", removed)
	}

	for _, path := range newest {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected surviving file %s: %v", path, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 6 {
		t.Errorf("expected 6 surviving files, got %d", len(entries))
	}
}

// A ts file name sorts after any m3u8/custom name, so the cross-variant
// lookup must order by timestamp, not by name.
func TestLatestAnyFilePicksNewestAcrossVariants(t *testing.T) {
	dir := t.TempDir()

	stale := BuildFilePath(dir, VariantTs, time.Unix(1700000000, 0))
	fresh := BuildFilePath(dir, VariantM3u8, time.Unix(1700003600, 0))
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := LatestAnyFile(dir)
	if err != nil {
		t.Fatalf("LatestAnyFile failed: %v", err)
	}
	if latest != fresh {
		t.Errorf("LatestAnyFile = %q, want %q", latest, fresh)
	}
}

func TestLatestFileEmptyDir(t *testing.T) {
	latest, err := LatestFile(t.TempDir(), VariantCustom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != "" {
		t.Errorf("expected empty result, got %q", latest)
	}

	exists, err := AnyFileExists(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected no generated files")
	}
}
