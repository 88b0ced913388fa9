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
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/lucasduport/iptv-bridge/pkg/types"
)

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"number", `42`, 42},
		{"quoted number", `"42"`, 42},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"garbage string", `"abc"`, 0},
		{"negative", `-7`, -7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id FlexID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if id.Int64() != tt.want {
				t.Errorf("got %d, want %d", id.Int64(), tt.want)
			}
		})
	}
}

func TestFlexIDMarshal(t *testing.T) {
	out, err := json.Marshal(FlexID(17))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "17" {
		t.Errorf("got %s, want 17", out)
	}
}

func TestLiveStreamRoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{"stream_id":"5","name":"CH","custom_panel_field":{"x":1}}`

	var s LiveStream
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}
	if s.ComparableID() != "5" {
		t.Errorf("ComparableID = %q, want 5", s.ComparableID())
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != raw {
		t.Errorf("round trip altered payload:\n got %s\nwant %s", out, raw)
	}
}

// memoryInserter assigns sequential ids and records what was interned.
type memoryInserter struct {
	urls []string
}

func (m *memoryInserter) insert(rawURL string) (uint64, error) {
	m.urls = append(m.urls, rawURL)
	return uint64(len(m.urls)), nil
}

func TestProxifyJSONObject(t *testing.T) {
	in := []byte(`{"name":"CH","stream_icon":"http://up.example.com/logo.png","plot":"no url here"}`)

	ins := &memoryInserter{}
	out, err := ProxifyJSON(in, "proxy.example.com", ins.insert)
	if err != nil {
		t.Fatal(err)
	}

	got := string(out)
	if !strings.Contains(got, `"stream_icon":"http://proxy.example.com/url/1"`) {
		t.Errorf("icon not proxified: %s", got)
	}
	if !strings.Contains(got, `"plot":"no url here"`) {
		t.Errorf("non-URL value altered: %s", got)
	}
	if len(ins.urls) != 1 || ins.urls[0] != "http://up.example.com/logo.png" {
		t.Errorf("interned %v", ins.urls)
	}
}

func TestProxifyJSONNestedArrays(t *testing.T) {
	in := []byte(`{"info":{"backdrop_path":["https://a.example.com/1.jpg","not a url","https://a.example.com/2.jpg"]}}`)

	ins := &memoryInserter{}
	out, err := ProxifyJSON(in, "proxy.example.com", ins.insert)
	if err != nil {
		t.Fatal(err)
	}

	got := string(out)
	if !strings.Contains(got, `"http://proxy.example.com/url/1"`) ||
		!strings.Contains(got, `"http://proxy.example.com/url/2"`) {
		t.Errorf("array entries not proxified: %s", got)
	}
	if !strings.Contains(got, `"not a url"`) {
		t.Errorf("plain string altered: %s", got)
	}
	if len(ins.urls) != 2 {
		t.Errorf("interned %v", ins.urls)
	}
}

func TestProxifyJSONInserterErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	_, err := ProxifyJSON([]byte(`{"u":"http://x.example.com/a"}`), "p", func(string) (uint64, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped db down", err)
	}
}

func TestRewriteXMLTVIcons(t *testing.T) {
	in := []byte(`<?xml version="1.0"?>
<tv generator-info-name="panel">
  <channel id="ch1">
    <display-name>One</display-name>
    <icon src="http://up.example.com/one.png"/>
  </channel>
  <channel id="ch2">
    <icon src="relative/two.png"/>
  </channel>
  <programme channel="ch1" start="20260825060000 +0000"><title>News &amp; More</title></programme>
</tv>`)

	ins := &memoryInserter{}
	out, err := RewriteXMLTVIcons(in, "proxy.example.com", ins.insert)
	if err != nil {
		t.Fatal(err)
	}

	got := string(out)
	if !strings.Contains(got, `<icon src="http://proxy.example.com/xmltv/1"/>`) {
		t.Errorf("icon not rewritten: %s", got)
	}
	// Non-URL src stays untouched.
	if !strings.Contains(got, `<icon src="relative/two.png"/>`) {
		t.Errorf("relative icon altered: %s", got)
	}
	// Everything outside the rewritten tag is byte-identical, entities
	// included.
	if !strings.Contains(got, `<title>News &amp; More</title>`) {
		t.Errorf("entity not preserved: %s", got)
	}
	if !strings.Contains(got, `generator-info-name="panel"`) {
		t.Errorf("root attributes altered: %s", got)
	}
	if len(ins.urls) != 1 || ins.urls[0] != "http://up.example.com/one.png" {
		t.Errorf("interned %v", ins.urls)
	}
}

func TestRewriteXMLTVIconsKeepsExtraAttributes(t *testing.T) {
	in := []byte(`<tv><channel><icon width="120" src="https://up.example.com/a.png" height="60"/></channel></tv>`)

	ins := &memoryInserter{}
	out, err := RewriteXMLTVIcons(in, "proxy.example.com", ins.insert)
	if err != nil {
		t.Fatal(err)
	}

	want := `<icon width="120" src="http://proxy.example.com/xmltv/1" height="60"/>`
	if !strings.Contains(string(out), want) {
		t.Errorf("got %s, want substring %s", out, want)
	}
}

func TestComposeProxyStreamURL(t *testing.T) {
	port := uint16(8080)
	m3u := &types.M3u{Domain: "up.example.com", Port: &port}

	tests := []struct {
		name string
		path StreamPath
		user string
		pass string
		want string
	}{
		{
			name: "two segments with credential substitution",
			path: StreamPath{Seg1: "clientuser", Seg2: "clientpass", ID: "42.ts"},
			user: "realuser", pass: "realpass",
			want: "http://up.example.com:8080/realuser/realpass/42.ts",
		},
		{
			name: "two segments passthrough without xtream",
			path: StreamPath{Seg1: "clientuser", Seg2: "clientpass", ID: "42.ts"},
			want: "http://up.example.com:8080/clientuser/clientpass/42.ts",
		},
		{
			name: "three segments keep kind prefix",
			path: StreamPath{Seg1: "movie", Seg2: "clientuser", Seg3: "clientpass", ID: "7.mkv"},
			user: "realuser", pass: "realpass",
			want: "http://up.example.com:8080/movie/realuser/realpass/7.mkv",
		},
		{
			name: "id without extension",
			path: StreamPath{Seg1: "clientuser", Seg2: "clientpass", ID: "99"},
			user: "realuser", pass: "realpass",
			want: "http://up.example.com:8080/realuser/realpass/99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComposeProxyStreamURL(tt.path, m3u, tt.user, tt.pass)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComposeProxyStreamURLWithoutPort(t *testing.T) {
	m3u := &types.M3u{Domain: "up.example.com"}
	got, err := ComposeProxyStreamURL(StreamPath{Seg1: "u", Seg2: "p", ID: "1.m3u8"}, m3u, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://up.example.com/u/p/1.m3u8" {
		t.Errorf("got %s", got)
	}
}

func TestComposeFinalResponseURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://edge1.example.com:2082/live/u/p/1.m3u8?token=abc", "http://edge1.example.com:2082"},
		{"https://edge2.example.com/hls/1.m3u8", "https://edge2.example.com"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := ComposeFinalResponseURL(u); got != tt.want {
			t.Errorf("ComposeFinalResponseURL(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestIsHLSStream(t *testing.T) {
	if !IsHLSStream("http://up.example.com/u/p/1.m3u8") {
		t.Error("m3u8 URL not detected")
	}
	if IsHLSStream("http://up.example.com/u/p/1.ts") {
		t.Error("ts URL misdetected")
	}
}

func TestValidateTypeOutput(t *testing.T) {
	tests := []struct {
		typeParam string
		output    string
		ok        bool
	}{
		{"m3u_plus", "m3u8", true},
		{"m3u_plus", "ts", true},
		{"m3u_plus", "rmtp", true},
		{"m3u_plus", "mp4", false},
		{"m3u", "ts", false},
		{"", "", false},
	}
	for _, tt := range tests {
		err := ValidateTypeOutput(tt.typeParam, tt.output)
		if tt.ok && err != nil {
			t.Errorf("ValidateTypeOutput(%q, %q) = %v, want nil", tt.typeParam, tt.output, err)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedTypeOutput) {
			t.Errorf("ValidateTypeOutput(%q, %q) = %v, want ErrUnsupportedTypeOutput", tt.typeParam, tt.output, err)
		}
	}
}
