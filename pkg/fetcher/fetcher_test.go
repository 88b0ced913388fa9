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

package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "IPTVSmartersPro" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"stream_id":1},{"stream_id":2}]`))
	}))
	defer srv.Close()

	type entry struct {
		StreamID int `json:"stream_id"`
	}

	entries, _, status, err := GetJSON[[]entry](context.Background(), New(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if len(entries) != 2 || entries[1].StreamID != 2 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestGetJSONDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>panel maintenance</html>`))
	}))
	defer srv.Close()

	_, _, _, err := GetJSON[[]int](context.Background(), New(), srv.URL)
	if !errors.Is(err, ErrUpstreamDecode) {
		t.Errorf("got %v, want ErrUpstreamDecode", err)
	}
}

func TestGetUnreachable(t *testing.T) {
	_, err := New().Get(context.Background(), "http://127.0.0.1:1/nothing")
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Errorf("got %v, want ErrUpstreamUnreachable", err)
	}
}

func TestRequestForwardsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rng := r.Header.Get("Range"); rng != "bytes=0-100" {
			t.Errorf("Range = %q", rng)
		}
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Range", "bytes=0-100")

	resp, err := New().Request(context.Background(), http.MethodGet, srv.URL, header)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
