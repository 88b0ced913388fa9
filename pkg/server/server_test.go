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

package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/iptv-bridge/pkg/config"
)

// testRouter builds a gin engine over a server config with a temp
// playlist directory. Services stay nil; the covered routes are guarded
// or filesystem-only and never reach them.
func testRouter(t *testing.T) (*gin.Engine, *Config, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.ProxyConfig{
		Port:        3001,
		Environment: config.EnvProduction,
		ProxyDomain: "proxy.example.com",
		Xtream: config.XtreamConfig{
			Enabled:         true,
			BaseDomain:      "up.example.com",
			Username:        "realuser",
			Password:        "realpass",
			ProxiedDomain:   "proxy.example.com",
			ProxiedUsername: "clientuser",
			ProxiedPassword: "clientpass",
		},
	}

	c := &Config{ProxyConfig: cfg, playlistDir: dir}
	r := gin.New()
	c.InitializeRoutes(r)
	return r, c, dir
}

func doRequest(r *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRoutesRequireAPIKey(t *testing.T) {
	r, _, _ := testRouter(t)

	for _, target := range []string{"/provider", "/provider/1", "/provider/refresh"} {
		w := doRequest(r, http.MethodGet, target, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without key = %d, want 401", target, w.Code)
		}
	}

	w := doRequest(r, http.MethodGet, "/m3u-exist", nil)
	if w.Code == http.StatusUnauthorized {
		t.Error("/m3u-exist must not require the API key")
	}
}

func TestQueryAuthGuard(t *testing.T) {
	r, _, _ := testRouter(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing credentials", "/get.php", http.StatusForbidden},
		{"wrong credentials", "/get.php?username=clientuser&password=wrong", http.StatusForbidden},
		{"wrong username", "/player_api.php?username=nope&password=clientpass", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tt.target, nil)
			if w.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.want)
			}
		})
	}
}

func TestPathAuthGuard(t *testing.T) {
	r, _, _ := testRouter(t)

	tests := []string{
		"/wronguser/clientpass/42.ts",
		"/clientuser/wrongpass/42.ts",
		"/live/wronguser/clientpass/42.m3u8",
		"/movie/clientuser/wrongpass/7.mkv",
	}
	for _, target := range tests {
		w := doRequest(r, http.MethodGet, target, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("GET %s = %d, want 403", target, w.Code)
		}
	}
}

func TestGetPhpRejectsUnsupportedTypeOutput(t *testing.T) {
	r, _, _ := testRouter(t)

	target := "/get.php?username=clientuser&password=clientpass&type=m3u_plus&output=mp4"
	w := doRequest(r, http.MethodGet, target, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := w.Body.String(); got != "only m3u8, ts or rmtm supported" {
		t.Errorf("body = %q", got)
	}
}

func TestGetPhpServesLatestPlaylist(t *testing.T) {
	r, _, dir := testRouter(t)

	content := "#EXTM3U\n#EXTINF:-1 tvg-id=\"one\",One\nhttp://proxy.example.com/stream/1\n"
	path := filepath.Join(dir, "ts_1756100000_2026-08-25T06:13:20Z.m3u")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	target := "/get.php?username=clientuser&password=clientpass&type=m3u_plus&output=ts"
	w := doRequest(r, http.MethodGet, target, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != content {
		t.Errorf("body = %q", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="playlist.m3u"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestGetPhpEmptyWhenNothingRendered(t *testing.T) {
	r, _, _ := testRouter(t)

	target := "/get.php?username=clientuser&password=clientpass&type=m3u_plus&output=m3u8"
	w := doRequest(r, http.MethodGet, target, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestM3uExist(t *testing.T) {
	r, _, dir := testRouter(t)

	w := doRequest(r, http.MethodGet, "/m3u-exist", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("empty dir: status = %d, want 403", w.Code)
	}

	path := filepath.Join(dir, "custom_1756100000_2026-08-25T06:13:20Z.m3u")
	if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w = doRequest(r, http.MethodGet, "/m3u-exist", nil)
	if w.Code != http.StatusOK {
		t.Errorf("with file: status = %d, want 200", w.Code)
	}
}

func TestGetLatestM3uEmptyBodyWhenNothingRendered(t *testing.T) {
	r, _, _ := testRouter(t)

	w := doRequest(r, http.MethodGet, "/m3u", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestGetM3uByNameRejectsBadNames(t *testing.T) {
	r, _, _ := testRouter(t)

	// gin decodes the escaped slash before routing, so the traversal
	// attempt falls off the /m3u/:filename route and 404s; it must
	// never reach the file server.
	w := doRequest(r, http.MethodGet, "/m3u/..%2Fsecrets.m3u", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /m3u/..%%2Fsecrets.m3u = %d, want 404", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/m3u/notaplaylist.txt", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /m3u/notaplaylist.txt = %d, want 400", w.Code)
	}
}

func TestPathIDRejectsNonNumeric(t *testing.T) {
	r, _, _ := testRouter(t)

	w := doRequest(r, http.MethodGet, "/stream/notanumber", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminRoutesAcceptAPIKey(t *testing.T) {
	r, _, _ := testRouter(t)

	// Wrong method with a valid key is routed but hits no handler
	// mutation; POST /m3u/create with a bad body exercises the key path
	// without touching services.
	header := http.Header{"X-API-Key": []string{GetAPIKey()}}
	w := doRequest(r, http.MethodPost, "/m3u/create", header)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty body", w.Code)
	}
}
