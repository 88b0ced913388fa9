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

// Package fetcher is the single outbound HTTP client of the proxy. All
// upstream traffic (playlists, Xtream API calls, media streams) goes
// through one shared client; callers decide about retries, the fetcher
// never does.
package fetcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// Typed failures surfaced to callers; wrap with %w so errors.Is works
// through the service layers.
var (
	// ErrUpstreamUnreachable covers transport-level failures.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstreamDecode covers JSON deserialization failures.
	ErrUpstreamDecode = errors.New("upstream response decode failed")
)

// DefaultTimeout bounds API-style requests. Streaming requests use the
// separate untimed client because IPTV bodies are open-ended.
const DefaultTimeout = 5 * time.Second

// Client wraps the two shared http.Clients: a timed one for API calls
// and an untimed one for media streaming.
type Client struct {
	api    *http.Client
	stream *http.Client
}

// newTransport builds the shared transport. HTTP/2 negotiation is
// disabled: several Xtream upstreams misbehave behind ALPN.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     false,
		TLSNextProto:          map[string]func(string, *tls.Conn) http.RoundTripper{},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// New creates the process-wide fetcher.
func New() *Client {
	transport := newTransport()

	return &Client{
		api: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		// No global timeout; the stream runs as long as the client
		// stays connected.
		stream: &http.Client{
			Transport: transport,
		},
	}
}

// Get performs a GET and returns the response with a not-yet-consumed
// body. The caller owns resp.Body.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}
	req.Header.Set("User-Agent", utils.GetIPTVUserAgent())
	req.Header.Set("Accept-Language", utils.GetLanguageHeader())

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}
	return resp, nil
}

// GetJSON performs a GET and deserializes the body into T.
func GetJSON[T any](ctx context.Context, c *Client, rawURL string) (T, http.Header, int, error) {
	var out T

	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return out, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, resp.Header, resp.StatusCode, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, resp.Header, resp.StatusCode, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamDecode, err))
	}

	return out, resp.Header, resp.StatusCode, nil
}

// GetRaw performs a GET and returns the full body bytes.
func (c *Client) GetRaw(ctx context.Context, rawURL string) ([]byte, http.Header, int, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, resp.StatusCode, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}

	return body, resp.Header, resp.StatusCode, nil
}

// GetStream performs a GET on the untimed client and returns the body as
// a lazy byte stream suitable for pipelining into a client response.
// The response is returned as well so callers can inspect the final URL
// after redirects.
func (c *Client) GetStream(ctx context.Context, rawURL string) (io.ReadCloser, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}
	req.Header.Set("User-Agent", utils.GetIPTVUserAgent())

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}
	return resp.Body, resp, nil
}

// Request performs an arbitrary-method request forwarding the given
// headers, on the untimed client. Used by the streaming proxy paths
// where client headers (Range, Accept) must survive.
func (c *Client) Request(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}

	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", utils.GetIPTVUserAgent())
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err))
	}
	return resp, nil
}
