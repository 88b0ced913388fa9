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

	"github.com/buger/jsonparser"
)

// urlInserter interns an upstream URL and returns its stable id. The
// service binds it to an XtreamUrl insert inside the caller's
// transaction; tests inject an in-memory one.
type urlInserter func(rawURL string) (uint64, error)

type urlPatch struct {
	path []string
	id   uint64
}

// ProxifyJSON walks a JSON document recursively and replaces every
// string value that parses as an http(s) URL with
// http://{proxyDomain}/url/{id}, where id comes from the inserter.
// Non-URL scalars, keys and document structure are left untouched.
func ProxifyJSON(data []byte, proxyDomain string, insert urlInserter) ([]byte, error) {
	patches := []urlPatch{}
	if err := collectURLPatches(data, nil, insert, &patches); err != nil {
		return nil, err
	}

	out := data
	for _, patch := range patches {
		replacement := fmt.Sprintf(`"http://%s/url/%d"`, proxyDomain, patch.id)
		var err error
		out, err = jsonparser.Set(out, []byte(replacement), patch.path...)
		if err != nil {
			return nil, fmt.Errorf("patching %s: %w", strings.Join(patch.path, "."), err)
		}
	}
	return out, nil
}

// collectURLPatches records the path of every proxifiable string value.
// Array elements are addressed with the [i] key form jsonparser uses.
func collectURLPatches(data []byte, path []string, insert urlInserter, patches *[]urlPatch) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '{':
		return jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			childPath := appendPath(path, string(key))
			switch dataType {
			case jsonparser.Object, jsonparser.Array:
				return collectURLPatches(value, childPath, insert, patches)
			case jsonparser.String:
				return maybePatch(string(value), childPath, insert, patches)
			}
			return nil
		})

	case '[':
		index := 0
		var innerErr error
		_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if innerErr != nil {
				return
			}
			childPath := appendPath(path, fmt.Sprintf("[%d]", index))
			index++
			switch dataType {
			case jsonparser.Object, jsonparser.Array:
				innerErr = collectURLPatches(value, childPath, insert, patches)
			case jsonparser.String:
				innerErr = maybePatch(string(value), childPath, insert, patches)
			}
		})
		if err != nil {
			return err
		}
		return innerErr
	}
	return nil
}

func maybePatch(value string, path []string, insert urlInserter, patches *[]urlPatch) error {
	if !isProxifiableURL(value) {
		return nil
	}
	id, err := insert(value)
	if err != nil {
		return fmt.Errorf("interning url %q: %w", value, err)
	}
	*patches = append(*patches, urlPatch{path: path, id: id})
	return nil
}

// isProxifiableURL accepts absolute http(s) URLs only; relative paths
// and other schemes pass through untouched.
func isProxifiableURL(value string) bool {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Host != ""
}

// appendPath copies before appending so sibling branches never share a
// backing array.
func appendPath(path []string, element string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, element)
}
