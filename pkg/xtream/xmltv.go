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
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// RewriteXMLTVIcons rewrites <icon src="http…"> attributes of an XMLTV
// document to http://{proxyDomain}/xmltv/{id}, interning the original
// URL through insert. Every byte outside a rewritten icon tag is copied
// through verbatim; icons with non-URL src values stay untouched.
func RewriteXMLTVIcons(body []byte, proxyDomain string, insert urlInserter) ([]byte, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))

	var out bytes.Buffer
	var last int64

	for {
		start := decoder.InputOffset()
		token, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.PrintErrorAndReturn(fmt.Errorf("parsing xmltv document: %w", err))
		}
		end := decoder.InputOffset()

		element, ok := token.(xml.StartElement)
		if !ok || element.Name.Local != "icon" {
			continue
		}

		src := attrValue(element, "src")
		if !isProxifiableURL(src) {
			continue
		}

		id, err := insert(src)
		if err != nil {
			return nil, fmt.Errorf("interning icon url %q: %w", src, err)
		}

		out.Write(body[last:start])
		writeIconTag(&out, element, fmt.Sprintf("http://%s/xmltv/%d", proxyDomain, id), isSelfClosing(body[start:end]))
		last = end
	}

	out.Write(body[last:])
	return out.Bytes(), nil
}

func attrValue(element xml.StartElement, name string) string {
	for _, attr := range element.Attr {
		if attr.Name.Local == name && attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}

func isSelfClosing(tag []byte) bool {
	return bytes.HasSuffix(bytes.TrimSpace(tag), []byte("/>"))
}

// writeIconTag re-emits an icon tag with the src attribute swapped and
// all other attributes preserved in order.
func writeIconTag(out *bytes.Buffer, element xml.StartElement, proxiedSrc string, selfClosing bool) {
	out.WriteString("<icon")
	for _, attr := range element.Attr {
		name := attr.Name.Local
		if attr.Name.Space != "" {
			name = attr.Name.Space + ":" + name
		}
		value := attr.Value
		if attr.Name.Local == "src" && attr.Name.Space == "" {
			value = proxiedSrc
		}
		fmt.Fprintf(out, ` %s="%s"`, name, escapeAttr(value))
	}
	if selfClosing {
		out.WriteString("/>")
		return
	}
	out.WriteString(">")
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeAttr(value string) string {
	return attrEscaper.Replace(value)
}
