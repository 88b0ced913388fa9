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
	"strconv"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// FlexID is a flexible identifier that can unmarshal from JSON string,
// number, or null/empty values. Xtream upstreams disagree on whether
// ids are quoted.
type FlexID int64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (fi *FlexID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*fi = 0
		return nil
	}

	var i int64
	if err := json.Unmarshal(b, &i); err == nil {
		*fi = FlexID(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return utils.PrintErrorAndReturn(err)
	}

	if s == "" {
		*fi = 0
		return nil
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		utils.DebugLog("Warning: cannot convert %q to integer, defaulting to 0", s)
		*fi = 0
		return nil
	}

	*fi = FlexID(i)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (fi FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(fi))
}

// Int64 returns the int64 value of the FlexID
func (fi FlexID) Int64() int64 {
	return int64(fi)
}

// String returns the decimal form of the FlexID
func (fi FlexID) String() string {
	return strconv.FormatInt(int64(fi), 10)
}
