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

import "encoding/json"

// Xtream payload shapes. Upstream panels attach arbitrary extra fields,
// so every shape keeps the raw bytes it was decoded from and marshals
// back to exactly those bytes; only the fields needed for filtering are
// lifted out.

// HasID is implemented by every filterable listing shape. The
// comparable id is the stream id for live/vod streams and the category
// id for series.
type HasID interface {
	ComparableID() string
}

// LiveStream is one entry of a get_live_streams listing.
type LiveStream struct {
	StreamID FlexID
	raw      json.RawMessage
}

func (s *LiveStream) UnmarshalJSON(b []byte) error {
	s.raw = append(json.RawMessage(nil), b...)
	var fields struct {
		StreamID FlexID `json:"stream_id"`
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	s.StreamID = fields.StreamID
	return nil
}

func (s LiveStream) MarshalJSON() ([]byte, error) { return s.raw, nil }

// ComparableID implements HasID.
func (s LiveStream) ComparableID() string { return s.StreamID.String() }

// Raw implements rawCarrier.
func (s LiveStream) Raw() json.RawMessage { return s.raw }

// VodStream is one entry of a get_vod_streams listing.
type VodStream struct {
	StreamID FlexID
	raw      json.RawMessage
}

func (s *VodStream) UnmarshalJSON(b []byte) error {
	s.raw = append(json.RawMessage(nil), b...)
	var fields struct {
		StreamID FlexID `json:"stream_id"`
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	s.StreamID = fields.StreamID
	return nil
}

func (s VodStream) MarshalJSON() ([]byte, error) { return s.raw, nil }

// ComparableID implements HasID.
func (s VodStream) ComparableID() string { return s.StreamID.String() }

// Raw implements rawCarrier.
func (s VodStream) Raw() json.RawMessage { return s.raw }

// Series is one entry of a get_series listing; series are filtered by
// their category, not by a stream id.
type Series struct {
	CategoryID FlexID
	raw        json.RawMessage
}

func (s *Series) UnmarshalJSON(b []byte) error {
	s.raw = append(json.RawMessage(nil), b...)
	var fields struct {
		CategoryID FlexID `json:"category_id"`
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	s.CategoryID = fields.CategoryID
	return nil
}

func (s Series) MarshalJSON() ([]byte, error) { return s.raw, nil }

// ComparableID implements HasID.
func (s Series) ComparableID() string { return s.CategoryID.String() }

// Raw implements rawCarrier.
func (s Series) Raw() json.RawMessage { return s.raw }

// Category is one entry of a get_*_categories listing, retained only
// when its name belongs to a non-excluded group.
type Category struct {
	CategoryName string
	raw          json.RawMessage
}

func (c *Category) UnmarshalJSON(b []byte) error {
	c.raw = append(json.RawMessage(nil), b...)
	var fields struct {
		CategoryName string `json:"category_name"`
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	c.CategoryName = fields.CategoryName
	return nil
}

func (c Category) MarshalJSON() ([]byte, error) { return c.raw, nil }

// OptionalParams are the pass-through player_api query parameters
// forwarded to the upstream when the client sent them.
type OptionalParams struct {
	CategoryID string
	VodID      string
	SeriesID   string
	StreamID   string
}

// rawCarrier gives the service access to the opaque bytes of a decoded
// listing entry for re-serialization after proxification.
type rawCarrier interface {
	Raw() json.RawMessage
}
