/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ParseSize parses an image size of the form "WIDTHxHEIGHT".
// Both dimensions must be positive.
func ParseSize(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: expected WIDTHxHEIGHT", s)
	}
	width, err = strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in size %q: %w", s, err)
	}
	height, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return width, height, nil
}

// ParseColor normalizes a path color for the Static Maps API. It accepts
// 24- or 32-bit hex colors written as 0xRRGGBB[AA] or #RRGGBB[AA], and the
// named colors the API knows. Hex colors are returned in the 0x form.
func ParseColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if slices.Contains(namedColors, lower) {
		return lower, nil
	}

	var hex string
	switch {
	case strings.HasPrefix(lower, "0x"):
		hex = lower[2:]
	case strings.HasPrefix(lower, "#"):
		hex = lower[1:]
	default:
		return "", fmt.Errorf("invalid color %q", s)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return "", fmt.Errorf("invalid color %q: expected 6 or 8 hex digits", s)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", fmt.Errorf("invalid color %q: %w", s, err)
	}
	return "0x" + hex, nil
}

// namedColors are the colors the Static Maps API accepts by name.
var namedColors = []string{
	"black", "brown", "green", "purple", "yellow",
	"blue", "gray", "orange", "red", "white",
}

// ParseTime parses an instant. Accepted forms are RFC 3339, a date and
// time ("2006-01-02 15:04:05" or with a T), a date, or milliseconds since
// the Unix epoch. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCorrections parses a comma-separated list of instants to leave out
// of the sequence. An empty string yields no instants.
func ParseCorrections(s string) ([]time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	instants := make([]time.Time, 0, len(parts))
	for _, part := range parts {
		t, err := ParseTime(part)
		if err != nil {
			return nil, err
		}
		instants = append(instants, t)
	}
	return instants, nil
}
