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

package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/timelinize/trailmap/geo"
	"go.uber.org/zap"
)

// GeoJSONSource reads locations from the features of a GeoJSON
// FeatureCollection. Point, MultiPoint, LineString and MultiLineString
// geometries are supported; each position becomes a record, timestamped
// by its fourth value if it has one, or else by the feature's "time" (or
// similar) property. Other geometries, and positions without a time, are
// skipped.
type GeoJSONSource struct {
	dec           *json.Decoder
	foundFeatures bool
	current       feature
	positions     []position
	logger        *zap.Logger
}

// NewGeoJSONSource returns a source that reads the GeoJSON document in r.
func NewGeoJSONSource(r io.Reader, logger *zap.Logger) *GeoJSONSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeoJSONSource{
		dec:    json.NewDecoder(r),
		logger: logger.Named("geojson"),
	}
}

// Next returns the next location, or nil, nil at the end of the document.
func (g *GeoJSONSource) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(g.positions) > 0 {
			var pos position
			pos, g.positions = g.positions[0], g.positions[1:]
			rec, err := pos.record(g.current)
			if err != nil || rec != nil {
				return rec, err
			}
			g.logger.Debug("position has no time; skipping", zap.Float64s("position", pos))
			continue
		}

		if !g.foundFeatures {
			t, err := g.dec.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, &ParseError{Msg: "decoding next JSON token", Err: err}
			}
			if val, ok := t.(string); ok && val == "features" {
				if err := g.expectArray(); err != nil {
					return nil, err
				}
				g.foundFeatures = true
			}
			continue
		}

		if !g.dec.More() {
			break
		}

		g.current = feature{}
		if err := g.dec.Decode(&g.current); err != nil {
			return nil, &ParseError{Field: "features", Msg: "invalid GeoJSON feature", Err: err}
		}
		if err := g.current.extractKnownProperties(); err != nil {
			return nil, &ParseError{Field: "properties", Err: err}
		}

		switch g.current.Geometry.Type {
		case "Point":
			var coord position
			if err := json.Unmarshal(g.current.Geometry.Coordinates, &coord); err != nil {
				return nil, &ParseError{Field: "coordinates", Msg: "invalid Point coordinates", Err: err}
			}
			g.positions = []position{coord}
		case "LineString", "MultiPoint":
			if err := json.Unmarshal(g.current.Geometry.Coordinates, &g.positions); err != nil {
				return nil, &ParseError{Field: "coordinates", Msg: "invalid " + g.current.Geometry.Type + " coordinates", Err: err}
			}
		case "MultiLineString":
			var lines [][]position
			if err := json.Unmarshal(g.current.Geometry.Coordinates, &lines); err != nil {
				return nil, &ParseError{Field: "coordinates", Msg: "invalid MultiLineString coordinates", Err: err}
			}
			g.positions = nil
			for _, line := range lines {
				g.positions = append(g.positions, line...)
			}
		}
	}

	return nil, nil
}

func (g *GeoJSONSource) expectArray() error {
	tkn, err := g.dec.Token()
	if err != nil {
		return &ParseError{Field: "features", Err: err}
	}
	if delim, ok := tkn.(json.Delim); !ok || delim != '[' {
		return &ParseError{Token: tkn, Field: "features", Msg: "expected array"}
	}
	return nil
}

type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`

	time     time.Time
	altitude *float64 // meters
	accuracy *float64 // meters
	heading  *float64 // degrees
}

// extractKnownProperties reads the well-known properties of a location
// feature, accepting the various names they go by.
func (f *feature) extractKnownProperties() error {
	for _, propName := range []string{"time", "timestamp", "time_long", "datetime", "date_time"} {
		switch val := f.Properties[propName].(type) {
		case string:
			for _, layout := range []string{time.RFC3339Nano, time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850} {
				if t, err := time.Parse(layout, val); err == nil {
					f.time = t
					break
				}
			}
			if f.time.IsZero() {
				return fmt.Errorf("unrecognized time in property %s: %q", propName, val)
			}
		case float64:
			f.time = epochTime(val)
		case nil:
			continue
		default:
			return fmt.Errorf("unexpected type for time property %s: %T", propName, val)
		}
		break
	}

	f.altitude = f.number("altitude", "elevation", "height")
	f.accuracy = f.number("accuracy")
	f.heading = f.number("heading", "bearing", "direction")

	return nil
}

// number returns the first of the named properties that is a number.
func (f *feature) number(names ...string) *float64 {
	for _, name := range names {
		if val, ok := f.Properties[name].(float64); ok {
			return &val
		}
	}
	return nil
}

// epochTime converts seconds or milliseconds since the Unix epoch,
// telling them apart by magnitude.
func epochTime(val float64) time.Time {
	// epoch values smaller than this are seconds, not milliseconds
	const year2286ApproxUnixSec = 10000000000

	sec, frac := math.Modf(val)
	if sec < year2286ApproxUnixSec {
		return time.Unix(int64(sec), int64(frac*1e9))
	}
	return time.UnixMilli(int64(sec))
}

// position is [longitude, latitude], optionally followed by
// altitude and time.
type position []float64

// record converts the position, or returns nil if it has no time.
func (p position) record(f feature) (*Record, error) {
	const minDimensions = 2
	if count := len(p); count < minDimensions {
		return nil, &ParseError{Field: "coordinates", Msg: fmt.Sprintf("expected at least two values for position, got %d", count)}
	}

	ts := f.time
	if len(p) > minDimensions+1 {
		ts = epochTime(p[3])
	}
	if ts.IsZero() {
		return nil, nil
	}

	accuracy := int64(defaultAccuracy)
	if f.accuracy != nil {
		accuracy = int64(math.Round(*f.accuracy))
	}

	var altitude, heading *int64
	alt := f.altitude
	if alt == nil && len(p) > minDimensions {
		alt = &p[2]
	}
	if alt != nil {
		v := int64(math.Round(*alt))
		altitude = &v
	}
	if f.heading != nil && *f.heading >= 0 {
		v := int64(math.Round(*f.heading)) % 360
		heading = &v
	}

	rec, err := NewRecord(ts, geo.Point{Latitude: p[1], Longitude: p[0]}, accuracy, altitude, heading)
	if err != nil {
		return nil, &ParseError{Field: "properties", Err: err}
	}
	return &rec, nil
}
