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
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/timelinize/trailmap/geo"
	"go.uber.org/zap"
)

// GPXSource reads track points from a GPS Exchange Format document
// (https://en.wikipedia.org/wiki/GPS_Exchange_Format).
type GPXSource struct {
	dec          *xml.Decoder
	stack        nesting
	metadataTime time.Time
	logger       *zap.Logger
}

// NewGPXSource returns a source that reads the GPX document in r.
func NewGPXSource(r io.Reader, logger *zap.Logger) *GPXSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPXSource{
		dec:    xml.NewDecoder(r),
		logger: logger.Named("gpx"),
	}
}

// Next returns the next track point, or nil, nil at the end of the document.
func (g *GPXSource) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tkn, err := g.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Msg: "decoding next XML token", Err: err}
		}

		switch elem := tkn.(type) {
		case xml.StartElement:
			if elem.Name.Local == "metadata" && g.stack.path() == "gpx" {
				var meta gpxMetadata
				if err := g.dec.DecodeElement(&meta, &elem); err != nil {
					return nil, &ParseError{Field: "metadata", Msg: "decoding XML element", Err: err}
				}
				if meta.Time != "" {
					ts, err := time.Parse(time.RFC3339, meta.Time)
					if err != nil {
						return nil, &ParseError{Field: "metadata/time", Err: err}
					}
					g.metadataTime = ts
				}
				continue
			}
			if elem.Name.Local == "trkpt" && g.stack.path() == "gpx/trk/trkseg" {
				var point trkpt
				if err := g.dec.DecodeElement(&point, &elem); err != nil {
					return nil, &ParseError{Field: "trkpt", Msg: "decoding XML element", Err: err}
				}
				rec, err := point.record(g.metadataTime)
				if err != nil {
					return nil, err
				}
				if rec == nil {
					g.logger.Warn("track point has no time; skipping",
						zap.Float64("lat", point.Lat),
						zap.Float64("lon", point.Lon))
					continue
				}
				return rec, nil
			}

			g.stack = append(g.stack, elem.Name.Local)

		case xml.EndElement:
			if len(g.stack) == 0 {
				return nil, &ParseError{Msg: "encountered end tag without opening: " + elem.Name.Local}
			}
			g.stack = g.stack[:len(g.stack)-1]
		}
	}

	return nil, nil
}

type nesting []string

func (n nesting) path() string {
	return strings.Join(n, "/")
}

type gpxMetadata struct {
	XMLName xml.Name `xml:"metadata"`
	Time    string   `xml:"time"`
}

type trkpt struct {
	XMLName xml.Name  `xml:"trkpt"`
	Lat     float64   `xml:"lat,attr"`
	Lon     float64   `xml:"lon,attr"`
	Ele     *float64  `xml:"ele"` // elevation
	Time    time.Time `xml:"time"`
	Course  *float64  `xml:"course"` // GPX 1.0 only
	HDOP    float64   `xml:"hdop"`
}

// record converts the track point, using fallbackTime if it has no
// timestamp of its own. It returns nil if no time is known at all.
func (pt trkpt) record(fallbackTime time.Time) (*Record, error) {
	ts := pt.Time
	if ts.IsZero() {
		ts = fallbackTime
	}
	if ts.IsZero() {
		return nil, nil
	}

	accuracy := int64(defaultAccuracy)
	if pt.HDOP > 0 {
		accuracy = int64(math.Round(pt.HDOP * metersPerHDOP))
	}

	var altitude, heading *int64
	if pt.Ele != nil {
		alt := int64(math.Round(*pt.Ele))
		altitude = &alt
	}
	if pt.Course != nil && *pt.Course >= 0 {
		hdg := int64(math.Round(*pt.Course)) % 360
		heading = &hdg
	}

	rec, err := NewRecord(ts, geo.Point{Latitude: pt.Lat, Longitude: pt.Lon}, accuracy, altitude, heading)
	if err != nil {
		return nil, &ParseError{Field: "trkpt", Err: err}
	}
	return &rec, nil
}
