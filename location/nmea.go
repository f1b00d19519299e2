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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/timelinize/trailmap/geo"
	"go.uber.org/zap"
)

// NMEASource reads location records from an NMEA 0183 log, such as
// one written by a GPS receiver or radio. Position comes from RMC and
// GGA sentences; other sentence types that carry no position are skipped.
type NMEASource struct {
	scanner  *bufio.Scanner
	refYear  int
	lastDate nmea.Date
	accuracy int64
	logger   *zap.Logger
}

// NewNMEASource returns a source that reads sentences from r. NMEA dates
// don't have 4-digit years, so the century is taken from refYear; if
// refYear is not positive, the current year is used.
func NewNMEASource(r io.Reader, refYear int, logger *zap.Logger) *NMEASource {
	if refYear <= 0 {
		refYear = time.Now().UTC().Year()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	// some radios produce carriage-return-only line endings
	scanner.Split(scanLines)
	return &NMEASource{
		scanner:  scanner,
		refYear:  refYear,
		accuracy: defaultAccuracy,
		logger:   logger.Named("nmea"),
	}
}

// Next returns the next location record from the log, or nil, nil at the end.
func (n *NMEASource) Next(ctx context.Context) (*Record, error) {
	for n.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSpace(n.scanner.Text())
		if line == "" {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			return nil, &ParseError{Msg: "malformed NMEA sentence", Err: err}
		}

		var (
			ts       time.Time
			point    geo.Point
			altitude *int64
			heading  *int64
		)

		switch s := sentence.(type) {
		case nmea.RMC:
			if s.Validity != nmea.ValidRMC {
				continue
			}
			n.lastDate = s.Date // GGA sentences don't include the date
			ts = nmea.DateTime(n.refYear, s.Date, s.Time)
			point = geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
			// a negative course means there is none
			if s.Course >= 0 {
				hdg := int64(math.Round(s.Course)) % 360
				heading = &hdg
			}

		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			if !n.lastDate.Valid {
				// without a date we can't make a timestamp
				n.logger.Warn("encountered GGA sentence before any sentence with a date; dropping data point",
					zap.String("raw", s.Raw))
				continue
			}
			ts = nmea.DateTime(n.refYear, n.lastDate, s.Time)
			point = geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
			alt := int64(math.Round(s.Altitude))
			altitude = &alt
			if s.HDOP > 0 {
				n.accuracy = int64(math.Round(s.HDOP * metersPerHDOP))
			}

		case nmea.VTG, nmea.GSA, nmea.GSV, nmea.GLL:
			continue

		default:
			return nil, &ParseError{Msg: "unsupported NMEA sentence type " + sentence.DataType()}
		}

		rec, err := NewRecord(ts, point, n.accuracy, altitude, heading)
		if err != nil {
			return nil, fmt.Errorf("sentence %q: %w", line, err)
		}
		return &rec, nil
	}
	if err := n.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return nil, nil
}

// scanLines is a bufio.SplitFunc for Scanners that tolerates variable newlines,
// including carriage-return-only. https://stackoverflow.com/a/74962607/1048862
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[0:i], nil
		}
		// a carriage return at the end of the buffer might be followed by a newline
		if !atEOF && len(data) == i+1 {
			return 0, nil, nil
		}
		advance = i + 1
		if len(data) > i+1 && data[i+1] == '\n' {
			advance++
		}
		return advance, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

const (
	// Accuracy assumed for GPS fixes with no dilution of precision, in meters.
	defaultAccuracy = 10

	// Rough conversion from horizontal dilution of precision to meters
	// for a consumer GPS receiver.
	metersPerHDOP = 5
)
