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

// Package location reads location history records, orders them into an
// immutable chronological sequence, and resamples sequences to uniform
// time spacing.
package location

import (
	"fmt"
	"math"
	"time"

	"github.com/timelinize/trailmap/geo"
)

// Record is a single location sample. Records are values and are
// never modified after construction; use NewRecord to make one.
type Record struct {
	Timestamp time.Time // millisecond precision, UTC
	Point     geo.Point
	Accuracy  uint32  // meters; higher values are less accurate
	Altitude  *int32  // meters, if known
	Heading   *uint16 // degrees in [0,360), if known
}

// NewRecord validates the inputs and returns a record. Accuracy must not be
// negative and heading, if set, must be in [0,360); otherwise the error
// wraps ErrInvalidRecord.
func NewRecord(ts time.Time, point geo.Point, accuracy int64, altitude, heading *int64) (Record, error) {
	if accuracy < 0 {
		return Record{}, fmt.Errorf("%w: accuracy < 0: %d", ErrInvalidRecord, accuracy)
	}
	if accuracy > math.MaxUint32 {
		return Record{}, fmt.Errorf("%w: accuracy too large: %d", ErrInvalidRecord, accuracy)
	}
	rec := Record{
		Timestamp: ts.UTC().Truncate(time.Millisecond),
		Point:     point,
		Accuracy:  uint32(accuracy),
	}
	if altitude != nil {
		if *altitude < math.MinInt32 || *altitude > math.MaxInt32 {
			return Record{}, fmt.Errorf("%w: altitude out of range: %d", ErrInvalidRecord, *altitude)
		}
		alt := int32(*altitude)
		rec.Altitude = &alt
	}
	if heading != nil {
		if *heading < 0 || *heading >= 360 {
			return Record{}, fmt.Errorf("%w: heading outside [0,360): %d", ErrInvalidRecord, *heading)
		}
		h := uint16(*heading)
		rec.Heading = &h
	}
	return rec, nil
}

// HasAltitude returns true if the record has an altitude.
func (r Record) HasAltitude() bool { return r.Altitude != nil }

// HasHeading returns true if the record has a heading.
func (r Record) HasHeading() bool { return r.Heading != nil }

func (r Record) String() string {
	s := fmt.Sprintf("%s %s ±%dm", r.Timestamp.Format(time.RFC3339Nano), r.Point, r.Accuracy)
	if r.Altitude != nil {
		s += fmt.Sprintf(" alt=%d", *r.Altitude)
	}
	if r.Heading != nil {
		s += fmt.Sprintf(" hdg=%d", *r.Heading)
	}
	return s
}

// partialRecord accumulates the fields of a record as they are decoded.
// A record can only be made once it is buildable.
type partialRecord struct {
	timestamp   *time.Time
	latitudeE7  *int64
	longitudeE7 *int64
	accuracy    *int64
	altitude    *int64
	heading     *int64
}

// buildable returns true if all the fields required to
// make a Record have been set.
func (pr partialRecord) buildable() bool {
	return pr.timestamp != nil && pr.latitudeE7 != nil && pr.longitudeE7 != nil && pr.accuracy != nil
}

// finalize validates the accumulated fields and returns the record.
func (pr partialRecord) finalize() (Record, error) {
	switch {
	case pr.timestamp == nil:
		return Record{}, fmt.Errorf("%w: timestamp not specified", ErrInvalidRecord)
	case pr.latitudeE7 == nil:
		return Record{}, fmt.Errorf("%w: latitude not specified", ErrInvalidRecord)
	case pr.longitudeE7 == nil:
		return Record{}, fmt.Errorf("%w: longitude not specified", ErrInvalidRecord)
	case pr.accuracy == nil:
		return Record{}, fmt.Errorf("%w: accuracy not specified", ErrInvalidRecord)
	}
	return NewRecord(*pr.timestamp, geo.FromE7(*pr.latitudeE7, *pr.longitudeE7), *pr.accuracy, pr.altitude, pr.heading)
}

// Interpolate returns the record a fraction t of the way from a to b.
// Optional values are only interpolated if both records have them, and
// headings travel along the shorter arc of the circle. At t=0 the result
// is a, and at t=1 it is b. The timestamp of a must be strictly before
// that of b, and t must be in [0,1]; otherwise ErrInvalidParameter is
// returned.
func Interpolate(a, b Record, t float64) (Record, error) {
	switch {
	case t == 0:
		return a, nil
	case t == 1:
		return b, nil
	case math.IsNaN(t) || t < 0 || t > 1:
		return Record{}, fmt.Errorf("%w: interpolation balance %f not in [0,1]", ErrInvalidParameter, t)
	case !a.Timestamp.Before(b.Timestamp):
		return Record{}, fmt.Errorf("%w: %s is not before %s", ErrInvalidParameter, a.Timestamp, b.Timestamp)
	}

	spanMs := b.Timestamp.Sub(a.Timestamp).Milliseconds()
	offset := time.Duration(math.Round(float64(spanMs)*t)) * time.Millisecond

	rec := Record{
		Timestamp: a.Timestamp.Add(offset),
		Point:     geo.InterpolatePoint(a.Point, b.Point, t),
		Accuracy:  uint32(math.Round(lerp(float64(a.Accuracy), float64(b.Accuracy), t))),
	}
	if a.Altitude != nil && b.Altitude != nil {
		alt := int32(math.Round(lerp(float64(*a.Altitude), float64(*b.Altitude), t)))
		rec.Altitude = &alt
	}
	if a.Heading != nil && b.Heading != nil {
		h := uint16(geo.InterpolateHeading(int(*a.Heading), int(*b.Heading), t))
		rec.Heading = &h
	}

	return rec, nil
}

// InterpolateAt is like Interpolate, but chooses the balance so that the
// resulting record has the given timestamp, which must be within [a,b].
func InterpolateAt(a, b Record, ts time.Time) (Record, error) {
	if ts.Before(a.Timestamp) || ts.After(b.Timestamp) {
		return Record{}, fmt.Errorf("%w: %s is not between %s and %s",
			ErrInvalidParameter, ts, a.Timestamp, b.Timestamp)
	}
	if ts.Equal(a.Timestamp) {
		return a, nil
	}
	if ts.Equal(b.Timestamp) {
		return b, nil
	}
	t := float64(ts.Sub(a.Timestamp)) / float64(b.Timestamp.Sub(a.Timestamp))
	return Interpolate(a, b, t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
