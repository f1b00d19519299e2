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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timelinize/trailmap/geo"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// rec makes a record at the given offset from epoch, failing the test if it is invalid.
func rec(t *testing.T, offset time.Duration, lat, lon float64, accuracy int64) Record {
	t.Helper()
	r, err := NewRecord(epoch.Add(offset), geo.Point{Latitude: lat, Longitude: lon}, accuracy, nil, nil)
	require.NoError(t, err)
	return r
}

func TestNewRecord(t *testing.T) {
	for i, tc := range []struct {
		accuracy int64
		altitude *int64
		heading  *int64
		valid    bool
	}{
		{accuracy: 0, valid: true},
		{accuracy: 25, altitude: ptr[int64](-12), heading: ptr[int64](359), valid: true},
		{accuracy: -1, valid: false},
		{accuracy: math.MaxUint32 + 1, valid: false},
		{accuracy: 5, heading: ptr[int64](360), valid: false},
		{accuracy: 5, heading: ptr[int64](-1), valid: false},
		{accuracy: 5, altitude: ptr[int64](math.MaxInt32 + 1), valid: false},
	} {
		r, err := NewRecord(epoch, geo.Point{}, tc.accuracy, tc.altitude, tc.heading)
		if tc.valid && err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
			continue
		}
		if !tc.valid {
			assert.ErrorIs(t, err, ErrInvalidRecord, "Test %d", i)
			continue
		}
		assert.Equal(t, tc.altitude != nil, r.HasAltitude(), "Test %d", i)
		assert.Equal(t, tc.heading != nil, r.HasHeading(), "Test %d", i)
	}
}

func TestNewRecordTruncatesToMilliseconds(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2020, 1, 1, 2, 0, 0, 1_234_567, local)
	r, err := NewRecord(ts, geo.Point{}, 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 1_000_000, time.UTC), r.Timestamp)
}

func TestPartialRecord(t *testing.T) {
	var pr partialRecord
	assert.False(t, pr.buildable())
	_, err := pr.finalize()
	assert.ErrorIs(t, err, ErrInvalidRecord)

	ts := epoch
	lat, lon := int64(1e7), int64(2e7)
	acc := int64(3)
	pr = partialRecord{timestamp: &ts, latitudeE7: &lat, longitudeE7: &lon}
	assert.False(t, pr.buildable())
	pr.accuracy = &acc
	assert.True(t, pr.buildable())

	r, err := pr.finalize()
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Latitude: 1, Longitude: 2}, r.Point)
	assert.Equal(t, uint32(3), r.Accuracy)
}

func TestInterpolate(t *testing.T) {
	a, err := NewRecord(epoch, geo.Point{Latitude: 0, Longitude: 0}, 10, ptr[int64](100), ptr[int64](350))
	require.NoError(t, err)
	b, err := NewRecord(epoch.Add(time.Hour), geo.Point{Latitude: 10, Longitude: 20}, 21, ptr[int64](200), ptr[int64](10))
	require.NoError(t, err)

	// identity at the boundaries
	r, err := Interpolate(a, b, 0)
	require.NoError(t, err)
	assert.Equal(t, a, r)
	r, err = Interpolate(a, b, 1)
	require.NoError(t, err)
	assert.Equal(t, b, r)

	mid, err := Interpolate(a, b, 0.5)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(30*time.Minute), mid.Timestamp)
	assert.Equal(t, geo.Point{Latitude: 5, Longitude: 10}, mid.Point)
	assert.Equal(t, uint32(16), mid.Accuracy) // 15.5 rounds away from zero
	require.True(t, mid.HasAltitude())
	assert.Equal(t, int32(150), *mid.Altitude)
	require.True(t, mid.HasHeading())
	assert.Equal(t, uint16(0), *mid.Heading, "shorter arc through north")

	// optional values need to be on both sides
	c := rec(t, 2*time.Hour, 0, 0, 10)
	r, err = Interpolate(b, c, 0.5)
	require.NoError(t, err)
	assert.False(t, r.HasAltitude())
	assert.False(t, r.HasHeading())

	// timestamps are rounded to the millisecond
	r, err = Interpolate(rec(t, 0, 0, 0, 1), rec(t, 3*time.Millisecond, 0, 0, 1), 0.5)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(2*time.Millisecond), r.Timestamp)

	for i, bad := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := Interpolate(a, b, bad)
		assert.ErrorIs(t, err, ErrInvalidParameter, "Test %d", i)
	}
	_, err = Interpolate(b, a, 0.5)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Interpolate(a, a, 0.5)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestInterpolateAt(t *testing.T) {
	a := rec(t, 0, 0, 0, 5)
	b := rec(t, 10*time.Second, 10, 10, 5)

	r, err := InterpolateAt(a, b, epoch.Add(2500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(2500*time.Millisecond), r.Timestamp)
	assert.InDelta(t, 2.5, r.Point.Latitude, 1e-9)

	r, err = InterpolateAt(a, b, epoch)
	require.NoError(t, err)
	assert.Equal(t, a, r)
	r, err = InterpolateAt(a, b, b.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, b, r)

	_, err = InterpolateAt(a, b, epoch.Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = InterpolateAt(a, b, epoch.Add(11*time.Second))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
