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

package staticmap

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timelinize/trailmap/geo"
	"github.com/timelinize/trailmap/location"
)

var epoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

// makeSequence builds a sequence with one record per point, one minute apart.
func makeSequence(t *testing.T, points ...geo.Point) *location.Sequence {
	t.Helper()
	recs := make([]location.Record, len(points))
	for i, p := range points {
		rec, err := location.NewRecord(epoch.Add(time.Duration(i)*time.Minute), p, 5, nil, nil)
		require.NoError(t, err)
		recs[i] = rec
	}
	seq, err := location.Build(recs, nil)
	require.NoError(t, err)
	return seq
}

// nodeAt returns the i'th node of seq.
func nodeAt(t *testing.T, seq *location.Sequence, i int) location.NodeID {
	t.Helper()
	id := seq.First()
	for range i {
		id = seq.Next(id)
		require.NotEqual(t, location.NoNode, id)
	}
	return id
}

func lons(points []geo.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Longitude
	}
	return out
}

// equatorViewport is 512x512 at zoom 10 centered on (0,0), which
// shows about ±0.35 degrees in each direction.
func equatorViewport(t *testing.T) Viewport {
	t.Helper()
	vp, err := NewViewport(geo.Point{}, 10, 512, 512, 1)
	require.NoError(t, err)
	return vp
}

func TestSimplifyPathSinglePoint(t *testing.T) {
	seq := makeSequence(t, geo.Point{})
	require.Equal(t, 1, seq.Len())

	path, err := SimplifyPath(seq, seq.First(), equatorViewport(t), DefaultPointLimit)
	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{}}, path)

	// the first node of a longer sequence has no path behind it either
	seq = makeSequence(t, geo.Point{Longitude: 0.1}, geo.Point{})
	path, err = SimplifyPath(seq, seq.First(), equatorViewport(t), DefaultPointLimit)
	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{Longitude: 0.1}}, path)
}

func TestSimplifyPathClipping(t *testing.T) {
	vp := equatorViewport(t)

	for i, tc := range []struct {
		lons   []float64 // along the equator
		target int
		expect []float64
	}{
		{
			// everything visible; nothing after the target
			lons:   []float64{0.1, 0.2, 0.3, 0, 0.1},
			target: 3,
			expect: []float64{0.1, 0.2, 0.3, 0},
		},
		{
			// leaves the frame and comes back: the exit and
			// entry points are kept, the rest of the detour isn't
			lons:   []float64{0.1, 5, 6, 7, 0.2, 0},
			target: 5,
			expect: []float64{0.1, 5, 7, 0.2, 0},
		},
		{
			// the target brings the path back into view
			lons:   []float64{0.1, 5, 6, 0},
			target: 3,
			expect: []float64{0.1, 5, 6, 0},
		},
		{
			// starts out of frame
			lons:   []float64{5, 6, 0.1, 0},
			target: 3,
			expect: []float64{0.1, 0},
		},
		{
			// nothing visible but the target: start at its predecessor
			lons:   []float64{5, 6, 7, 0},
			target: 3,
			expect: []float64{7, 0},
		},
		{
			// the target itself is kept even out of frame
			lons:   []float64{0.1, 0.2, 9},
			target: 2,
			expect: []float64{0.1, 0.2, 9},
		},
	} {
		points := make([]geo.Point, len(tc.lons))
		for j, lon := range tc.lons {
			points[j] = geo.Point{Longitude: lon}
		}
		seq := makeSequence(t, points...)

		path, err := SimplifyPath(seq, nodeAt(t, seq, tc.target), vp, DefaultPointLimit)
		if err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
			continue
		}
		assert.Equal(t, tc.expect, lons(path), "Test %d", i)
	}
}

func TestSimplifyPathDownsampling(t *testing.T) {
	points := make([]geo.Point, 10)
	for i := range points {
		points[i] = geo.Point{Latitude: float64(i) * 0.01}
	}
	seq := makeSequence(t, points...)
	vp, err := NewViewport(geo.Point{}, 8, 640, 640, 1)
	require.NoError(t, err)
	target := seq.Last()

	for i, tc := range []struct {
		limit  int
		expect []float64 // latitudes
	}{
		{limit: 3, expect: []float64{0, 0.03, 0.06, 0.09}},
		{limit: 4, expect: []float64{0, 0.0225, 0.045, 0.0675, 0.09}},
		{limit: 10, expect: []float64{0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09}},
		{limit: 0, expect: []float64{0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09}},
	} {
		path, err := SimplifyPath(seq, target, vp, tc.limit)
		if err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
			continue
		}
		if !assert.Len(t, path, len(tc.expect), "Test %d", i) {
			continue
		}
		for j, lat := range tc.expect {
			assert.InDelta(t, lat, path[j].Latitude, 1e-9, "Test %d: point %d", i, j)
		}
	}
}

func TestSimplifyPathBounds(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))

	for i := range 50 {
		n := 2 + rnd.IntN(300)
		points := make([]geo.Point, n)
		for j := range points {
			// a random walk near the equator, sometimes out of frame
			points[j] = geo.Point{
				Latitude:  rnd.Float64() - 0.5,
				Longitude: rnd.Float64() - 0.5,
			}
		}
		seq := makeSequence(t, points...)
		target := nodeAt(t, seq, rnd.IntN(n))
		limit := 1 + rnd.IntN(50)

		vp, err := NewViewport(seq.Record(target).Point, 10, 400, 300, 2)
		require.NoError(t, err)

		path, err := SimplifyPath(seq, target, vp, limit)
		require.NoError(t, err)

		require.NotEmpty(t, path, "Test %d", i)
		assert.LessOrEqual(t, len(path), limit+1, "Test %d", i)
		assert.Equal(t, seq.Record(target).Point, path[len(path)-1], "Test %d: target is the last point", i)

		if seq.Prev(target) != location.NoNode {
			kept := clip(seq, target, vp)
			assert.Equal(t, kept[0].Point, path[0], "Test %d: first kept node is first", i)
		}
	}
}

func TestPolyline(t *testing.T) {
	assert.Empty(t, Polyline(nil))
	assert.Equal(t, "45.1235,-122.0000", Polyline([]geo.Point{{Latitude: 45.123456, Longitude: -122}}))
	assert.Equal(t, "0.0000,0.1000|-1.5000,2.0000",
		Polyline([]geo.Point{{Longitude: 0.1}, {Latitude: -1.5, Longitude: 2}}))
}
