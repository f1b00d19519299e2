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
	"fmt"
	"strings"
	"time"

	"github.com/timelinize/trailmap/geo"
	"github.com/timelinize/trailmap/location"
)

// DefaultPointLimit is the default maximum number of points in a path.
// URLs for the Static Maps API are limited in length, so paths can't be
// arbitrarily long.
const DefaultPointLimit = 200

// SimplifyPath returns the path to draw on a map of vp that ends at target.
//
// First, the path is clipped to what is visible: starting at the first
// visible node (or target's predecessor, if none are), a node is kept if
// it or the node before it is visible, and the last invisible node before
// the path comes back into view is kept too, so the path enters and leaves
// the frame instead of starting in mid-air. Target is always kept.
//
// Then, if more than limit points remain, the path is resampled to limit
// evenly-spaced instants between the first and last kept nodes, for at most
// limit+1 points. A limit <= 0 means no limit.
//
// If target has no predecessor, the path is just target itself.
func SimplifyPath(seq *location.Sequence, target location.NodeID, vp Viewport, limit int) ([]geo.Point, error) {
	if seq.Prev(target) == location.NoNode {
		return []geo.Point{seq.Record(target).Point}, nil
	}
	return downsample(clip(seq, target, vp), limit)
}

// clip returns the records of seq up to and including target that
// are visible in vp, or that lead into or out of the visible area.
func clip(seq *location.Sequence, target location.NodeID, vp Viewport) []location.Record {
	// find where to start
	last := seq.Prev(target)
	id := seq.First()
	for id != last && !vp.IsVisible(seq.Record(id).Point) {
		id = seq.Next(id)
	}

	var kept []location.Record
	lastVisible, prevKept := true, true
	prev := location.NoNode
	for {
		rec := seq.Record(id)
		visible := vp.IsVisible(rec.Point)

		// coming back into view; keep the point we came from
		if visible && !prevKept {
			kept = append(kept, seq.Record(prev))
		}

		if id == target {
			return append(kept, rec)
		}

		if lastVisible || visible {
			kept = append(kept, rec)
			prevKept = true
		} else {
			prevKept = false
		}

		prev = id
		lastVisible = visible
		id = seq.Next(id)
	}
}

// downsample reduces the path to at most limit+1 points by
// interpolating it at evenly-spaced instants.
func downsample(kept []location.Record, limit int) ([]geo.Point, error) {
	if len(kept) <= 2 || limit <= 0 || len(kept) <= limit {
		return points(kept), nil
	}

	first, last := kept[0].Timestamp, kept[len(kept)-1].Timestamp
	step := last.Sub(first) / time.Duration(limit)

	out := make([]geo.Point, 0, limit+1)
	out = append(out, kept[0].Point)

	cursor := 0
	for i := 1; i <= limit; i++ {
		instant := first.Add(time.Duration(i) * step)
		if i == limit {
			// integer division of the span may leave the last step short
			instant = last
		}
		for cursor < len(kept)-2 && !kept[cursor+1].Timestamp.After(instant) {
			cursor++
		}
		rec, err := location.InterpolateAt(kept[cursor], kept[cursor+1], instant)
		if err != nil {
			return nil, fmt.Errorf("downsampling path at %s: %w", instant, err)
		}
		out = append(out, rec.Point)
	}

	return out, nil
}

func points(recs []location.Record) []geo.Point {
	pts := make([]geo.Point, len(recs))
	for i, r := range recs {
		pts[i] = r.Point
	}
	return pts
}

// Polyline renders points in the "lat,lng|lat,lng|..." form used by
// the Static Maps API, with 4 decimal places per coordinate.
func Polyline(points []geo.Point) string {
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}
