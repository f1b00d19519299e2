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
	"fmt"
	"time"
)

// Resample returns a new sequence whose records are spaced exactly
// interval apart, starting at the first record of seq. Each new record
// is interpolated between the two original records that straddle it.
// Resampling stops at the last tick that falls strictly before the end
// of the original sequence; a tick that lands exactly on the last record
// has no successor to interpolate toward, so it is not emitted.
//
// The interval must be a positive whole number of milliseconds. The original sequence
// is not modified.
func Resample(seq *Sequence, interval time.Duration) (*Sequence, error) {
	if interval < time.Millisecond {
		return nil, fmt.Errorf("%w: resample interval must be at least 1ms, got %s", ErrInvalidParameter, interval)
	}
	if interval%time.Millisecond != 0 {
		// records have millisecond timestamps, so ticks would be rounded
		return nil, fmt.Errorf("%w: resample interval must be a whole number of milliseconds, got %s", ErrInvalidParameter, interval)
	}

	start := seq.Record(seq.First())
	out := make([]Record, 1, int(seq.Span()/interval)+1)
	out[0] = start

	cursor := seq.First()
	for tick := 1; ; tick++ {
		target := start.Timestamp.Add(time.Duration(tick) * interval)

		next := seq.Next(cursor)
		for next != NoNode && !seq.Record(next).Timestamp.After(target) {
			cursor = next
			next = seq.Next(cursor)
		}
		if next == NoNode {
			break
		}

		rec, err := InterpolateAt(seq.Record(cursor), seq.Record(next), target)
		if err != nil {
			return nil, fmt.Errorf("interpolating at %s: %w", target, err)
		}
		out = append(out, rec)
	}

	return fromOrdered(out), nil
}
