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
	"time"

	"github.com/timelinize/trailmap/geo"
)

// Predicate decides whether a record with the given timestamp
// and point belongs in a sequence.
type Predicate func(ts time.Time, p geo.Point) bool

// Between keeps records within [start, end]. A zero start or
// end leaves that side of the range open.
func Between(start, end time.Time) Predicate {
	return func(ts time.Time, _ geo.Point) bool {
		if !start.IsZero() && ts.Before(start) {
			return false
		}
		if !end.IsZero() && ts.After(end) {
			return false
		}
		return true
	}
}

// NotAt drops records whose timestamp is one of the given instants
// (compared at millisecond precision). It is used to remove known-bad
// samples from a history.
func NotAt(instants ...time.Time) Predicate {
	corrections := make(map[int64]struct{}, len(instants))
	for _, t := range instants {
		corrections[t.UnixMilli()] = struct{}{}
	}
	return func(ts time.Time, _ geo.Point) bool {
		_, bad := corrections[ts.UnixMilli()]
		return !bad
	}
}

// AllOf keeps records that all of the predicates keep.
// Nil predicates are ignored.
func AllOf(preds ...Predicate) Predicate {
	return func(ts time.Time, p geo.Point) bool {
		for _, pred := range preds {
			if pred != nil && !pred(ts, p) {
				return false
			}
		}
		return true
	}
}
