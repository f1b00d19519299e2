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

package geo

import "math"

// DegreesDistance returns the angular distance between two headings
// going the short way around the circle; the result is in [0,180].
func DegreesDistance(a, b int) int {
	phi := abs(b-a) % fullCircle // this is either the distance or 360 - distance
	if phi > halfCircle {
		return fullCircle - phi
	}
	return phi
}

// InterpolateHeading returns the heading that lies a fraction t of the
// way from a to b along the shorter arc between them, normalized into
// [0,360). For example, halfway between 350 and 10 is 0, not 180.
func InterpolateHeading(a, b int, t float64) int {
	dist := DegreesDistance(a, b)

	// pick the direction of travel: clockwise if b is reached by adding
	// dist to a, counter-clockwise otherwise
	dir := 1
	if normalizeHeading(a+dist) != normalizeHeading(b) {
		dir = -1
	}

	h := int(math.Round(float64(a) + float64(dir*dist)*t))
	return normalizeHeading(h)
}

func normalizeHeading(h int) int {
	h %= fullCircle
	if h < 0 {
		h += fullCircle
	}
	return h
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

const (
	fullCircle = 360
	halfCircle = 180
)
