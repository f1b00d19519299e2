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

// TileSize is the width and height, in pixels, of the single tile that
// covers the whole world at zoom level 0.
const TileSize = 256

// WorldCoordinate is a position on the Web-Mercator world tile at zoom 0,
// in pixels. X grows eastward and Y grows southward (downward).
type WorldCoordinate struct {
	X, Y float64
}

// Project converts p to its Web-Mercator world coordinate. This is the
// same spherical projection Google Maps uses.
func Project(p Point) WorldCoordinate {
	siny := math.Sin(p.Latitude * math.Pi / 180) //nolint:mnd

	// Truncating to 0.9999 effectively limits latitude to 89.189. This is
	// about a third of a tile past the edge of the world tile, and keeps
	// the poles from projecting to infinity.
	siny = min(max(siny, -maxSinLatitude), maxSinLatitude)

	return WorldCoordinate{
		X: TileSize * (0.5 + p.Longitude/360),
		Y: TileSize * (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)),
	}
}

// InBounds reports whether wc lies within the rectangle with the given
// northeast and southwest corners (inclusive). Because Y grows downward,
// the northeast corner has the smaller Y.
func (wc WorldCoordinate) InBounds(ne, sw WorldCoordinate) bool {
	return wc.X >= sw.X && wc.X <= ne.X && wc.Y >= ne.Y && wc.Y <= sw.Y
}

const maxSinLatitude = 0.9999
