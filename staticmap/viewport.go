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

// Package staticmap renders location sequences as a series of static
// map images: for each point, a map centered on it showing the path
// travelled up to that point, simplified to what is visible.
package staticmap

import (
	"fmt"
	"math"

	"github.com/timelinize/trailmap/geo"
	"github.com/timelinize/trailmap/location"
)

// DefaultTolerance enlarges the visible rectangle slightly so that points
// just outside the frame still count as visible.
const DefaultTolerance = 1.01

// Viewport is the area shown by a map image. NewViewport checks the
// parameters, but a literal Viewport works too.
type Viewport struct {
	Center geo.Point
	Zoom   int
	Width  int // pixels
	Height int // pixels

	// Scale multiplies the pixel density of the image; it
	// does not change the area that is visible.
	Scale int
}

// NewViewport returns the viewport of a map centered on center. Zoom,
// width, height, and scale must all be positive.
func NewViewport(center geo.Point, zoom, width, height, scale int) (Viewport, error) {
	switch {
	case zoom <= 0:
		return Viewport{}, fmt.Errorf("%w: zoom must be positive: %d", location.ErrInvalidParameter, zoom)
	case width <= 0 || height <= 0:
		return Viewport{}, fmt.Errorf("%w: size must be positive: %dx%d", location.ErrInvalidParameter, width, height)
	case scale <= 0:
		return Viewport{}, fmt.Errorf("%w: scale must be positive: %d", location.ErrInvalidParameter, scale)
	}
	return Viewport{
		Center: center,
		Zoom:   zoom,
		Width:  width,
		Height: height,
		Scale:  scale,
	}, nil
}

// VisibleRectangle returns the northeast and southwest corners of the
// visible area in world coordinates, with each half-extent multiplied
// by tolerance.
func (v Viewport) VisibleRectangle(tolerance float64) (ne, sw geo.WorldCoordinate) {
	zoomFactor := math.Exp2(float64(v.Zoom))
	center := geo.Project(v.Center)

	halfWidth := (float64(v.Width) / 2 / zoomFactor) * tolerance   //nolint:mnd
	halfHeight := (float64(v.Height) / 2 / zoomFactor) * tolerance //nolint:mnd

	ne = geo.WorldCoordinate{X: center.X + halfWidth, Y: center.Y - halfHeight}
	sw = geo.WorldCoordinate{X: center.X - halfWidth, Y: center.Y + halfHeight}
	return
}

// IsVisible returns true if p is within the viewport at the default tolerance.
func (v Viewport) IsVisible(p geo.Point) bool {
	return v.IsVisibleWithTolerance(p, DefaultTolerance)
}

// IsVisibleWithTolerance is like IsVisible, but with a custom tolerance.
func (v Viewport) IsVisibleWithTolerance(p geo.Point, tolerance float64) bool {
	ne, sw := v.VisibleRectangle(tolerance)
	return geo.Project(p).InBounds(ne, sw)
}
