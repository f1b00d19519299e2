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

// Package geo contains the small set of geographic primitives trailmap
// needs: a coordinate pair, great-circle distance, the Web-Mercator
// projection used by static map tiles, and the coordinate formatting
// expected by the Static Maps API.
package geo

import (
	"math"
	"strconv"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// FromE7 converts coordinates that are integer degrees times 1e7,
// as found in Google location history, into a Point.
func FromE7(latE7, lonE7 int64) Point {
	return Point{
		Latitude:  float64(latE7) / placesMult,
		Longitude: float64(lonE7) / placesMult,
	}
}

// String returns the point as "lat,lng" with both values formatted
// by FormatCoordinate. This is the form accepted by the Static Maps
// API for centers and path vertices.
func (p Point) String() string {
	return FormatCoordinate(p.Latitude) + "," + FormatCoordinate(p.Longitude)
}

// FormatCoordinate formats a coordinate with exactly 4 decimal places
// (about 11 meters at the equator), which keeps request URLs short.
func FormatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', coordinateDecimals, 64)
	if s == "-0.0000" {
		// avoid a signed zero for tiny negative values that round to 0
		return s[1:]
	}
	return s
}

// RoundCoordinate rounds v to the precision used by FormatCoordinate.
func RoundCoordinate(v float64) float64 {
	const mult = 1e4
	return math.Round(v*mult) / mult
}

// InterpolatePoint linearly interpolates latitude and longitude
// independently; t=0 yields a and t=1 yields b.
func InterpolatePoint(a, b Point, t float64) Point {
	return Point{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*t,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*t,
	}
}

// Distance computes the great-circle distance in meters between two points.
// TODO: consider using Vincenty distance? but that is way more expensive
func Distance(a, b Point) float64 {
	phi1 := degreesToRadians(a.Latitude)
	phi2 := degreesToRadians(b.Latitude)
	lambda1 := degreesToRadians(a.Longitude)
	lambda2 := degreesToRadians(b.Longitude)

	return 2 * earthRadiusKm * kmToMeters * math.Asin(math.Sqrt(haversin(phi2-phi1)+math.Cos(phi1)*math.Cos(phi2)*haversin(lambda2-lambda1)))
}

func haversin(theta float64) float64 {
	return 0.5 * (1 - math.Cos(theta)) //nolint:mnd
}

func degreesToRadians(d float64) float64 {
	return d * (math.Pi / 180) //nolint:mnd
}

const (
	earthRadiusKm      = 6371
	kmToMeters         = 1000
	placesMult         = 1e7
	coordinateDecimals = 4
)
