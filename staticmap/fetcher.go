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
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/timelinize/trailmap/geo"
	"googlemaps.github.io/maps"
)

// Image formats that can be requested.
const (
	FormatPNG = "png"
	FormatJPG = "jpg"
	FormatGIF = "gif"
)

// Request describes one static map image.
type Request struct {
	Center geo.Point
	Zoom   int
	Width  int
	Height int
	Scale  int

	// The path to draw, and how to draw it. Color is a
	// Static Maps color: 0xRRGGBB, 0xRRGGBBAA, or a name.
	Path       []geo.Point
	PathColor  string
	PathWeight int

	// One of the Format* constants; empty means PNG.
	Format string
}

// String returns the request as a canonical query-like string.
// Requests that would produce the same image have the same string.
func (r Request) String() string {
	var sb strings.Builder
	sb.WriteString("center=")
	sb.WriteString(r.Center.String())
	sb.WriteString("&zoom=")
	sb.WriteString(strconv.Itoa(r.Zoom))
	fmt.Fprintf(&sb, "&size=%dx%d", r.Width, r.Height)
	sb.WriteString("&scale=")
	sb.WriteString(strconv.Itoa(r.Scale))
	sb.WriteString("&format=")
	sb.WriteString(r.format())
	if len(r.Path) > 0 {
		fmt.Fprintf(&sb, "&path=color:%s|weight:%d|", r.PathColor, r.PathWeight)
		sb.WriteString(Polyline(r.Path))
	}
	return sb.String()
}

func (r Request) format() string {
	if r.Format == "" {
		return FormatPNG
	}
	return r.Format
}

// Image is an encoded map image.
type Image struct {
	Format string // one of the Format* constants
	Data   []byte

	// True if the image came from a cache rather than the network.
	Cached bool
}

// Extension returns the file extension for the image, including the dot.
func (img Image) Extension() string {
	if img.Format == "" {
		return "." + FormatPNG
	}
	return "." + img.Format
}

// ImageFetcher is a type that can produce a static map image.
type ImageFetcher interface {
	Fetch(ctx context.Context, req Request) (Image, error)
}

// GoogleFetcher gets images from the Google Static Maps API.
type GoogleFetcher struct {
	client *maps.Client
}

// NewGoogleFetcher returns a fetcher that authenticates with apiKey.
// If requestsPerSecond is positive, requests are rate-limited.
func NewGoogleFetcher(apiKey string, requestsPerSecond int) (*GoogleFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("an API key is required")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if requestsPerSecond > 0 {
		opts = append(opts, maps.WithRateLimit(requestsPerSecond))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleFetcher{client: client}, nil
}

// Fetch downloads the map image described by req.
func (g *GoogleFetcher) Fetch(ctx context.Context, req Request) (Image, error) {
	format, err := apiFormat(req.format())
	if err != nil {
		return Image{}, err
	}

	smr := &maps.StaticMapRequest{
		Center: req.Center.String(),
		Zoom:   req.Zoom,
		Size:   fmt.Sprintf("%dx%d", req.Width, req.Height),
		Scale:  req.Scale,
		Format: format,
	}
	if len(req.Path) > 0 {
		path := maps.Path{
			Color:    req.PathColor,
			Weight:   req.PathWeight,
			Location: make([]maps.LatLng, len(req.Path)),
		}
		for i, p := range req.Path {
			path.Location[i] = maps.LatLng{
				Lat: geo.RoundCoordinate(p.Latitude),
				Lng: geo.RoundCoordinate(p.Longitude),
			}
		}
		smr.Paths = []maps.Path{path}
	}

	img, err := g.client.StaticMap(ctx, smr)
	if err != nil {
		return Image{}, fmt.Errorf("maps api error: %w", err)
	}

	data, err := encodeImage(img, req.format())
	if err != nil {
		return Image{}, err
	}
	return Image{Format: req.format(), Data: data}, nil
}

// apiFormat returns the Static Maps format for one of our formats.
func apiFormat(format string) (maps.Format, error) {
	switch format {
	case FormatPNG:
		return maps.PNG32, nil
	case FormatJPG:
		return maps.JPG, nil
	case FormatGIF:
		return maps.GIF, nil
	}
	return "", fmt.Errorf("unsupported image format: %s", format)
}

// encodeImage encodes img; the client decodes the response
// body, so it has to be encoded again to be saved.
func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		err = fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}

const jpegQuality = 90
