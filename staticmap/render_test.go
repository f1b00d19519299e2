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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timelinize/trailmap/geo"
)

// fakeFetcher "renders" an image whose data is the request string.
type fakeFetcher struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Image{}, f.err
	}
	f.requests = append(f.requests, req)
	return Image{Format: req.format(), Data: []byte(req.String())}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testRenderer(fetcher ImageFetcher, dir string) *Renderer {
	return &Renderer{
		Fetcher:    fetcher,
		OutputDir:  dir,
		Zoom:       10,
		Width:      512,
		Height:     512,
		Scale:      1,
		PathColor:  "0x0000ff80",
		PathWeight: 5,
		PointLimit: DefaultPointLimit,
		Workers:    3,
	}
}

func TestRequestString(t *testing.T) {
	req := Request{
		Center:     geo.Point{Latitude: 1, Longitude: 2},
		Zoom:       12,
		Width:      640,
		Height:     480,
		Scale:      2,
		Path:       []geo.Point{{Latitude: 0.5, Longitude: 1.5}, {Latitude: 1, Longitude: 2}},
		PathColor:  "0xff0000ff",
		PathWeight: 3,
	}
	assert.Equal(t,
		"center=1.0000,2.0000&zoom=12&size=640x480&scale=2&format=png&path=color:0xff0000ff|weight:3|0.5000,1.5000|1.0000,2.0000",
		req.String())

	req.Path = nil
	req.Format = FormatJPG
	assert.Equal(t, "center=1.0000,2.0000&zoom=12&size=640x480&scale=2&format=jpg", req.String())
}

func TestRender(t *testing.T) {
	seq := makeSequence(t,
		geo.Point{Longitude: 0},
		geo.Point{Longitude: 0.01},
		geo.Point{Longitude: 0.02},
		geo.Point{Longitude: 0.03},
	)
	dir := t.TempDir()

	// an existing file must not be overwritten
	existing := filepath.Join(dir, strconv.FormatInt(epoch.UnixMilli(), 10)+".png")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o600))

	fetcher := new(fakeFetcher)
	r := testRenderer(fetcher, dir)

	var progress []int
	r.OnProgress = func(done, total int) {
		assert.Equal(t, 4, total)
		progress = append(progress, done)
	}

	stats, err := r.Render(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Snapshots)
	assert.Zero(t, stats.CacheHits)
	assert.NotEmpty(t, stats.RunID)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, progress)
	assert.Equal(t, 4, fetcher.count())

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	for id, rec := range seq.All() {
		name := strconv.FormatInt(rec.Timestamp.UnixMilli(), 10)
		if id == seq.First() {
			name += "-1"
		}
		data, err := os.ReadFile(filepath.Join(dir, name+".png"))
		if !assert.NoError(t, err) {
			continue
		}
		req, err := r.Request(seq, id)
		require.NoError(t, err)
		assert.Equal(t, req.String(), string(data))
	}
}

func TestRenderRequestPaths(t *testing.T) {
	seq := makeSequence(t,
		geo.Point{Longitude: 0},
		geo.Point{Longitude: 0.01},
		geo.Point{Longitude: 0.02},
	)
	r := testRenderer(new(fakeFetcher), t.TempDir())

	req, err := r.Request(seq, seq.Last())
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Longitude: 0.02}, req.Center)
	assert.Len(t, req.Path, 3)

	req, err = r.Request(seq, seq.First())
	require.NoError(t, err)
	assert.Len(t, req.Path, 1)

	r.Zoom = 0
	_, err = r.Request(seq, seq.First())
	assert.Error(t, err)
}

func TestRenderFetchError(t *testing.T) {
	seq := makeSequence(t, geo.Point{}, geo.Point{Longitude: 0.01})
	boom := errors.New("quota exceeded")
	r := testRenderer(&fakeFetcher{err: boom}, t.TempDir())

	_, err := r.Render(context.Background(), seq)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, boom)
}

func TestRenderCanceled(t *testing.T) {
	seq := makeSequence(t, geo.Point{}, geo.Point{Longitude: 0.01})
	fetcher := new(fakeFetcher)
	r := testRenderer(fetcher, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := r.Render(ctx, seq)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Snapshots)
	assert.Zero(t, fetcher.count())
}
