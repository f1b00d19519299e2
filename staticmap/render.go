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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/timelinize/trailmap/location"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Renderer draws one map image per record of a sequence. Each image is
// centered on its record and shows the path up to it. Images are saved
// in OutputDir, named after the record's timestamp in milliseconds since
// the Unix epoch.
type Renderer struct {
	Fetcher   ImageFetcher
	OutputDir string

	// Map parameters; see NewViewport.
	Zoom   int
	Width  int
	Height int
	Scale  int
	Format string

	PathColor  string
	PathWeight int

	// Maximum number of points in each path; see SimplifyPath.
	PointLimit int

	// How many images to get at once. Default: 1.
	Workers int

	Logger *zap.Logger

	// If set, called after each image is saved with the number
	// of images done so far and the total. Calls are serialized.
	OnProgress func(done, total int)
}

// RenderStats summarizes a call to Render.
type RenderStats struct {
	RunID     string
	Snapshots int
	CacheHits int
}

// FetchError is returned when an image could not be gotten.
type FetchError struct {
	Timestamp time.Time
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("getting map image for %s: %v", e.Timestamp.Format(time.RFC3339), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Request returns the image request for the snapshot of seq at id.
func (r *Renderer) Request(seq *location.Sequence, id location.NodeID) (Request, error) {
	center := seq.Record(id).Point

	vp, err := NewViewport(center, r.Zoom, r.Width, r.Height, r.Scale)
	if err != nil {
		return Request{}, err
	}
	path, err := SimplifyPath(seq, id, vp, r.PointLimit)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Center:     center,
		Zoom:       r.Zoom,
		Width:      r.Width,
		Height:     r.Height,
		Scale:      r.Scale,
		Path:       path,
		PathColor:  r.PathColor,
		PathWeight: r.PathWeight,
		Format:     r.Format,
	}, nil
}

// Render gets and saves an image for every record in seq. It stops at
// the first error, or when ctx is canceled, waiting for any images in
// progress to finish.
func (r *Renderer) Render(ctx context.Context, seq *location.Sequence) (RenderStats, error) {
	stats := RenderStats{RunID: uuid.New().String()}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("renderer").With(zap.String("run_id", stats.RunID))

	if r.Fetcher == nil {
		return stats, errors.New("no image fetcher")
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return stats, fmt.Errorf("creating output folder: %w", err)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(withRunID(ctx, stats.RunID))
	g.SetLimit(workers)

	var (
		done, hits atomic.Int64
		progressMu sync.Mutex
	)
	total := seq.Len()

	logger.Info("rendering snapshots",
		zap.Int("count", total),
		zap.Int("workers", workers),
		zap.String("output_dir", r.OutputDir))

	for id, rec := range seq.All() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req, err := r.Request(seq, id)
			if err != nil {
				return err
			}
			img, err := r.Fetcher.Fetch(gctx, req)
			if err != nil {
				return &FetchError{Timestamp: rec.Timestamp, Err: err}
			}
			if img.Cached {
				hits.Add(1)
			}

			filename, err := r.save(rec.Timestamp, img)
			if err != nil {
				return err
			}
			logger.Debug("saved snapshot",
				zap.Time("timestamp", rec.Timestamp),
				zap.Int("path_points", len(req.Path)),
				zap.Bool("cached", img.Cached),
				zap.String("filename", filename))

			n := int(done.Add(1))
			if r.OnProgress != nil {
				progressMu.Lock()
				r.OnProgress(n, total)
				progressMu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	stats.Snapshots = int(done.Load())
	stats.CacheHits = int(hits.Load())
	if err != nil {
		return stats, err
	}

	logger.Info("finished rendering",
		zap.Int("snapshots", stats.Snapshots),
		zap.Int("cache_hits", stats.CacheHits))

	return stats, nil
}

// save writes the image into the output folder without overwriting any
// existing file, and returns the name of the file it wrote.
func (r *Renderer) save(ts time.Time, img Image) (string, error) {
	base := strconv.FormatInt(ts.UnixMilli(), 10)
	ext := img.Extension()

	for n := 0; ; n++ {
		name := base + ext
		if n > 0 {
			name = base + "-" + strconv.Itoa(n) + ext
		}
		filename := filepath.Join(r.OutputDir, name)

		file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating image file: %w", err)
		}

		_, err = file.Write(img.Data)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return "", fmt.Errorf("writing %s: %w", filename, err)
		}
		return filename, nil
	}
}

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
