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

package trailcmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/timelinize/trailmap/config"
	"github.com/timelinize/trailmap/location"
	"github.com/timelinize/trailmap/staticmap"
	"go.uber.org/zap"
)

// execute reads the location history described by cfg and renders
// its images, or prints their paths to stdout for a dry run.
func execute(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout, stderr io.Writer) error {
	settings, err := cfg.Parse()
	if err != nil {
		return configError{err}
	}

	seq, err := loadSequence(ctx, cfg, settings, logger)
	if err != nil {
		return err
	}

	renderer := &staticmap.Renderer{
		OutputDir:  cfg.OutputDir,
		Zoom:       cfg.Zoom,
		Width:      settings.Width,
		Height:     settings.Height,
		Scale:      cfg.Scale,
		Format:     cfg.Format,
		PathColor:  settings.PathColor,
		PathWeight: cfg.PathWeight,
		PointLimit: cfg.PointLimit,
		Workers:    cfg.Workers,
		Logger:     logger,
	}

	if cfg.DryRun {
		return printPaths(ctx, stdout, renderer, seq)
	}

	google, err := staticmap.NewGoogleFetcher(cfg.APIKey, cfg.RateLimit)
	if err != nil {
		return configError{err}
	}
	renderer.Fetcher = google

	if cfg.Cache != "" {
		cache, err := staticmap.OpenCache(cfg.Cache, google, logger)
		if err != nil {
			return err
		}
		defer cache.Close()
		renderer.Fetcher = cache
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbosity != "quiet" {
		bar = newProgressBar(seq.Len(), stderr)
		renderer.OnProgress = func(done, _ int) {
			_ = bar.Set(done)
		}
	}

	start := time.Now()
	stats, err := renderer.Render(ctx, seq)
	if bar != nil {
		_ = bar.Exit()
	}
	if err != nil {
		return err
	}

	logger.Info("done",
		zap.String("run_id", stats.RunID),
		zap.Int("images", stats.Snapshots),
		zap.Int("cache_hits", stats.CacheHits),
		zap.String("output_dir", cfg.OutputDir),
		durationField("duration", time.Since(start)))

	return nil
}

// loadSequence reads, orders, filters and optionally resamples the
// location records.
func loadSequence(ctx context.Context, cfg *config.Config, settings config.Settings, logger *zap.Logger) (*location.Sequence, error) {
	in, err := location.OpenInput(ctx, cfg.Input, location.InputOptions{
		Parser: location.ParserOptions{Logger: logger},
	})
	if err != nil {
		return nil, err
	}
	defer in.Close()

	start := time.Now()
	records, err := location.ReadAll(ctx, in.Source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in.Filename, err)
	}
	logger.Info("read location history",
		zap.String("filename", in.Filename),
		zap.Int("records", len(records)),
		durationField("duration", time.Since(start)))

	keep := location.AllOf(
		location.Between(settings.Start, settings.End),
		location.NotAt(settings.Corrections...),
	)
	seq, err := location.Build(records, keep)
	if err != nil {
		return nil, err
	}
	if n := seq.Duplicates(); n > 0 {
		logger.Debug("collapsed records with the same timestamp", zap.Int("count", n))
	}
	logger.Info("built location sequence",
		zap.Int("locations", seq.Len()),
		zap.Time("first", seq.Record(seq.First()).Timestamp),
		zap.Time("last", seq.Record(seq.Last()).Timestamp))

	if cfg.Interpolation > 0 {
		seq, err = location.Resample(seq, cfg.Interpolation)
		if err != nil {
			return nil, err
		}
		logger.Info("resampled location sequence",
			zap.Duration("interval", cfg.Interpolation),
			zap.Int("locations", seq.Len()))
	}

	return seq, nil
}

// printPaths writes one line per image: the timestamp in
// milliseconds and the path that would be drawn.
func printPaths(ctx context.Context, w io.Writer, renderer *staticmap.Renderer, seq *location.Sequence) error {
	for id, rec := range seq.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := renderer.Request(seq, id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%d %s\n", rec.Timestamp.UnixMilli(), staticmap.Polyline(req.Path)); err != nil {
			return err
		}
	}
	return nil
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]Downloading map images...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
