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

// Package trailcmd facilitates the command line interface (CLI)
// and implements the main().
package trailcmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/timelinize/trailmap/config"
	"github.com/timelinize/trailmap/location"
	"github.com/timelinize/trailmap/staticmap"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK = iota
	exitParse
	exitRead
	exitNoLocations
	exitFetch
	exitConfig
)

func Main() {
	os.Exit(run(os.Args[1:], os.Stdout, ansi.NewAnsiStderr()))
}

// run runs the program with the given arguments and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	configFile, overrides, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	cfg, err := config.Load(configFile, overrides)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}

	logger := newLogger(cfg.Verbosity, stderr)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, cfg, logger, stdout, stderr); err != nil {
		code := exitCode(err)
		logger.Error("failed", zap.Int("exit_code", code), zap.Error(err))
		return code
	}
	return exitOK
}

// parseFlags parses the command line. It returns the config file to load,
// if any, and the settings that were explicitly given, keyed by their names
// in the config file. A single positional argument is taken as the input.
func parseFlags(args []string, output io.Writer) (string, map[string]any, error) {
	fs := flag.NewFlagSet("trailmap", flag.ContinueOnError)
	fs.SetOutput(output)

	var configFile string
	fs.StringVar(&configFile, "config", "", "Config file (default: trailmap.yaml in the current or user config directory)")

	// flag name → config key
	keys := map[string]string{
		"input":         "input",
		"output":        "output_dir",
		"api-key":       "api_key",
		"start":         "start",
		"end":           "end",
		"corrections":   "corrections",
		"interpolation": "interpolation",
		"zoom":          "zoom",
		"size":          "size",
		"scale":         "scale",
		"format":        "format",
		"color":         "path_color",
		"weight":        "path_weight",
		"limit":         "point_limit",
		"workers":       "workers",
		"rate-limit":    "rate_limit",
		"cache":         "cache",
		"dry-run":       "dry_run",
	}

	input := fs.String("input", "", "Location history: Records.json (optionally .gz or .zst), an NMEA log, a GPX or GeoJSON file, or a Takeout folder or archive")
	outDir := fs.String("output", "", "Folder to save images in (default: images)")
	apiKey := fs.String("api-key", "", "Google Static Maps API key")
	start := fs.String("start", "", "Leave out locations before this time")
	end := fs.String("end", "", "Leave out locations after this time")
	corrections := fs.String("corrections", "", "Comma-separated timestamps of locations to leave out")
	interpolation := fs.Duration("interpolation", 0, "Resample the locations at this interval, e.g. 10m (default: off)")
	zoom := fs.Int("zoom", 0, "Map zoom level (default: 10)")
	size := fs.String("size", "", "Image size as WIDTHxHEIGHT (default: 512x512)")
	scale := fs.Int("scale", 0, "Image scale: 1, 2 or 4 (default: 1)")
	format := fs.String("format", "", "Image format: png, jpg or gif (default: png)")
	color := fs.String("color", "", "Path color (default: 0x0000ff80)")
	weight := fs.Int("weight", 0, "Path weight in pixels (default: 5)")
	limit := fs.Int("limit", 0, "Maximum number of points in each path (default: 200)")
	workers := fs.Int("workers", 0, "How many images to download at once (default: 4)")
	rateLimit := fs.Int("rate-limit", 0, "Maximum requests per second to the maps API (default: unlimited)")
	cache := fs.String("cache", "", "Cache downloaded images in this database file")
	dryRun := fs.Bool("dry-run", false, "Print the path of each image instead of downloading it")
	verbose := fs.Bool("v", false, "Verbose logging")
	quiet := fs.Bool("q", false, "Only log warnings and errors, and don't show progress")

	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}

	values := map[string]any{
		"input":         *input,
		"output":        *outDir,
		"api-key":       *apiKey,
		"start":         *start,
		"end":           *end,
		"corrections":   *corrections,
		"interpolation": *interpolation,
		"zoom":          *zoom,
		"size":          *size,
		"scale":         *scale,
		"format":        *format,
		"color":         *color,
		"weight":        *weight,
		"limit":         *limit,
		"workers":       *workers,
		"rate-limit":    *rateLimit,
		"cache":         *cache,
		"dry-run":       *dryRun,
	}

	// only flags that were given override other settings
	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok {
			overrides[key] = values[f.Name]
		}
	})

	switch {
	case *verbose && *quiet:
		return "", nil, errors.New("-v and -q are mutually exclusive")
	case *verbose:
		overrides["verbosity"] = "verbose"
	case *quiet:
		overrides["verbosity"] = "quiet"
	}

	switch fs.NArg() {
	case 0:
	case 1:
		if _, ok := overrides["input"]; ok {
			return "", nil, errors.New("input given both as -input and as an argument")
		}
		overrides["input"] = fs.Arg(0)
	default:
		return "", nil, fmt.Errorf("too many arguments: %v; make sure flags go before the input", fs.Args())
	}

	return configFile, overrides, nil
}

// exitCode returns the process exit code for err.
func exitCode(err error) int {
	var (
		parseErr *location.ParseError
		fetchErr *staticmap.FetchError
		cfgErr   configError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &parseErr):
		return exitParse
	case errors.Is(err, location.ErrNoLocations):
		return exitNoLocations
	case errors.As(err, &fetchErr):
		return exitFetch
	case errors.As(err, &cfgErr), errors.Is(err, location.ErrInvalidParameter):
		return exitConfig
	}
	return exitRead
}

// configError marks an error in the settings that was only
// found once the run started.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// durationField is zap.Duration rounded for humans.
func durationField(key string, d time.Duration) zap.Field {
	return zap.Duration(key, d.Round(time.Millisecond))
}
