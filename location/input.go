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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
)

// InputOptions configures how an input is opened and read.
type InputOptions struct {
	// Options for the JSON parser, if the input is a location history.
	Parser ParserOptions

	// The year representing the century of NMEA dates.
	// If not set, the current year is used.
	ReferenceYear int
}

// Input is an opened source of location records.
type Input struct {
	Source RecordSource

	// The file that was found to contain the records,
	// which may be within a folder or archive.
	Filename string

	closers []io.Closer
}

// Close closes the underlying files.
func (in *Input) Close() error {
	var errs []error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenInput opens a file of location records. It can be a location
// history JSON file, an NMEA log, a GPX or a GeoJSON document (any of
// them optionally compressed with gzip or zstd), or a Google Takeout
// export, either extracted to a folder or still in its archive. For
// Takeout exports, the location history is found within it.
func OpenInput(ctx context.Context, filename string, opts InputOptions) (*Input, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}

	// directories and archives are opened as file systems
	if info.IsDir() || isArchive(filename) {
		return openTakeout(ctx, filename, opts)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	in, err := newInput(filename, file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	return in, nil
}

// openTakeout finds the location history within a Takeout folder
// or archive.
func openTakeout(ctx context.Context, root string, opts InputOptions) (*Input, error) {
	fsys, err := archives.FileSystem(ctx, root, nil)
	if err != nil {
		return nil, fmt.Errorf("opening %s as file system: %w", root, err)
	}

	for _, pathToTry := range []string{
		path.Join(takeoutRoot, takeoutLocationHistoryPath2024, recordsFilename),
		path.Join(takeoutRoot, takeoutLocationHistoryPathPre2024, recordsFilename),
	} {
		file, err := flexibleOpen(fsys, pathToTry)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", pathToTry, err)
		}
		in, err := newInput(pathToTry, file, opts)
		if err != nil {
			file.Close()
			return nil, err
		}
		return in, nil
	}

	return nil, fmt.Errorf("no location history found in %s: %w", root, fs.ErrNotExist)
}

// flexibleOpen tries opening the given file as if the folder containing "Takeout"
// was selected, then as if "Takeout" itself was (TopDirOpen strips the first path
// component); then if not found, it tries the file name alone, as if the location
// history folder was selected.
func flexibleOpen(fsys fs.FS, filename string) (fs.File, error) {
	file, err := archives.TopDirOpen(fsys, filename)
	if errors.Is(err, fs.ErrNotExist) {
		file, err = fsys.Open(path.Base(filename))
	}
	return file, err
}

// newInput wraps file in a decompressor, if needed, and
// the record source appropriate for its file extension.
func newInput(filename string, file io.ReadCloser, opts InputOptions) (*Input, error) {
	in := &Input{Filename: filename, closers: []io.Closer{file}}

	var r io.Reader = file
	base := strings.ToLower(path.Base(filename))

	switch ext := path.Ext(base); ext {
	case ".gz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		in.closers = append(in.closers, gz)
		r = gz
		base = strings.TrimSuffix(base, ext)
	case ".zst":
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		zrc := zr.IOReadCloser()
		in.closers = append(in.closers, zrc)
		r = zrc
		base = strings.TrimSuffix(base, ext)
	}

	switch path.Ext(base) {
	case ".nmea", ".nme":
		in.Source = NewNMEASource(r, opts.ReferenceYear, opts.Parser.Logger)
	case ".gpx":
		in.Source = NewGPXSource(r, opts.Parser.Logger)
	case ".geojson":
		in.Source = NewGeoJSONSource(r, opts.Parser.Logger)
	default:
		in.Source = NewParser(r, opts.Parser)
	}

	return in, nil
}

func isArchive(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".zip", ".tar", ".tgz", ".tar.gz", ".tar.zst", ".tar.xz", ".tar.bz2"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

const (
	takeoutRoot                       = "Takeout"
	takeoutLocationHistoryPathPre2024 = "Location History"
	takeoutLocationHistoryPath2024    = "Location History (Timeline)"
	recordsFilename                   = "Records.json"
)
