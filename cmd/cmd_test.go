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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timelinize/trailmap/location"
	"github.com/timelinize/trailmap/staticmap"
)

const history = `{
	"locations": [
		{"timestampMs": "1577836800000", "latitudeE7": 450000000, "longitudeE7": 90000000, "accuracy": 10},
		{"timestampMs": "1577836860000", "latitudeE7": 450010000, "longitudeE7": 90010000, "accuracy": 10},
		{"timestampMs": "1577836920000", "latitudeE7": 450020000, "longitudeE7": 90020000, "accuracy": 10}
	]
}`

// isolate keeps the user's own config and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "TRAILMAP_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeHistory(t *testing.T, contents string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "Records.json")
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))
	return file
}

func TestParseFlags(t *testing.T) {
	configFile, overrides, err := parseFlags([]string{
		"-config", "my.yaml",
		"-zoom", "12",
		"-color", "red",
		"-output", "frames",
		"-interpolation", "5m",
		"-dry-run",
		"-v",
		"Records.json",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "my.yaml", configFile)
	assert.Equal(t, map[string]any{
		"zoom":          12,
		"path_color":    "red",
		"output_dir":    "frames",
		"interpolation": 5 * time.Minute,
		"dry_run":       true,
		"verbosity":     "verbose",
		"input":         "Records.json",
	}, overrides)

	// flags that aren't given don't override anything
	_, overrides, err = parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	for i, args := range [][]string{
		{"-v", "-q"},
		{"-input", "a.json", "b.json"},
		{"a.json", "b.json"},
		{"-zoom", "ten"},
	} {
		_, _, err := parseFlags(args, io.Discard)
		assert.Error(t, err, "Test %d", i)
	}
}

func TestExitCode(t *testing.T) {
	for i, tc := range []struct {
		err    error
		expect int
	}{
		{err: nil, expect: exitOK},
		{err: fmt.Errorf("reading: %w", &location.ParseError{Msg: "bad"}), expect: exitParse},
		{err: location.ErrNoLocations, expect: exitNoLocations},
		{err: &staticmap.FetchError{Err: errors.New("denied")}, expect: exitFetch},
		{err: configError{errors.New("bad size")}, expect: exitConfig},
		{err: fmt.Errorf("resampling: %w", location.ErrInvalidParameter), expect: exitConfig},
		{err: os.ErrNotExist, expect: exitRead},
		{err: context.Canceled, expect: exitRead},
	} {
		if actual := exitCode(tc.err); actual != tc.expect {
			t.Errorf("Test %d: expected exit code %d for %v, got %d", i, tc.expect, tc.err, actual)
		}
	}
}

func TestRunDryRun(t *testing.T) {
	isolate(t)
	input := writeHistory(t, history)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-dry-run", "-q", input}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{
		"1577836800000 45.0000,9.0000",
		"1577836860000 45.0000,9.0000|45.0010,9.0010",
		"1577836920000 45.0000,9.0000|45.0010,9.0010|45.0020,9.0020",
	}, lines)
}

func TestRunDryRunResampled(t *testing.T) {
	isolate(t)
	input := writeHistory(t, history)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-dry-run", "-q", "-interpolation", "30s", "-input", input}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	// ticks at 0s, 30s, 60s and 90s; the one at 120s has nothing after it
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 4)
}

func TestRunExitCodes(t *testing.T) {
	isolate(t)
	good := writeHistory(t, history)

	for i, tc := range []struct {
		args   []string
		expect int
	}{
		{args: []string{"-dry-run", "-start", "2021-01-01", good}, expect: exitNoLocations},
		{args: []string{"-dry-run", writeHistory(t, `{"locations": {}}`)}, expect: exitParse},
		{args: []string{"-dry-run", filepath.Join(t.TempDir(), "missing.json")}, expect: exitRead},
		{args: []string{"-dry-run", "-zoom", "0", good}, expect: exitConfig},
		{args: []string{good}, expect: exitConfig}, // no API key
		{args: []string{"-dry-run", "-bogus", good}, expect: exitConfig},
	} {
		var stdout, stderr bytes.Buffer
		if actual := run(tc.args, &stdout, &stderr); actual != tc.expect {
			t.Errorf("Test %d: expected exit code %d, got %d (stderr: %s)", i, tc.expect, actual, stderr.String())
		}
	}
}
