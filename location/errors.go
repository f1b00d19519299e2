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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRecord is returned when a record would be constructed
	// with a field outside its allowed range.
	ErrInvalidRecord = errors.New("invalid location record")

	// ErrNoLocations is returned when no records remain after
	// parsing and filtering.
	ErrNoLocations = errors.New("no locations")

	// ErrInvalidParameter is returned for non-positive intervals,
	// limits, zoom levels, scales or sizes, and for interpolation
	// balances outside [0,1].
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParseError describes malformed input found while parsing a location
// history: a structural token where a different one was expected, or a
// scalar of the wrong kind for a known field. A ParseError aborts the
// whole parse.
type ParseError struct {
	// The token that was found, if any.
	Token json.Token

	// The field being decoded, if known.
	Field string

	// What went wrong.
	Msg string

	// Underlying error, such as a syntax or read error.
	Err error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("parsing locations")
	if e.Field != "" {
		fmt.Fprintf(&sb, ": field %q", e.Field)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Token != nil {
		fmt.Fprintf(&sb, " (found %s)", describeToken(e.Token))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// describeToken renders a JSON token in a way that makes
// the kind of token obvious in error messages.
func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return fmt.Sprintf("'%s'", v)
	case string:
		return fmt.Sprintf("string %q", v)
	case json.Number:
		return "number " + v.String()
	case float64:
		return fmt.Sprintf("number %v", v)
	case bool:
		return fmt.Sprintf("bool %t", v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
