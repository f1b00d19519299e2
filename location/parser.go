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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ParserOptions configures a Parser.
type ParserOptions struct {
	// Receives progress messages. If nil, nothing is logged.
	Logger *zap.Logger

	// If set, called every ProgressInterval accepted records
	// with the number of records accepted so far.
	Progress func(accepted int)

	// How many accepted records between progress signals.
	// Default: 100,000.
	ProgressInterval int
}

// parserState is the position of the parser within the document.
type parserState int

const (
	stateNotStarted       parserState = iota // before the opening '{'
	stateSeekingLocations                    // among top-level fields, looking for "locations"
	stateInArray                             // between elements of the "locations" array
	stateInObject                            // among the fields of an array element
	stateEnded                               // the array (or document) has ended
)

func (s parserState) String() string {
	switch s {
	case stateNotStarted:
		return "not started"
	case stateSeekingLocations:
		return "seeking locations"
	case stateInArray:
		return "in array"
	case stateInObject:
		return "in object"
	case stateEnded:
		return "ended"
	}
	return "unknown"
}

// Parser streams location records out of a Google location history
// document (Takeout's Records.json, or the older "Location History.json"),
// which looks like:
//
//	{ ..., "locations": [ {record}, {record}, ... ] }
//
// Only the "locations" array is read; any other top-level fields before it
// are skipped, as are unknown fields of each record. Records that lack a
// timestamp, latitude, longitude, or accuracy are silently dropped.
//
// The parser never reads the whole document into memory; it pulls one
// JSON token at a time as Next is called.
type Parser struct {
	dec      *json.Decoder
	state    parserState
	current  partialRecord
	accepted int
	opts     ParserOptions
	log      *zap.Logger
}

// NewParser returns a parser that reads a location history from r.
func NewParser(r io.Reader, opts ParserOptions) *Parser {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		dec:  dec,
		opts: opts,
		log:  logger.Named("parser"),
	}
}

// Accepted returns how many records have been returned so far.
func (p *Parser) Accepted() int { return p.accepted }

// Next returns the next valid record; it returns nil, nil
// when there are no more records. Malformed input results
// in a *ParseError, after which the parser must not be used.
func (p *Parser) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch p.state {
		case stateNotStarted:
			if err := p.expectDelim('{', ""); err != nil {
				return nil, err
			}
			p.state = stateSeekingLocations

		case stateSeekingLocations:
			tok, err := p.token("")
			if err != nil {
				return nil, err
			}
			if tok == json.Delim('}') {
				// document ended without a locations array
				p.log.Debug("no locations field in document")
				p.state = stateEnded
				continue
			}
			name, ok := tok.(string)
			if !ok {
				return nil, &ParseError{Token: tok, Msg: "expected field name"}
			}
			if name != "locations" {
				if err := p.skipValue(name); err != nil {
					return nil, err
				}
				continue
			}
			if err := p.expectDelim('[', name); err != nil {
				return nil, err
			}
			p.state = stateInArray

		case stateInArray:
			tok, err := p.token("locations")
			if err != nil {
				return nil, err
			}
			switch tok {
			case json.Delim(']'):
				p.state = stateEnded
			case json.Delim('{'):
				p.current = partialRecord{}
				p.state = stateInObject
			default:
				return nil, &ParseError{Token: tok, Field: "locations", Msg: "expected '{' or ']'"}
			}

		case stateInObject:
			tok, err := p.token("")
			if err != nil {
				return nil, err
			}
			if tok == json.Delim('}') {
				p.state = stateInArray
				if !p.current.buildable() {
					continue
				}
				rec, err := p.current.finalize()
				if err != nil {
					// field-level checks should have prevented this
					return nil, &ParseError{Msg: "building record", Err: err}
				}
				p.accept()
				return &rec, nil
			}
			name, ok := tok.(string)
			if !ok {
				return nil, &ParseError{Token: tok, Msg: "expected field name or '}'"}
			}
			if err := p.decodeField(name); err != nil {
				return nil, err
			}

		case stateEnded:
			return nil, nil

		default:
			return nil, fmt.Errorf("parser in unknown state: %s", p.state)
		}
	}
}

func (p *Parser) accept() {
	p.accepted++
	if p.accepted%p.opts.ProgressInterval == 0 {
		p.log.Info("locations parsed", zap.Int("count", p.accepted))
		if p.opts.Progress != nil {
			p.opts.Progress(p.accepted)
		}
	}
}

// decodeField decodes the value of the named field into the
// current partial record, or skips it if it is not recognized.
func (p *Parser) decodeField(name string) error {
	switch name {
	case "timestampMs":
		tok, err := p.token(name)
		if err != nil {
			return err
		}
		var ms int64
		switch v := tok.(type) {
		case string:
			ms, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return &ParseError{Token: tok, Field: name, Msg: "not an integer", Err: err}
			}
		case json.Number:
			ms, err = v.Int64()
			if err != nil {
				return &ParseError{Token: tok, Field: name, Msg: "not an integer", Err: err}
			}
		default:
			return &ParseError{Token: tok, Field: name, Msg: "expected string or integer"}
		}
		ts := time.UnixMilli(ms)
		p.current.timestamp = &ts

	case "timestamp":
		// exports since about 2022 have an RFC 3339 timestamp instead of timestampMs
		tok, err := p.token(name)
		if err != nil {
			return err
		}
		s, ok := tok.(string)
		if !ok {
			return &ParseError{Token: tok, Field: name, Msg: "expected string"}
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return &ParseError{Token: tok, Field: name, Msg: "not an RFC 3339 timestamp", Err: err}
		}
		p.current.timestamp = &ts

	case "latitudeE7", "longitudeE7":
		v, err := p.integer(name)
		if err != nil {
			return err
		}
		if name == "latitudeE7" {
			p.current.latitudeE7 = &v
		} else {
			p.current.longitudeE7 = &v
		}

	case "accuracy":
		v, err := p.integer(name)
		if err != nil {
			return err
		}
		if v < 0 {
			return &ParseError{Field: name, Msg: "must not be negative", Err: ErrInvalidRecord}
		}
		p.current.accuracy = &v

	case "altitude":
		v, err := p.integer(name)
		if err != nil {
			return err
		}
		p.current.altitude = &v

	case "heading":
		v, err := p.integer(name)
		if err != nil {
			return err
		}
		if v >= 360 {
			return &ParseError{Field: name, Msg: "must be less than 360", Err: ErrInvalidRecord}
		}
		// negative headings mean "unknown"
		if v >= 0 {
			p.current.heading = &v
		}

	default:
		return p.skipValue(name)
	}

	return nil
}

// integer reads the next token, which must be an integral number.
func (p *Parser) integer(field string) (int64, error) {
	tok, err := p.token(field)
	if err != nil {
		return 0, err
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, &ParseError{Token: tok, Field: field, Msg: "expected integer"}
	}
	v, err := num.Int64()
	if err != nil {
		return 0, &ParseError{Token: tok, Field: field, Msg: "expected integer", Err: err}
	}
	return v, nil
}

// skipValue skips the next value entirely, whether a scalar or
// a nested object or array.
func (p *Parser) skipValue(field string) error {
	tok, err := p.token(field)
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar
	}
	if delim == '}' || delim == ']' {
		return &ParseError{Token: tok, Field: field, Msg: "expected a value"}
	}
	for depth := 1; depth > 0; {
		tok, err := p.token(field)
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	return nil
}

// expectDelim reads the next token and returns an error
// if it is not the expected delimiter.
func (p *Parser) expectDelim(expected json.Delim, field string) error {
	tok, err := p.token(field)
	if err != nil {
		return err
	}
	if tok != expected {
		return &ParseError{Token: tok, Field: field, Msg: fmt.Sprintf("expected '%s'", expected)}
	}
	return nil
}

// token reads the next token; running out of input is always
// an error because the parser stops reading at the end of the
// locations array.
func (p *Parser) token(field string) (json.Token, error) {
	tok, err := p.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Field: field, Msg: "unexpected end of input", Err: io.ErrUnexpectedEOF}
	}
	if err != nil {
		return nil, &ParseError{Field: field, Msg: "reading token", Err: err}
	}
	return tok, nil
}

const (
	defaultProgressInterval = 100_000
)
