package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow is returned when a data row does not line up with its header.
	ErrMalformedRow = errors.New("malformed row")
	// ErrParse is returned when a numeric field cannot be parsed.
	ErrParse = errors.New("parse error")
	// ErrMissingColumn is returned when a required trip column is absent from the header.
	ErrMissingColumn = errors.New("missing column")
	// ErrNotFound is returned by lookups on an analysis.
	ErrNotFound = errors.New("not found")
)

// MalformedRowError describes a row whose field count differs from the header.
type MalformedRowError struct {
	Source string
	Line   int
	Want   int
	Got    int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s line %d: expected %d fields, got %d", e.Source, e.Line, e.Want, e.Got)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }

// ParseError describes a field that should have been numeric.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

// Is lets errors.Is match both ErrParse and the underlying strconv error.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnError names a required column that the header lacks.
type MissingColumnError struct {
	Source string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing column %q", e.Source, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }
