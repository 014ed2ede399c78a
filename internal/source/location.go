// Package source locates and retrieves the source lines of predicates.
package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidLocation indicates a malformed FILE:LINE reference.
var ErrInvalidLocation = errors.New("invalid source location")

// Location points at the first line of a predicate's source.
type Location struct {
	File string
	Line int // 1-based
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Valid reports whether l names a file and a positive line.
func (l Location) Valid() bool {
	return l.File != "" && l.Line > 0
}

// ParseLocation parses "path/to/file.py:12".
func ParseLocation(s string) (Location, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Location{}, fmt.Errorf("%w: %q (want FILE:LINE)", ErrInvalidLocation, s)
	}
	line, err := strconv.Atoi(s[idx+1:])
	if err != nil || line < 1 {
		return Location{}, fmt.Errorf("%w: %q has no positive line number", ErrInvalidLocation, s)
	}
	return Location{File: s[:idx], Line: line}, nil
}

// Locator is implemented by predicates whose source can be retrieved.
// The boolean is false when the predicate has no retrievable source.
type Locator interface {
	SourceLocation() (Location, bool)
}

// Wrapper is implemented by adapters that carry framework metadata around an
// inner predicate.
type Wrapper interface {
	Unwrap() any
}

// Unwrap peels one wrapper layer off v.
func Unwrap(v any) any {
	if w, ok := v.(Wrapper); ok {
		return w.Unwrap()
	}
	return v
}

// Adapter attaches a custom failure message to a validator.
type Adapter struct {
	Validator any
	Message   string
}

func (a Adapter) Unwrap() any { return a.Validator }

// Func is a predicate known only by its name and location.
type Func struct {
	Name string
	Loc  Location
}

func (f Func) SourceLocation() (Location, bool) {
	return f.Loc, f.Loc.Valid()
}
