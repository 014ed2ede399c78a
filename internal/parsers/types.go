package parsers

import (
	"fmt"

	"github.com/mvp-joe/predsrc/internal/source"
)

// SiteKind describes how a predicate is written at its site.
type SiteKind string

const (
	// KindLambda is a lambda literal passed directly to a contract.
	KindLambda SiteKind = "lambda"

	// KindAssigned is a name bound to a lambda at module level.
	KindAssigned SiteKind = "assigned"

	// KindFunction is a name bound to a module-level def.
	KindFunction SiteKind = "function"
)

// Site is a predicate passed to a contract call or decorator.
type Site struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`      // 1-based line where the predicate source starts
	Column   int      `json:"column"`    // 0-based byte column where the predicate source starts
	CallLine int      `json:"call_line"` // 1-based line of the contract argument
	Contract string   `json:"contract"`
	Kind     SiteKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
}

// SourceLocation implements source.Locator.
func (s Site) SourceLocation() (source.Location, bool) {
	loc := source.Location{File: s.File, Line: s.Line}
	return loc, loc.Valid()
}

func (s Site) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}
