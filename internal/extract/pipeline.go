// Package extract renders the source of a validation predicate as a short,
// single-line expression for contract diagnostics.
//
// The pipeline works on token positions only: each narrowing pass recognises a
// token shape (decorator call, assignment, parenthesised lambda, bare lambda)
// and slices the lines down to a sub-expression. Every failure degrades to the
// empty string.
package extract

import (
	"slices"

	"github.com/mvp-joe/predsrc/internal/lexer"
	"github.com/mvp-joe/predsrc/internal/source"
)

// DefaultNamespace is the decorator namespace recognised when none is configured.
const DefaultNamespace = "deal"

// Extractor runs the extraction pipeline. It holds no per-call state and is
// safe for concurrent use.
type Extractor struct {
	namespaces  []string
	placeholder string
	retriever   source.Retriever
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithNamespaces sets the identifiers recognised as the contract framework's
// decorator namespace.
func WithNamespaces(namespaces ...string) Option {
	return func(e *Extractor) {
		e.namespaces = append([]string(nil), namespaces...)
	}
}

// WithPlaceholder sets the implicit-reference marker removed from the output.
// An empty placeholder disables the substitution.
func WithPlaceholder(placeholder string) Option {
	return func(e *Extractor) {
		e.placeholder = placeholder
	}
}

// WithRetriever sets the collaborator used by Describe to fetch source lines.
func WithRetriever(r source.Retriever) Option {
	return func(e *Extractor) {
		e.retriever = r
	}
}

// New creates an Extractor. Without WithRetriever, Describe always returns "".
func New(opts ...Option) *Extractor {
	e := &Extractor{
		namespaces:  []string{DefaultNamespace},
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step is the state of the lines after one pipeline stage.
type Step struct {
	Stage   string
	Matched bool
	Lines   []string
}

// Lines renders already retrieved, dedented source lines.
func (e *Extractor) Lines(lines []string) string {
	return e.run(lines, nil)
}

// Trace renders lines like Lines and also reports every stage.
func (e *Extractor) Trace(lines []string) (string, []Step) {
	var steps []Step
	out := e.run(lines, func(s Step) {
		steps = append(steps, s)
	})
	return out, steps
}

func (e *Extractor) passes() []Pass {
	return []Pass{
		DecoratorArgs{Namespaces: e.namespaces},
		Assignment{},
		ParenLambda{},
		LambdaBody{},
	}
}

func (e *Extractor) run(lines []string, observe func(Step)) string {
	record := func(stage string, matched bool, lines []string) {
		if observe != nil {
			observe(Step{Stage: stage, Matched: matched, Lines: append([]string(nil), lines...)})
		}
	}

	if _, err := lexer.Tokenize(lines); err != nil {
		lines = clearLines(lines)
		record("clear", true, lines)
	}

	stripped := StripComments(lines)
	record("comments", !slices.Equal(stripped, lines), stripped)
	lines = stripped

	for _, p := range e.passes() {
		var matched bool
		lines, matched = apply(p, lines)
		record(p.Name(), matched, lines)
	}

	out := Canonicalize(lines, e.placeholder)
	record("canonical", out != "", []string{out})
	return out
}

// apply runs one pass; lines that do not lex are passed through unchanged.
func apply(p Pass, lines []string) ([]string, bool) {
	tokens, err := lexer.Tokenize(lines)
	if err != nil {
		return lines, false
	}
	// blank lines left over from a previous slice
	for len(tokens) > 0 && tokens[0].IsLineBreak() {
		tokens = tokens[1:]
	}
	span, ok := p.Match(tokens)
	if !ok {
		return lines, false
	}
	return SliceLines(lines, span.First, span.Last), true
}
