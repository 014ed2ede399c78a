package extract

import "github.com/mvp-joe/predsrc/internal/source"

// Describe renders the predicate v. A wrapper (source.Wrapper) is peeled first;
// v must then be a source.Locator with a known location. Any retrieval failure
// yields "", which callers treat as "fall back to a generic description".
func (e *Extractor) Describe(v any) string {
	if e.retriever == nil {
		return ""
	}

	locator, ok := source.Unwrap(v).(source.Locator)
	if !ok {
		return ""
	}
	loc, ok := locator.SourceLocation()
	if !ok {
		return ""
	}

	lines, err := e.retriever.Lines(loc)
	if err != nil || len(lines) == 0 {
		return ""
	}
	return e.Lines(lines)
}
