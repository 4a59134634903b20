package alias

import (
	"context"
	"regexp"

	"github.com/romsahel/aliasex/framework/ast"
)

// Locator finds the zero-based line of the module header enclosing
// cursorLine. It returns ErrScopeNotFound when no module encloses the
// cursor; any other error is a failure of the underlying strategy.
type Locator func(ctx context.Context, doc Document, cursorLine int) (int, error)

var textualHeaderPattern = regexp.MustCompile(`^\s*defmodule\s+.*\s+do`)

// TextualLocator returns the closest module header strictly before
// cursorLine. It cannot tell whether that module has already been closed.
func TextualLocator(ctx context.Context, doc Document, cursorLine int) (int, error) {
	lines := Lines(doc.Text())
	found := -1
	for i := 0; i < cursorLine && i < len(lines); i++ {
		if textualHeaderPattern.MatchString(lines[i]) {
			found = i
		}
	}
	if found < 0 {
		return -1, ErrScopeNotFound
	}
	return found, nil
}

// StructuralLocator selects, among the spans reported by provider for the
// current buffer text, the innermost span containing the cursor. Provider
// errors are returned as is.
func StructuralLocator(provider ast.SpanProvider) Locator {
	return func(ctx context.Context, doc Document, cursorLine int) (int, error) {
		spans, err := provider.ModuleSpans(ctx, doc.Path(), doc.Text())
		if err != nil {
			return -1, err
		}
		span, ok := InnermostSpan(spans, cursorLine)
		if !ok {
			return -1, ErrScopeNotFound
		}
		return span.StartLine, nil
	}
}

// InnermostSpan returns the containing span with the greatest start line.
// Ties prefer the shorter span.
func InnermostSpan(spans []ast.ModuleSpan, line int) (ast.ModuleSpan, bool) {
	var best ast.ModuleSpan
	found := false
	for _, span := range spans {
		if !span.Contains(line) {
			continue
		}
		if !found ||
			span.StartLine > best.StartLine ||
			(span.StartLine == best.StartLine && span.EndLine < best.EndLine) {
			best = span
			found = true
		}
	}
	return best, found
}
