package ast

import "context"

// SpanProvider supplies module spans from a structural source such as an
// external parse tool or a language server. text is the live buffer content
// the spans must describe; path names its backing file and is empty for
// unsaved buffers. Implementations report failures as errors; callers must
// not fall back to textual heuristics on error.
type SpanProvider interface {
	ModuleSpans(ctx context.Context, path, text string) ([]ModuleSpan, error)
}

// SpanProviderFunc adapts a function to SpanProvider.
type SpanProviderFunc func(ctx context.Context, path, text string) ([]ModuleSpan, error)

// ModuleSpans implements SpanProvider.
func (f SpanProviderFunc) ModuleSpans(ctx context.Context, path, text string) ([]ModuleSpan, error) {
	return f(ctx, path, text)
}
