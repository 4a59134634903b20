package ast

import "time"

// ModuleHeader is a single module definition header found in a file.
type ModuleHeader struct {
	Name string `json:"name"`
	// Line is zero-based.
	Line int `json:"line"`
}

// ModuleSpan is the textual extent of one module definition within a file.
// Lines are zero-based and inclusive on both ends.
type ModuleSpan struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Contains reports whether line falls within the span.
func (s ModuleSpan) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// CacheMetadata summarizes the index produced by the last completed rebuild.
type CacheMetadata struct {
	ModuleCount    int       `json:"module_count"`
	ShortNameCount int       `json:"short_name_count"`
	LastBuilt      time.Time `json:"last_built"`
}
