package ast

import (
	"regexp"
	"strings"
)

// defmodule Foo do
// defmodule Foo.Bar.Baz do
var moduleHeaderPattern = regexp.MustCompile(`defmodule\s+([A-Z][A-Za-z0-9_.]*)\s+do`)

// HeaderScanner extracts module definition headers from source text.
type HeaderScanner struct {
	pattern *regexp.Regexp
}

// NewHeaderScanner returns a scanner for `defmodule <Name> do` headers.
func NewHeaderScanner() *HeaderScanner {
	return &HeaderScanner{pattern: moduleHeaderPattern}
}

// ScanNames returns every fully-qualified module name in file order.
func (hs *HeaderScanner) ScanNames(content string) []string {
	matches := hs.pattern.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// ScanHeaders returns every header with the zero-based line it starts on.
func (hs *HeaderScanner) ScanHeaders(content string) []ModuleHeader {
	locs := hs.pattern.FindAllStringSubmatchIndex(content, -1)
	headers := make([]ModuleHeader, 0, len(locs))
	line, offset := 0, 0
	for _, loc := range locs {
		line += strings.Count(content[offset:loc[0]], "\n")
		offset = loc[0]
		headers = append(headers, ModuleHeader{
			Name: content[loc[2]:loc[3]],
			Line: line,
		})
	}
	return headers
}

// ShortName returns the last dot-separated segment of a module name.
func ShortName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}
