package ast

import (
	"path/filepath"
	"strings"
)

// LanguageElixir is the language identifier editors use for Elixir buffers.
const LanguageElixir = "elixir"

// DefaultExtensions lists the source extensions scanned when none are configured.
var DefaultExtensions = []string{".ex", ".exs"}

// LanguageDetector maps filenames/extensions to languages.
type LanguageDetector struct {
	extensionMap map[string]string
}

// NewLanguageDetector seeds the detector with the given source extensions.
// An empty list falls back to DefaultExtensions.
func NewLanguageDetector(extensions ...string) *LanguageDetector {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	ld := &LanguageDetector{extensionMap: make(map[string]string, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		ld.extensionMap[ext] = LanguageElixir
	}
	return ld
}

// Detect returns the best-effort language identifier.
func (ld *LanguageDetector) Detect(path string) string {
	if path == "" {
		return "unknown"
	}
	if lang, ok := ld.extensionMap[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "unknown"
}

// IsSource reports whether path carries one of the configured source extensions.
func (ld *LanguageDetector) IsSource(path string) bool {
	return ld.Detect(path) == LanguageElixir
}
