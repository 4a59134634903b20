package framework

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger builds the structured logger shared by the index, the alias
// service and the editor hosts. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string, prefix string) *log.Logger {
	if w == nil {
		w = io.Discard
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           lvl,
		ReportTimestamp: true,
	})
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}
