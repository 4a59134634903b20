package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/romsahel/aliasex/framework"
	"github.com/romsahel/aliasex/framework/ast"
)

// StructuralParseError reports a failed structural parse of Path. Stderr
// holds whatever the tool wrote to its diagnostic channel.
type StructuralParseError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *StructuralParseError) Error() string {
	name := e.Path
	if name == "" {
		name = "unsaved buffer"
	}
	msg := fmt.Sprintf("%s: %v", name, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}

var (
	errToolStderr      = errors.New("tool wrote to stderr")
	errMalformedOutput = errors.New("malformed span output")
	errNoBackingFile   = errors.New("buffer has no backing file")
)

// toolSpan is one entry of the tool's JSON array. Lines are 1-based.
type toolSpan struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// CommandSpanProvider runs an external parse tool as `<Command...> <file>`
// and reads module spans from its standard output. file is the document's
// own path when its disk content matches the buffer, otherwise a temporary
// copy of the buffer.
type CommandSpanProvider struct {
	Runner  framework.CommandRunner
	Command []string
	Workdir string
	Timeout time.Duration
}

// ModuleSpans implements ast.SpanProvider. A non-zero exit, any stderr
// output or unparseable stdout is a *StructuralParseError.
func (p *CommandSpanProvider) ModuleSpans(ctx context.Context, path, text string) ([]ast.ModuleSpan, error) {
	if len(p.Command) == 0 {
		return nil, &StructuralParseError{Path: path, Err: errors.New("structural parse command not configured")}
	}
	target, cleanup, err := sourceFile(path, text)
	if err != nil {
		return nil, &StructuralParseError{Path: path, Err: err}
	}
	defer cleanup()

	args := append(append([]string(nil), p.Command...), target)
	stdout, stderr, err := p.Runner.Run(ctx, framework.CommandRequest{
		Workdir: p.Workdir,
		Args:    args,
		Timeout: p.Timeout,
	})
	if err != nil {
		return nil, &StructuralParseError{Path: path, Stderr: stderr, Err: err}
	}
	if strings.TrimSpace(stderr) != "" {
		return nil, &StructuralParseError{Path: path, Stderr: stderr, Err: errToolStderr}
	}
	spans, err := ParseToolSpans([]byte(stdout))
	if err != nil {
		return nil, &StructuralParseError{Path: path, Err: err}
	}
	return spans, nil
}

// sourceFile returns an absolute path to a file whose content is text, and a
// func removing that file when it was created here.
func sourceFile(path, text string) (string, func(), error) {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil && string(data) == text {
			abs, err := filepath.Abs(path)
			if err != nil {
				return "", nil, err
			}
			return abs, func() {}, nil
		}
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".ex"
	}
	f, err := os.CreateTemp("", "aliasex-buffer-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot buffer: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("snapshot buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("snapshot buffer: %w", err)
	}
	return name, cleanup, nil
}

// ParseToolSpans decodes the tool's JSON array and converts its 1-based
// lines into zero-based inclusive spans.
func ParseToolSpans(data []byte) ([]ast.ModuleSpan, error) {
	var raw []toolSpan
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}
	spans := make([]ast.ModuleSpan, 0, len(raw))
	for _, s := range raw {
		if s.Start < 1 || s.End < s.Start {
			return nil, fmt.Errorf("%w: span %q has lines %d..%d", errMalformedOutput, s.Name, s.Start, s.End)
		}
		spans = append(spans, ast.ModuleSpan{
			Name:      s.Name,
			StartLine: s.Start - 1,
			EndLine:   s.End - 1,
		})
	}
	return spans, nil
}
