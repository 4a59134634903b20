package alias

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/romsahel/aliasex/framework/ast"
)

// LanguageElixir is the language identifier the commands accept.
const LanguageElixir = ast.LanguageElixir

// Indexer is the subset of ast.IndexManager used by Service.
type Indexer interface {
	Lookup(shortName string) []string
	Rebuild(ctx context.Context) (ast.CacheMetadata, error)
}

// Service runs the user-triggered commands against an Editor.
type Service struct {
	index  Indexer
	locate Locator
	logger *log.Logger
}

// NewService wires a Service. A nil locator selects TextualLocator.
func NewService(index Indexer, locate Locator, logger *log.Logger) *Service {
	if locate == nil {
		locate = TextualLocator
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{index: index, locate: locate, logger: logger}
}

// AddAlias resolves the selection (or the word under the cursor) to a
// fully-qualified module name and inserts an alias for it. Failures are
// reported through editor and returned as *Error.
func (s *Service) AddAlias(ctx context.Context, editor Editor) (Outcome, error) {
	outcome, err := s.addAlias(ctx, editor)
	if err != nil {
		s.report(editor, err)
	}
	return outcome, err
}

func (s *Service) addAlias(ctx context.Context, editor Editor) (Outcome, error) {
	doc, ok := editor.ActiveDocument()
	if !ok {
		return OutcomeNone, newError(KindEnvironment, ErrNoActiveEditor, "This command only works in Elixir files")
	}
	if doc.LanguageID() != LanguageElixir {
		return OutcomeNone, newError(KindEnvironment, ErrUnsupportedLanguage, "This command only works in Elixir files")
	}

	selected := editor.Selection()
	if selected == "" {
		cursor := editor.Cursor()
		selected = WordAt(LineAt(doc.Text(), cursor.Line), cursor.Character)
	}
	if selected == "" {
		return OutcomeNone, newError(KindInput, ErrEmptySelection, "Please select a module name first")
	}

	name, err := CleanModuleName(selected)
	if err != nil {
		return OutcomeNone, newError(KindInput, err, "Invalid module name selected")
	}

	candidates := CandidatesFor(s.index.Lookup, name)
	s.logger.Debug("Resolved candidates", "name", name, "candidates", candidates)
	fullName, outcome, err := ResolveCandidates(ctx, name, candidates, editor)
	if err != nil || outcome == OutcomeCancelled {
		return outcome, err
	}
	return s.insertAlias(ctx, editor, doc, fullName)
}

// InsertAlias writes an alias for fullName into doc. It reports false
// without error when the alias already exists.
func (s *Service) InsertAlias(ctx context.Context, editor Editor, doc Document, fullName string) (bool, error) {
	outcome, err := s.insertAlias(ctx, editor, doc, fullName)
	if err != nil {
		s.report(editor, err)
		return false, err
	}
	return outcome == OutcomeInserted, nil
}

func (s *Service) insertAlias(ctx context.Context, editor Editor, doc Document, fullName string) (Outcome, error) {
	text := doc.Text()
	if AliasExists(text, fullName) {
		editor.Info(fmt.Sprintf("Alias for %s already exists", fullName))
		return OutcomeAlreadyPresent, nil
	}

	headerLine, err := s.locate(ctx, doc, editor.Cursor().Line)
	if err != nil {
		if errors.Is(err, ErrScopeNotFound) {
			return OutcomeNone, newError(KindLocation, err, "Could not find defmodule in current file")
		}
		return OutcomeNone, newError(KindLocation, err, fmt.Sprintf("Structural parse failed: %v", err))
	}

	edit := InsertionEdit(text, headerLine, fullName)
	if err := editor.Apply(ctx, doc, edit); err != nil {
		return OutcomeNone, newError(KindEnvironment, err, fmt.Sprintf("Error adding alias: %v", err))
	}
	s.logger.Info("Inserted alias", "module", fullName, "uri", doc.URI(), "line", edit.Position.Line)
	editor.Info(fmt.Sprintf("Added alias for %s", fullName))
	return OutcomeInserted, nil
}

// RefreshIndex rebuilds the module index and reports its size.
func (s *Service) RefreshIndex(ctx context.Context, editor Editor) (ast.CacheMetadata, error) {
	editor.Info("Refreshing module cache...")
	meta, err := s.index.Rebuild(ctx)
	if err != nil {
		s.logger.Error("Error refreshing cache", "err", err)
		wrapped := newError(KindEnvironment, err, fmt.Sprintf("Error refreshing cache: %v", err))
		editor.Error(wrapped.Message)
		return meta, wrapped
	}
	editor.Info(fmt.Sprintf("Cache refreshed! Found %d modules.", meta.ModuleCount))
	return meta, nil
}

func (s *Service) report(editor Editor, err error) {
	var aliasErr *Error
	if errors.As(err, &aliasErr) {
		s.logger.Warn("Add alias failed", "kind", aliasErr.Kind, "err", err)
		editor.Error(aliasErr.Message)
		return
	}
	s.logger.Error("Error adding alias", "err", err)
	editor.Error(fmt.Sprintf("Error adding alias: %v", err))
}
