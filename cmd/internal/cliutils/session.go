package cliutils

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/romsahel/aliasex/cmd/internal/workspacecfg"
	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/framework/ast"
)

// Session bundles the index, its snapshot store and the alias service for
// one workspace.
type Session struct {
	Config  *workspacecfg.Config
	Index   *ast.IndexManager
	Store   ast.IndexStore
	Service *alias.Service
	logger  *log.Logger
	closers []io.Closer
}

// OpenSession wires a Session from cfg. The snapshot store is skipped when
// the config disables it.
func OpenSession(cfg *workspacecfg.Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Session{Config: cfg, logger: logger}
	if path := cfg.IndexCachePath(); path != "" {
		store, err := ast.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		s.Store = store
		s.closers = append(s.closers, store)
	}
	s.Index = ast.NewIndexManager(cfg.IndexConfig(), s.Store, logger)

	locate, closer, err := BuildLocator(cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	s.Service = alias.NewService(s.Index, locate, logger)
	return s, nil
}

// EnsureIndex restores the saved snapshot, or rebuilds when there is none.
func (s *Session) EnsureIndex(ctx context.Context) (ast.CacheMetadata, error) {
	meta, err := s.Index.LoadSnapshot()
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, ast.ErrNoSnapshot) {
		s.logger.Warn("Index snapshot unreadable, rebuilding", "err", err)
	}
	return s.Index.Rebuild(ctx)
}

// Close releases the store and any locator helper process.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
