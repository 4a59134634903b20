package ast

import "errors"

// ErrNoSnapshot is returned by LoadIndex when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no index snapshot saved")

// IndexStore persists completed module index snapshots between processes.
// SaveIndex replaces the previous snapshot wholesale.
type IndexStore interface {
	SaveIndex(index *ModuleIndex, meta CacheMetadata) error
	LoadIndex() (*ModuleIndex, CacheMetadata, error)
	Close() error
}
