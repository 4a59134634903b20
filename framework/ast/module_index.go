package ast

import "sort"

// ModuleIndex maps short module names to the fully-qualified names sharing
// them. Candidate order is the order of first discovery. A ModuleIndex is
// never mutated after Build; rebuilds produce a new value.
type ModuleIndex struct {
	modules map[string][]string
	total   int
}

// NewModuleIndex returns an empty index.
func NewModuleIndex() *ModuleIndex {
	return &ModuleIndex{modules: make(map[string][]string)}
}

// Lookup returns the candidates for shortName in discovery order.
func (mi *ModuleIndex) Lookup(shortName string) []string {
	if mi == nil {
		return nil
	}
	candidates := mi.modules[shortName]
	if len(candidates) == 0 {
		return nil
	}
	out := make([]string, len(candidates))
	copy(out, candidates)
	return out
}

// Len returns the number of distinct short names.
func (mi *ModuleIndex) Len() int {
	if mi == nil {
		return 0
	}
	return len(mi.modules)
}

// ModuleCount returns the number of distinct fully-qualified names.
func (mi *ModuleIndex) ModuleCount() int {
	if mi == nil {
		return 0
	}
	return mi.total
}

// ShortNames lists the indexed short names sorted alphabetically.
func (mi *ModuleIndex) ShortNames() []string {
	if mi == nil {
		return nil
	}
	names := make([]string, 0, len(mi.modules))
	for name := range mi.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns a deep copy of the mapping.
func (mi *ModuleIndex) Entries() map[string][]string {
	out := make(map[string][]string, mi.Len())
	if mi == nil {
		return out
	}
	for short, candidates := range mi.modules {
		out[short] = append([]string(nil), candidates...)
	}
	return out
}

// ModuleIndexBuilder accumulates names for a new ModuleIndex.
type ModuleIndexBuilder struct {
	modules map[string][]string
	seen    map[string]struct{}
}

// NewModuleIndexBuilder returns an empty builder.
func NewModuleIndexBuilder() *ModuleIndexBuilder {
	return &ModuleIndexBuilder{
		modules: make(map[string][]string),
		seen:    make(map[string]struct{}),
	}
}

// Add records fullName under its short name unless already present.
func (b *ModuleIndexBuilder) Add(fullName string) {
	if fullName == "" {
		return
	}
	if _, ok := b.seen[fullName]; ok {
		return
	}
	b.seen[fullName] = struct{}{}
	short := ShortName(fullName)
	b.modules[short] = append(b.modules[short], fullName)
}

// Build freezes the accumulated names. The builder must not be reused.
func (b *ModuleIndexBuilder) Build() *ModuleIndex {
	return &ModuleIndex{modules: b.modules, total: len(b.seen)}
}
