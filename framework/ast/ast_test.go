package ast

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLanguageDetector(t *testing.T) {
	detector := NewLanguageDetector()
	if lang := detector.Detect("lib/app.ex"); lang != LanguageElixir {
		t.Fatalf("expected elixir, got %s", lang)
	}
	if !detector.IsSource("test/app_test.exs") {
		t.Fatal("expected .exs to be a source file")
	}
	if detector.IsSource("README.md") {
		t.Fatal("markdown must not be treated as source")
	}
	custom := NewLanguageDetector("eex")
	if !custom.IsSource("page.html.eex") {
		t.Fatal("expected configured extension without dot to be accepted")
	}
	if custom.IsSource("app.ex") {
		t.Fatal("custom extension list should replace the defaults")
	}
}

func TestHeaderScannerScanNames(t *testing.T) {
	content := `defmodule App.Accounts.User do
  defmodule Nested do
  end
end

defmodule   App.Repo   do
end
# defmodule lowercase do
defmodule App.NoDo
`
	names := NewHeaderScanner().ScanNames(content)
	want := []string{"App.Accounts.User", "Nested", "App.Repo"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestHeaderScannerScanHeadersLines(t *testing.T) {
	content := "defmodule Outer do\n  defmodule Inner do\n  end\nend\n\ndefmodule Other do\nend\n"
	headers := NewHeaderScanner().ScanHeaders(content)
	want := []ModuleHeader{{Name: "Outer", Line: 0}, {Name: "Inner", Line: 1}, {Name: "Other", Line: 5}}
	if !reflect.DeepEqual(headers, want) {
		t.Fatalf("unexpected headers: %#v", headers)
	}
}

func TestShortName(t *testing.T) {
	cases := map[string]string{
		"App.Accounts.User": "User",
		"Foo":               "Foo",
		"A.B":               "B",
	}
	for in, want := range cases {
		if got := ShortName(in); got != want {
			t.Fatalf("ShortName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModuleIndexBuilderKeepsDiscoveryOrder(t *testing.T) {
	b := NewModuleIndexBuilder()
	b.Add("X.Bar")
	b.Add("A.Bar")
	b.Add("X.Bar")
	b.Add("Foo")
	idx := b.Build()

	if got := idx.Lookup("Bar"); !reflect.DeepEqual(got, []string{"X.Bar", "A.Bar"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}
	if idx.Len() != 2 || idx.ModuleCount() != 3 {
		t.Fatalf("unexpected counts: len=%d modules=%d", idx.Len(), idx.ModuleCount())
	}
	if got := idx.Lookup("Missing"); got != nil {
		t.Fatalf("expected nil for missing short name, got %v", got)
	}
	lookup := idx.Lookup("Bar")
	lookup[0] = "mutated"
	if idx.Lookup("Bar")[0] != "X.Bar" {
		t.Fatal("Lookup must return a copy")
	}
	if names := idx.ShortNames(); !reflect.DeepEqual(names, []string{"Bar", "Foo"}) {
		t.Fatalf("unexpected short names: %v", names)
	}
}

func TestModuleSpanContains(t *testing.T) {
	span := ModuleSpan{Name: "Foo", StartLine: 2, EndLine: 4}
	for line, want := range map[int]bool{1: false, 2: true, 3: true, 4: true, 5: false} {
		if span.Contains(line) != want {
			t.Fatalf("Contains(%d) != %v", line, want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func sampleWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "app", "accounts", "user.ex"), "defmodule App.Accounts.User do\nend\n")
	writeFile(t, filepath.Join(root, "lib", "app", "bar.ex"), "defmodule App.Bar do\n  defmodule Helper do\n  end\nend\n")
	writeFile(t, filepath.Join(root, "lib", "app.ex"), "defmodule App do\nend\n")
	writeFile(t, filepath.Join(root, "lib", "notes.md"), "defmodule Ignored.Markdown do\n")
	writeFile(t, filepath.Join(root, "deps", "ext", "lib", "bar.ex"), "defmodule Ext.Bar do\nend\n")
	writeFile(t, filepath.Join(root, "deps", "ext", "_build", "gen.ex"), "defmodule Ext.Generated do\nend\n")
	writeFile(t, filepath.Join(root, "test", "app_test.exs"), "defmodule AppTest do\nend\n")
	return root
}

func TestIndexManagerRebuild(t *testing.T) {
	root := sampleWorkspace(t)
	im := NewIndexManager(IndexConfig{
		WorkspacePath:  root,
		IgnorePatterns: []string{"_build"},
	}, nil, nil)

	meta, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if meta.ModuleCount != 5 {
		t.Fatalf("expected 5 modules, got %d (%v)", meta.ModuleCount, im.Current().Entries())
	}
	if meta.LastBuilt.IsZero() {
		t.Fatal("expected build timestamp")
	}
	if got := im.Lookup("Bar"); !reflect.DeepEqual(got, []string{"App.Bar", "Ext.Bar"}) {
		t.Fatalf("unexpected Bar candidates: %v", got)
	}
	if got := im.Lookup("User"); !reflect.DeepEqual(got, []string{"App.Accounts.User"}) {
		t.Fatalf("unexpected User candidates: %v", got)
	}
	if got := im.Lookup("Generated"); got != nil {
		t.Fatalf("ignored directory was scanned: %v", got)
	}
	if got := im.Lookup("AppTest"); got != nil {
		t.Fatalf("test/ is not a source root: %v", got)
	}
	if got := im.Lookup("Markdown"); got != nil {
		t.Fatalf("non-source file scanned: %v", got)
	}
}

func TestIndexManagerRebuildIsIdempotent(t *testing.T) {
	root := sampleWorkspace(t)
	im := NewIndexManager(IndexConfig{WorkspacePath: root}, nil, nil)
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	first := im.Current().Entries()
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if !reflect.DeepEqual(first, im.Current().Entries()) {
		t.Fatalf("rebuild not idempotent: %v vs %v", first, im.Current().Entries())
	}
}

func TestIndexManagerParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	for i, name := range []string{"a.ex", "b.ex", "c.ex", "d.ex", "e.ex"} {
		mod := []string{"One", "Two", "Three", "Four", "Five"}[i]
		writeFile(t, filepath.Join(root, "lib", name), "defmodule "+mod+".Shared do\nend\n")
	}
	writeFile(t, filepath.Join(root, "lib", "c", "nested.ex"), "defmodule Nested.Shared do\nend\n")

	seq := NewIndexManager(IndexConfig{WorkspacePath: root}, nil, nil)
	par := NewIndexManager(IndexConfig{WorkspacePath: root, ParallelWorkers: 4}, nil, nil)
	if _, err := seq.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := par.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"One.Shared", "Two.Shared", "Nested.Shared", "Three.Shared", "Four.Shared", "Five.Shared"}
	if got := seq.Lookup("Shared"); !reflect.DeepEqual(got, want) {
		t.Fatalf("sequential order: %v", got)
	}
	if got := par.Lookup("Shared"); !reflect.DeepEqual(got, want) {
		t.Fatalf("parallel order: %v", got)
	}
}

func TestIndexManagerMissingRootsYieldEmptyIndex(t *testing.T) {
	im := NewIndexManager(IndexConfig{WorkspacePath: filepath.Join(t.TempDir(), "nope")}, nil, nil)
	meta, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("missing roots must not fail: %v", err)
	}
	if meta.ModuleCount != 0 || im.Current().Len() != 0 {
		t.Fatalf("expected empty index, got %+v", meta)
	}
}

func TestIndexManagerReplacesStaleEntries(t *testing.T) {
	root := sampleWorkspace(t)
	im := NewIndexManager(IndexConfig{WorkspacePath: root}, nil, nil)
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "lib", "app", "accounts", "user.ex")); err != nil {
		t.Fatal(err)
	}
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := im.Lookup("User"); got != nil {
		t.Fatalf("stale entry survived rebuild: %v", got)
	}
}

func TestIndexManagerCancelledKeepsPreviousIndex(t *testing.T) {
	root := sampleWorkspace(t)
	im := NewIndexManager(IndexConfig{WorkspacePath: root}, nil, nil)
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := im.Current()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := im.Rebuild(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
	if im.Current() != before {
		t.Fatal("cancelled rebuild must not swap the index")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()

	if _, _, err := store.LoadIndex(); err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	b := NewModuleIndexBuilder()
	for _, name := range []string{"X.Bar", "A.Bar", "Foo", "App.Foo.Baz"} {
		b.Add(name)
	}
	idx := b.Build()
	built := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := CacheMetadata{ModuleCount: idx.ModuleCount(), ShortNameCount: idx.Len(), LastBuilt: built}
	if err := store.SaveIndex(idx, meta); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, loadedMeta, err := store.LoadIndex()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), idx.Entries()) {
		t.Fatalf("entries differ: %v vs %v", loaded.Entries(), idx.Entries())
	}
	if !loadedMeta.LastBuilt.Equal(built) || loadedMeta.ModuleCount != 4 {
		t.Fatalf("unexpected metadata: %+v", loadedMeta)
	}

	small := NewModuleIndexBuilder()
	small.Add("Only")
	if err := store.SaveIndex(small.Build(), CacheMetadata{ModuleCount: 1, ShortNameCount: 1, LastBuilt: built}); err != nil {
		t.Fatal(err)
	}
	loaded, _, err = store.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 || loaded.Lookup("Bar") != nil {
		t.Fatalf("save must replace the snapshot wholesale: %v", loaded.Entries())
	}
}

func TestIndexManagerPersistsAndLoadsSnapshot(t *testing.T) {
	root := sampleWorkspace(t)
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	im := NewIndexManager(IndexConfig{WorkspacePath: root}, store, nil)
	if _, err := im.LoadSnapshot(); err != ErrNoSnapshot {
		t.Fatalf("expected ErrNoSnapshot before first build, got %v", err)
	}
	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	fresh := NewIndexManager(IndexConfig{WorkspacePath: root}, store, nil)
	meta, err := fresh.LoadSnapshot()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if meta.ModuleCount != im.Info().ModuleCount {
		t.Fatalf("metadata mismatch: %+v vs %+v", meta, im.Info())
	}
	if !reflect.DeepEqual(fresh.Current().Entries(), im.Current().Entries()) {
		t.Fatal("loaded snapshot differs from built index")
	}
}
