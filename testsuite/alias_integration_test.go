package testsuite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/romsahel/aliasex/framework"
	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/framework/ast"
	"github.com/romsahel/aliasex/tools"
)

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func elixirWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, filepath.Join(root, "lib", "app", "accounts", "user.ex"), "defmodule App.Accounts.User do\n  defmodule Token do\n  end\nend\n")
	writeSource(t, filepath.Join(root, "lib", "app", "admin", "user.ex"), "defmodule App.Admin.User do\nend\n")
	writeSource(t, filepath.Join(root, "lib", "app", "repo.ex"), "defmodule App.Repo do\nend\n")
	writeSource(t, filepath.Join(root, "deps", "ecto", "lib", "ecto", "query.ex"), "defmodule Ecto.Query do\nend\n")
	writeSource(t, filepath.Join(root, "lib", "_build", "dev", "app.ex"), "defmodule Build.Artifact do\nend\n")
	return root
}

type recordingEditor struct {
	doc    *alias.TextDocument
	cursor alias.Position
	sel    string
	pick   string
	infos  []string
	errs   []string
}

func (e *recordingEditor) ActiveDocument() (alias.Document, bool) { return e.doc, e.doc != nil }
func (e *recordingEditor) Selection() string                      { return e.sel }
func (e *recordingEditor) Cursor() alias.Position                 { return e.cursor }
func (e *recordingEditor) Info(msg string)                        { e.infos = append(e.infos, msg) }
func (e *recordingEditor) Error(msg string)                       { e.errs = append(e.errs, msg) }

func (e *recordingEditor) Apply(ctx context.Context, doc alias.Document, edit alias.TextEdit) error {
	updated, err := edit.Apply(e.doc.Content)
	if err != nil {
		return err
	}
	e.doc.Content = updated
	return nil
}

func (e *recordingEditor) Pick(ctx context.Context, prompt string, items []string) (string, bool, error) {
	return e.pick, e.pick != "", nil
}

func TestAliasWorkflowWithPersistedIndex(t *testing.T) {
	root := elixirWorkspace(t)
	store, err := ast.NewSQLiteStore(filepath.Join(root, ".aliasex", "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()

	config := ast.IndexConfig{WorkspacePath: root, IgnorePatterns: []string{"_build"}, ParallelWorkers: 4}
	manager := ast.NewIndexManager(config, store, framework.DiscardLogger())
	service := alias.NewService(manager, alias.TextualLocator, nil)

	editor := &recordingEditor{doc: &alias.TextDocument{Language: ast.LanguageElixir}}
	meta, err := service.RefreshIndex(context.Background(), editor)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if meta.ModuleCount != 5 {
		t.Fatalf("expected 5 modules, got %d (%v)", meta.ModuleCount, manager.Current().Entries())
	}
	if got := manager.Lookup("Artifact"); got != nil {
		t.Fatalf("ignored directory was indexed: %v", got)
	}

	reloaded := ast.NewIndexManager(config, store, nil)
	if _, err := reloaded.LoadSnapshot(); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Current().Entries(), manager.Current().Entries()) {
		t.Fatalf("snapshot mismatch: %v vs %v", reloaded.Current().Entries(), manager.Current().Entries())
	}

	editor = &recordingEditor{
		doc: &alias.TextDocument{
			Language: ast.LanguageElixir,
			Content:  "defmodule AppWeb.UserController do\n  def show(id), do: User.get(id)\nend\n",
		},
		cursor: alias.Position{Line: 1, Character: 21},
	}
	reloadedService := alias.NewService(reloaded, nil, nil)
	outcome, err := reloadedService.AddAlias(context.Background(), editor)
	if err != nil || outcome != alias.OutcomeCancelled {
		t.Fatalf("expected cancelled picker, got %v %v", outcome, err)
	}
	editor.pick = "App.Admin.User"
	outcome, err = reloadedService.AddAlias(context.Background(), editor)
	if err != nil || outcome != alias.OutcomeInserted {
		t.Fatalf("expected insertion, got %v %v", outcome, err)
	}
	want := "defmodule AppWeb.UserController do\n  alias App.Admin.User\n  def show(id), do: User.get(id)\nend\n"
	if editor.doc.Content != want {
		t.Fatalf("unexpected document:\n%s", editor.doc.Content)
	}
}

func TestParallelAndSequentialScansAgree(t *testing.T) {
	root := elixirWorkspace(t)
	for i := 0; i < 12; i++ {
		writeSource(t, filepath.Join(root, "lib", "bulk", string(rune('a'+i))+".ex"),
			"defmodule Bulk."+string(rune('A'+i))+".User do\nend\n")
	}
	sequential := ast.NewIndexManager(ast.IndexConfig{WorkspacePath: root}, nil, nil)
	parallel := ast.NewIndexManager(ast.IndexConfig{WorkspacePath: root, ParallelWorkers: 8}, nil, nil)
	if _, err := sequential.Rebuild(context.Background()); err != nil {
		t.Fatalf("sequential rebuild: %v", err)
	}
	if _, err := parallel.Rebuild(context.Background()); err != nil {
		t.Fatalf("parallel rebuild: %v", err)
	}
	if !reflect.DeepEqual(sequential.Lookup("User"), parallel.Lookup("User")) {
		t.Fatalf("candidate order differs:\n%v\n%v", sequential.Lookup("User"), parallel.Lookup("User"))
	}
}

func TestStructuralLocatorThroughExternalCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	root := t.TempDir()
	file := filepath.Join(root, "outer.ex")
	writeSource(t, file, "defmodule Outer do\n  defmodule Inner do\n    def x, do: Repo\n  end\nend\n")

	runner, err := framework.NewLocalCommandRunner(root, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	provider := &tools.CommandSpanProvider{
		Runner:  runner,
		Command: []string{"sh", "-c", `printf '[{"name":"Outer","start":1,"end":5},{"name":"Outer.Inner","start":2,"end":4}]'`},
	}
	index := ast.NewModuleIndexBuilder()
	index.Add("App.Repo")
	service := alias.NewService(staticIndex{index.Build()}, alias.StructuralLocator(provider), nil)

	editor := &recordingEditor{
		doc:    &alias.TextDocument{FilePath: file, Language: ast.LanguageElixir, Content: "defmodule Outer do\n  defmodule Inner do\n    def x, do: Repo\n  end\nend\n"},
		cursor: alias.Position{Line: 1},
		sel:    "Repo",
	}
	if _, err := service.AddAlias(context.Background(), editor); err != nil {
		t.Fatalf("add alias: %v", err)
	}
	want := "defmodule Outer do\n  defmodule Inner do\n  alias App.Repo\n    def x, do: Repo\n  end\nend\n"
	if editor.doc.Content != want {
		t.Fatalf("unexpected document:\n%s", editor.doc.Content)
	}

	failing := &tools.CommandSpanProvider{Runner: runner, Command: []string{"sh", "-c", "echo boom >&2; exit 3"}}
	service = alias.NewService(staticIndex{index.Build()}, alias.StructuralLocator(failing), nil)
	editor.sel = "App.Repo"
	editor.doc.Content = "defmodule Outer do\nend\n"
	_, err = service.AddAlias(context.Background(), editor)
	var parseErr *tools.StructuralParseError
	if !errors.As(err, &parseErr) || alias.KindOf(err) != alias.KindLocation {
		t.Fatalf("expected structural parse failure, got %v", err)
	}
	if editor.doc.Content != "defmodule Outer do\nend\n" {
		t.Fatal("document must be unchanged after a parse failure")
	}
}

func TestStructuralLocatorSeesUnsavedLines(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	root := t.TempDir()
	file := filepath.Join(root, "outer.ex")
	writeSource(t, file, "defmodule Outer do\n  def x, do: Repo\nend\n")

	runner, err := framework.NewLocalCommandRunner(root, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	spanScript := `start=$(grep -n defmodule "$0" | head -1 | cut -d: -f1); end=$(wc -l < "$0"); ` +
		`printf '[{"name":"Outer","start":%d,"end":%d}]' "$start" "$((end))"`
	provider := &tools.CommandSpanProvider{Runner: runner, Command: []string{"sh", "-c", spanScript}}
	index := ast.NewModuleIndexBuilder()
	index.Add("App.Repo")
	service := alias.NewService(staticIndex{index.Build()}, alias.StructuralLocator(provider), nil)

	editor := &recordingEditor{
		doc: &alias.TextDocument{
			FilePath: file,
			Language: ast.LanguageElixir,
			Content:  "# one\n# two\ndefmodule Outer do\n  def x, do: Repo\nend\n",
		},
		cursor: alias.Position{Line: 3},
		sel:    "Repo",
	}
	if _, err := service.AddAlias(context.Background(), editor); err != nil {
		t.Fatalf("add alias: %v", err)
	}
	want := "# one\n# two\ndefmodule Outer do\n  alias App.Repo\n  def x, do: Repo\nend\n"
	if editor.doc.Content != want {
		t.Fatalf("unexpected document:\n%s", editor.doc.Content)
	}
}

type staticIndex struct{ index *ast.ModuleIndex }

func (s staticIndex) Lookup(short string) []string { return s.index.Lookup(short) }

func (s staticIndex) Rebuild(context.Context) (ast.CacheMetadata, error) {
	return ast.CacheMetadata{ModuleCount: s.index.ModuleCount(), ShortNameCount: s.index.Len()}, nil
}
