package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/framework/ast"
)

const (
	// CommandAddAlias inserts an alias for the module under the cursor.
	CommandAddAlias = "aliasex.addAlias"
	// CommandRefreshCache rebuilds the module index.
	CommandRefreshCache = "aliasex.refreshCache"

	serverName    = "aliasex"
	serverVersion = "0.1.0"
)

// Workspace is the per-root state built once the editor names its root.
type Workspace struct {
	Index   *ast.IndexManager
	Service *alias.Service
	Close   func() error
}

// WorkspaceLoader builds the Workspace for a root directory.
type WorkspaceLoader func(root string) (*Workspace, error)

// AddAliasArgs is the argument object of CommandAddAlias.
type AddAliasArgs struct {
	URI       protocol.DocumentURI `json:"uri"`
	Position  protocol.Position    `json:"position"`
	Selection string               `json:"selection,omitempty"`
}

type executeCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// LSPServer exposes the alias commands to editors speaking the Language
// Server Protocol. Documents are synced in full.
type LSPServer struct {
	load     WorkspaceLoader
	logger   *log.Logger
	detector *ast.LanguageDetector
	rpc      jsonrpc2.Handler

	mu            sync.RWMutex
	workspace     *Workspace
	openDocuments map[protocol.DocumentURI]*alias.TextDocument
	indexed       chan struct{}
	indexOnce     sync.Once
	shutdown      bool
}

// NewLSPServer builds a server instance.
func NewLSPServer(load WorkspaceLoader, logger *log.Logger) *LSPServer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &LSPServer{
		load:          load,
		logger:        logger,
		detector:      ast.NewLanguageDetector(),
		openDocuments: make(map[protocol.DocumentURI]*alias.TextDocument),
		indexed:       make(chan struct{}),
	}
	s.rpc = jsonrpc2.HandlerWithError(s.handle)
	return s
}

// Serve runs the protocol over rwc until the client disconnects or ctx ends.
func (s *LSPServer) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, s)
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// Handle implements jsonrpc2.Handler. Commands run off the read loop since
// they wait on replies from the client.
func (s *LSPServer) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method == "workspace/executeCommand" {
		go s.rpc.Handle(ctx, conn, req)
		return
	}
	s.rpc.Handle(ctx, conn, req)
}

func (s *LSPServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method != "exit" && s.isShutdown() {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}
	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.Initialize(params)
	case "initialized":
		s.startInitialIndex(ctx)
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "exit":
		s.closeWorkspace()
		return nil, conn.Close()
	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.TextDocumentDidOpen(params)
		return nil, nil
	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.TextDocumentDidChange(params)
	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.TextDocumentDidClose(params)
		return nil, nil
	case "workspace/executeCommand":
		var params executeCommandParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.executeCommand(ctx, conn, params)
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

// Initialize loads the workspace named by the client.
func (s *LSPServer) Initialize(params protocol.InitializeParams) (*protocol.InitializeResult, error) {
	root := workspaceRoot(params)
	if root == "" {
		s.logger.Warn("No workspace folder found")
	} else if s.load != nil {
		ws, err := s.load(root)
		if err != nil {
			return nil, fmt.Errorf("load workspace %s: %w", root, err)
		}
		s.mu.Lock()
		s.workspace = ws
		s.mu.Unlock()
		s.logger.Info("Workspace loaded", "root", root)
	}
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncKindFull,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{CommandAddAlias, CommandRefreshCache},
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: serverVersion},
	}, nil
}

// startInitialIndex builds the index once, in the background.
func (s *LSPServer) startInitialIndex(ctx context.Context) {
	s.indexOnce.Do(func() {
		ws := s.currentWorkspace()
		if ws == nil || ws.Index == nil {
			close(s.indexed)
			return
		}
		go func() {
			defer close(s.indexed)
			if _, err := ws.Index.Rebuild(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("Initial cache build failed", "err", err)
			}
		}()
	})
}

// TextDocumentDidOpen stores document state.
func (s *LSPServer) TextDocumentDidOpen(params protocol.DidOpenTextDocumentParams) {
	item := params.TextDocument
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openDocuments[item.URI] = &alias.TextDocument{
		DocURI:   string(item.URI),
		FilePath: filePath(item.URI),
		Language: string(item.LanguageID),
		Content:  item.Text,
	}
}

// TextDocumentDidChange replaces the document text with the last full change.
func (s *LSPServer) TextDocumentDidChange(params protocol.DidChangeTextDocumentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.openDocuments[params.TextDocument.URI]
	if !ok {
		return fmt.Errorf("document %s not tracked", params.TextDocument.URI)
	}
	if n := len(params.ContentChanges); n > 0 {
		doc.Content = params.ContentChanges[n-1].Text
	}
	return nil
}

// TextDocumentDidClose forgets the document.
func (s *LSPServer) TextDocumentDidClose(params protocol.DidCloseTextDocumentParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.openDocuments, params.TextDocument.URI)
}

// executeCommand runs one of the alias commands. Failures are shown to the
// user through window/showMessage rather than returned to the client.
func (s *LSPServer) executeCommand(ctx context.Context, conn *jsonrpc2.Conn, params executeCommandParams) error {
	ws := s.currentWorkspace()
	if ws == nil || ws.Service == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "no workspace loaded"}
	}
	switch params.Command {
	case CommandAddAlias:
		var args AddAliasArgs
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
				return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		// Clients that never send initialized still get their index.
		s.startInitialIndex(ctx)
		select {
		case <-s.indexed:
		case <-ctx.Done():
			return ctx.Err()
		}
		editor := s.newEditor(conn, args)
		outcome, err := ws.Service.AddAlias(ctx, editor)
		s.logger.Debug("addAlias finished", "outcome", outcome, "err", err)
		return nil
	case CommandRefreshCache:
		editor := s.newEditor(conn, AddAliasArgs{})
		if _, err := ws.Service.RefreshIndex(ctx, editor); err != nil {
			s.logger.Debug("refreshCache failed", "err", err)
		}
		return nil
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "unknown command: " + params.Command}
	}
}

func (s *LSPServer) currentWorkspace() *Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace
}

func (s *LSPServer) isShutdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdown
}

func (s *LSPServer) closeWorkspace() {
	ws := s.currentWorkspace()
	if ws == nil || ws.Close == nil {
		return
	}
	if err := ws.Close(); err != nil {
		s.logger.Warn("Closing workspace failed", "err", err)
	}
}

// document returns a snapshot of the open document, falling back to the file
// on disk for file documents the client never opened.
func (s *LSPServer) document(docURI protocol.DocumentURI) (*alias.TextDocument, bool) {
	if docURI == "" {
		return nil, false
	}
	s.mu.RLock()
	doc, ok := s.openDocuments[docURI]
	if ok {
		snapshot := *doc
		s.mu.RUnlock()
		return &snapshot, true
	}
	s.mu.RUnlock()

	path := filePath(docURI)
	if path == "" {
		s.logger.Debug("Document not open and not a file", "uri", docURI)
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("Document not available", "uri", docURI, "err", err)
		return nil, false
	}
	return &alias.TextDocument{
		DocURI:   string(docURI),
		FilePath: path,
		Language: s.detector.Detect(path),
		Content:  string(data),
	}, true
}

// recordEdit mirrors an applied edit into the open document when the text
// has not changed since the snapshot the edit was computed from.
func (s *LSPServer) recordEdit(docURI protocol.DocumentURI, before string, edit alias.TextEdit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.openDocuments[docURI]
	if !ok || doc.Content != before {
		return
	}
	if updated, err := edit.Apply(before); err == nil {
		doc.Content = updated
	}
}

func workspaceRoot(params protocol.InitializeParams) string {
	if root := filePath(params.RootURI); root != "" {
		return root
	}
	if params.RootPath != "" {
		return params.RootPath
	}
	for _, folder := range params.WorkspaceFolders {
		if root := filePath(uri.URI(folder.URI)); root != "" {
			return root
		}
	}
	return ""
}

// filePath returns the path behind a file URI and "" for any other scheme,
// such as the untitled: buffers editors create for unsaved files.
func filePath(docURI uri.URI) string {
	parsed, err := url.ParseRequestURI(string(docURI))
	if err != nil || parsed.Scheme != uri.FileScheme {
		return ""
	}
	return docURI.Filename()
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
