package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/romsahel/aliasex/framework/ast"
)

// ProcessLSPConfig defines the language server process used for spans.
type ProcessLSPConfig struct {
	Command    []string
	RootDir    string
	LanguageID string
	Timeout    time.Duration
}

// Dialer opens a stream to a language server. Closing the stream tears down
// whatever backs it.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// LSPSpanProvider asks a language server for document symbols and reports
// module symbols as spans. The server is started lazily and reused.
type LSPSpanProvider struct {
	cfg    ProcessLSPConfig
	dial   Dialer
	logger *log.Logger

	mu      sync.Mutex
	conn    *jsonrpc2.Conn
	version int32
}

// NewLSPSpanProvider returns a provider that launches cfg.Command over stdio.
func NewLSPSpanProvider(cfg ProcessLSPConfig, logger *log.Logger) *LSPSpanProvider {
	return NewLSPSpanProviderWithDialer(cfg, processDialer(cfg), logger)
}

// NewLSPSpanProviderWithDialer returns a provider talking over dial.
func NewLSPSpanProviderWithDialer(cfg ProcessLSPConfig, dial Dialer, logger *log.Logger) *LSPSpanProvider {
	if cfg.LanguageID == "" {
		cfg.LanguageID = ast.LanguageElixir
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LSPSpanProvider{cfg: cfg, dial: dial, logger: logger}
}

// ModuleSpans implements ast.SpanProvider. The server sees text, not the
// file on disk; buffers without a file are refused since the server keys
// documents by file URI.
func (p *LSPSpanProvider) ModuleSpans(ctx context.Context, path, text string) ([]ast.ModuleSpan, error) {
	if path == "" {
		return nil, &StructuralParseError{Err: errNoBackingFile}
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	spans, err := p.moduleSpans(ctx, path, text)
	if err != nil {
		return nil, &StructuralParseError{Path: path, Err: err}
	}
	return spans, nil
}

func (p *LSPSpanProvider) moduleSpans(ctx context.Context, path, text string) ([]ast.ModuleSpan, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	docURI := uri.File(absPath)
	p.version++
	open := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: protocol.LanguageIdentifier(p.cfg.LanguageID),
			Version:    p.version,
			Text:       text,
		},
	}
	if err := conn.Notify(ctx, "textDocument/didOpen", open); err != nil {
		return nil, err
	}
	defer func() {
		closeParams := protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: docURI}}
		if err := conn.Notify(context.Background(), "textDocument/didClose", closeParams); err != nil {
			p.logger.Debug("didClose failed", "uri", docURI, "err", err)
		}
	}()

	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}
	var raw json.RawMessage
	if err := conn.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, err
	}
	return decodeModuleSymbols(raw)
}

func (p *LSPSpanProvider) connect(ctx context.Context) (*jsonrpc2.Conn, error) {
	if p.conn != nil {
		select {
		case <-p.conn.DisconnectNotify():
			p.conn = nil
		default:
			return p.conn, nil
		}
	}
	rwc, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("start language server: %w", err)
	}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		return nil, nil
	})
	conn := jsonrpc2.NewConn(context.Background(), stream, handler)
	if err := p.initialize(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize language server: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *LSPSpanProvider) initialize(ctx context.Context, conn *jsonrpc2.Conn) error {
	root := p.cfg.RootDir
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   uri.File(absRoot),
		ClientInfo: &protocol.ClientInfo{
			Name:    "aliasex",
			Version: "0.1",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
			},
		},
	}
	var result protocol.InitializeResult
	if err := conn.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	return conn.Notify(ctx, "initialized", &protocol.InitializedParams{})
}

// Close shuts the language server down.
func (p *LSPSpanProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.conn.Call(ctx, "shutdown", nil, nil); err == nil {
		_ = p.conn.Notify(ctx, "exit", nil)
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func decodeModuleSymbols(raw json.RawMessage) ([]ast.ModuleSpan, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("document symbol response not understood: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	if _, flat := objects[0]["location"]; !flat {
		var docSymbols []protocol.DocumentSymbol
		if err := json.Unmarshal(raw, &docSymbols); err != nil {
			return nil, err
		}
		var spans []ast.ModuleSpan
		collectModuleSpans(&spans, docSymbols)
		return spans, nil
	}
	var infoSymbols []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &infoSymbols); err != nil {
		return nil, err
	}
	var spans []ast.ModuleSpan
	for _, sym := range infoSymbols {
		if sym.Kind != protocol.SymbolKindModule {
			continue
		}
		spans = append(spans, ast.ModuleSpan{
			Name:      sym.Name,
			StartLine: int(sym.Location.Range.Start.Line),
			EndLine:   int(sym.Location.Range.End.Line),
		})
	}
	return spans, nil
}

func collectModuleSpans(dst *[]ast.ModuleSpan, symbols []protocol.DocumentSymbol) {
	for _, sym := range symbols {
		if sym.Kind == protocol.SymbolKindModule {
			*dst = append(*dst, ast.ModuleSpan{
				Name:      sym.Name,
				StartLine: int(sym.Range.Start.Line),
				EndLine:   int(sym.Range.End.Line),
			})
		}
		if len(sym.Children) > 0 {
			collectModuleSpans(dst, sym.Children)
		}
	}
}

func processDialer(cfg ProcessLSPConfig) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		if len(cfg.Command) == 0 {
			return nil, errors.New("language server command not configured")
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		if cfg.RootDir != "" {
			cmd.Dir = cfg.RootDir
		}
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return &stdioReadWriteCloser{reader: stdout, writer: stdin, cmd: cmd}, nil
	}
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
	cmd    *exec.Cmd
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.writer.Close()
	_ = s.reader.Close()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	return nil
}
