package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/romsahel/aliasex/framework/alias"
)

var errEditRejected = errors.New("edit rejected by client")

// lspEditor adapts one executeCommand invocation to alias.Editor.
type lspEditor struct {
	server    *LSPServer
	conn      *jsonrpc2.Conn
	uri       protocol.DocumentURI
	selection string
	cursor    alias.Position
}

func (s *LSPServer) newEditor(conn *jsonrpc2.Conn, args AddAliasArgs) *lspEditor {
	return &lspEditor{
		server:    s,
		conn:      conn,
		uri:       args.URI,
		selection: args.Selection,
		cursor: alias.Position{
			Line:      int(args.Position.Line),
			Character: int(args.Position.Character),
		},
	}
}

func (e *lspEditor) ActiveDocument() (alias.Document, bool) {
	doc, ok := e.server.document(e.uri)
	if !ok {
		return nil, false
	}
	return doc, true
}

func (e *lspEditor) Selection() string { return e.selection }

func (e *lspEditor) Cursor() alias.Position { return e.cursor }

func (e *lspEditor) Apply(ctx context.Context, doc alias.Document, edit alias.TextEdit) error {
	pos := protocol.Position{Line: uint32(edit.Position.Line), Character: uint32(edit.Position.Character)}
	docURI := protocol.DocumentURI(doc.URI())
	params := protocol.ApplyWorkspaceEditParams{
		Label: "Add alias",
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				docURI: {{Range: protocol.Range{Start: pos, End: pos}, NewText: edit.NewText}},
			},
		},
	}
	var resp protocol.ApplyWorkspaceEditResponse
	if err := e.conn.Call(ctx, "workspace/applyEdit", params, &resp); err != nil {
		return err
	}
	if !resp.Applied {
		if resp.FailureReason != "" {
			return fmt.Errorf("%w: %s", errEditRejected, resp.FailureReason)
		}
		return errEditRejected
	}
	e.server.recordEdit(docURI, doc.Text(), edit)
	return nil
}

func (e *lspEditor) Pick(ctx context.Context, prompt string, items []string) (string, bool, error) {
	actions := make([]protocol.MessageActionItem, 0, len(items))
	for _, item := range items {
		actions = append(actions, protocol.MessageActionItem{Title: item})
	}
	params := protocol.ShowMessageRequestParams{
		Type:    protocol.MessageTypeInfo,
		Message: prompt,
		Actions: actions,
	}
	var choice *protocol.MessageActionItem
	if err := e.conn.Call(ctx, "window/showMessageRequest", params, &choice); err != nil {
		return "", false, err
	}
	if choice == nil {
		return "", false, nil
	}
	return choice.Title, true, nil
}

func (e *lspEditor) Info(message string) {
	e.show(protocol.MessageTypeInfo, message)
}

func (e *lspEditor) Error(message string) {
	e.show(protocol.MessageTypeError, message)
}

func (e *lspEditor) show(kind protocol.MessageType, message string) {
	params := protocol.ShowMessageParams{Type: kind, Message: message}
	if err := e.conn.Notify(context.Background(), "window/showMessage", params); err != nil {
		e.server.logger.Warn("showMessage failed", "err", err)
	}
}
