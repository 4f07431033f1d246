package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	ilsp "github.com/jwtly10/leandoc/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// Server implements a minimal LSP server for LeanDoc buffers: full document
// sync, with parse errors published as diagnostics on open, change and
// save.
type Server struct {
	conn *jsonrpc2.Conn

	// uri -> last known buffer content
	docs sync.Map

	docService *ilsp.DocumentService
}

func NewServer() *Server {
	return &Server{
		docService: ilsp.NewDocumentService(),
	}
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Debug("received request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		kind := lsp.TDSKFull
		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Kind: &kind,
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		return nil, nil

	case "exit":
		slog.Info("exiting")
		os.Exit(0)
		return nil, nil

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.docs.Store(params.TextDocument.URI, params.TextDocument.Text)
		s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
		return nil, nil

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		// full sync: the last change carries the whole buffer
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		s.docs.Store(params.TextDocument.URI, text)
		s.publishDiagnostics(ctx, params.TextDocument.URI, text)
		return nil, nil

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		if text, ok := s.docs.Load(params.TextDocument.URI); ok {
			s.publishDiagnostics(ctx, params.TextDocument.URI, text.(string))
		}
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.docs.Delete(params.TextDocument.URI)
		return nil, nil
	}

	slog.Debug("unhandled method", "method", req.Method)
	return nil, nil
}

func (s *Server) publishDiagnostics(ctx context.Context, uri lsp.DocumentURI, text string) {
	diagnostics := s.docService.Diagnostics(text)

	if s.conn == nil {
		return
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}); err != nil {
		slog.Error("failed to publish diagnostics", "uri", uri, "error", err)
	}
}
