// Package lsp maps LeanDoc parse results onto LSP diagnostics.
package lsp

import (
	"errors"

	"github.com/jwtly10/leandoc"
	"github.com/sourcegraph/go-lsp"
)

// DocumentService parses editor buffers and produces diagnostics for them.
type DocumentService struct {
	parser *leandoc.Parser
}

func NewDocumentService() *DocumentService {
	return &DocumentService{
		parser: leandoc.NewParser(),
	}
}

// Diagnostics parses text and returns the resulting diagnostics. Parsing is
// aborted at the first fault, so the slice carries at most one entry; it is
// never nil so that publishing it clears stale diagnostics.
func (s *DocumentService) Diagnostics(text string) []lsp.Diagnostic {
	diagnostics := []lsp.Diagnostic{}

	_, err := s.parser.Parse(text)
	if err == nil {
		return diagnostics
	}

	var pe *leandoc.ParseError
	if !errors.As(err, &pe) {
		return diagnostics
	}

	line := pe.Line - 1
	if line < 0 {
		line = 0
	}
	col := pe.Column - 1
	if col < 0 {
		col = 0
	}

	return append(diagnostics, lsp.Diagnostic{
		Range: lsp.Range{
			Start: lsp.Position{Line: line, Character: col},
			End:   lsp.Position{Line: line, Character: col + 1},
		},
		Severity: lsp.Error,
		Source:   "leandoc",
		Message:  pe.Message,
	})
}
