package lsp

import (
	"testing"

	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticsCleanDocument(t *testing.T) {
	s := NewDocumentService()

	diags := s.Diagnostics("= Title\n\nAll good here.\n")
	require.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestDiagnosticsParseError(t *testing.T) {
	s := NewDocumentService()

	diags := s.Diagnostics("----\nunterminated listing\n")
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, lsp.Error, d.Severity)
	assert.Equal(t, "leandoc", d.Source)
	assert.Contains(t, d.Message, "closing delimiter")
	assert.GreaterOrEqual(t, d.Range.Start.Line, 0)
}

func TestDiagnosticsTableError(t *testing.T) {
	s := NewDocumentService()

	diags := s.Diagnostics("|===\n|a |b\n|c\n|===\n")
	require.Len(t, diags, 1)
	// parse errors are 1-based; diagnostics are 0-based
	assert.Equal(t, 1, diags[0].Range.Start.Line)
}
