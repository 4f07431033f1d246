package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwtly10/leandoc"
	"github.com/jwtly10/leandoc/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor() *Processor {
	return NewProcessor(transformer.TransformOptions{Gen: leandoc.DefaultOptions()})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestProcessSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.adoc")
	writeFile(t, src, "= Title\n\nbody\n")

	results, err := newTestProcessor().ProcessPath(src)
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = os.Stat(filepath.Join(dir, "doc.typ"))
	require.NoError(t, err)
}

func TestProcessSingleFileWrongExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.md")
	writeFile(t, src, "= Title\n")

	_, err := newTestProcessor().ProcessPath(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file extension")
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.adoc"), "first\n")
	writeFile(t, filepath.Join(dir, "sub", "two.adoc"), "second\n")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "not a doc\n")

	results, err := newTestProcessor().ProcessPath(dir)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = os.Stat(filepath.Join(dir, "one.typ"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sub", "two.typ"))
	require.NoError(t, err)
}

func TestProcessDirectoryNoSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.txt"), "nothing\n")

	_, err := newTestProcessor().ProcessPath(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .adoc files found")
}

func TestProcessDirectoryHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n")
	writeFile(t, filepath.Join(dir, "kept.adoc"), "kept\n")
	writeFile(t, filepath.Join(dir, "build", "skipped.adoc"), "skipped\n")

	results, err := newTestProcessor().ProcessPath(dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, strings.HasSuffix(results[0].Path, "kept.adoc"))

	_, err = os.Stat(filepath.Join(dir, "build", "skipped.typ"))
	assert.True(t, os.IsNotExist(err))
}

// Conversion is sequential and aborts at the first fault: sources after a
// broken document are left untouched.
func TestProcessDirectoryStopsAtFirstFault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a-broken.adoc"), "----\nunterminated\n")
	writeFile(t, filepath.Join(dir, "z-good.adoc"), "fine\n")

	_, err := newTestProcessor().ProcessPath(dir)
	require.Error(t, err)

	var pe *leandoc.ParseError
	assert.True(t, errors.As(err, &pe))

	_, err = os.Stat(filepath.Join(dir, "z-good.typ"))
	assert.True(t, os.IsNotExist(err))
}
