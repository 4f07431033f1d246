package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leandoc.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "template: report\ntemplate_file: custom.typ\nno_raw: true\nno_backup: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "report", cfg.Template)
	assert.Equal(t, "custom.typ", cfg.TemplateFile)
	assert.True(t, cfg.NoRaw)
	assert.True(t, cfg.NoBackup)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.Template)
	assert.False(t, cfg.NoRaw)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("LEANDOC_TEST_TEMPLATE", "report")
	path := writeConfig(t, "template: ${LEANDOC_TEST_TEMPLATE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "report", cfg.Template)
}

func TestLoadRejectsUnknownTemplate(t *testing.T) {
	path := writeConfig(t, "template: fancy\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestGenOptions(t *testing.T) {
	cfg := Config{Template: "report", TemplateFile: "x.typ", NoRaw: true}
	opts := cfg.GenOptions()

	assert.Equal(t, "report", opts.TemplateName)
	assert.Equal(t, "x.typ", opts.TemplateFile)
	assert.False(t, opts.AllowRawPassthrough)
}
