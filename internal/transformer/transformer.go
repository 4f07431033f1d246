package transformer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jwtly10/leandoc"
)

type TransformOptions struct {
	// Generator options for the Typst output
	Gen leandoc.Options
	// If true, no backup is created when the output file already exists
	NoBackup bool
}

func (t *TransformOptions) Pretty() string {
	return fmt.Sprintf("template=%s raw=%s backup=%s",
		t.Gen.TemplateName,
		boolToText(t.Gen.AllowRawPassthrough),
		boolToText(!t.NoBackup))
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Source is one LeanDoc input document together with its absolute origin
// path, which anchors output path resolution.
type Source struct {
	Content   io.Reader
	AbsSource string
}

// Transformer orchestrates parse -> generate -> write for single documents.
type Transformer struct {
	parser *leandoc.Parser
	backup *leandoc.BackupManager

	opts TransformOptions
}

// NewTransformer creates a new Transformer instance with the specified
// options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	return &Transformer{
		parser: leandoc.NewParser(),
		backup: leandoc.NewBackupManager(),
		opts:   opts,
	}
}

// Transform converts input and writes the Typst source next to the input
// file (src.adoc -> src.typ). Returns the absolute output path.
func (t *Transformer) Transform(input Source) (string, error) {
	return t.transform(input, "")
}

// TransformToPath converts input and writes the Typst source to outputPath.
func (t *Transformer) TransformToPath(input Source, outputPath string) (string, error) {
	if outputPath == "" {
		return "", fmt.Errorf("output path is required")
	}
	return t.transform(input, outputPath)
}

func (t *Transformer) transform(input Source, forcedPath string) (string, error) {
	slog.Debug("transforming document", "path", input.AbsSource)
	if input.AbsSource == "" {
		return "", fmt.Errorf("abs source is required for transformation")
	}

	content, err := io.ReadAll(input.Content)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}

	doc, err := t.parser.Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	absOutPath := forcedPath
	if absOutPath == "" {
		absOutPath = leandoc.ResolveOutputPath(input.AbsSource)
	}

	if !t.opts.NoBackup {
		bkPath, err := t.backup.CreateBackupOf(absOutPath)
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
		if bkPath != "" {
			slog.Info("output file already existed. Created backup", "backup", bkPath, "output", absOutPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(absOutPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(absOutPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := writeHeader(out, input.AbsSource); err != nil {
		return "", fmt.Errorf("write header error: %w", err)
	}

	gen := leandoc.NewGenerator(t.opts.Gen)
	if err := gen.Generate(doc, out); err != nil {
		return "", fmt.Errorf("generate error: %w", err)
	}

	return absOutPath, nil
}

func writeHeader(w io.Writer, absSource string) error {
	_, err := fmt.Fprintf(w, "// Generated by leandoc %s from %s at %s\n\n",
		leandoc.VERSION, filepath.Base(absSource), time.Now().Format(time.RFC3339))
	return err
}
