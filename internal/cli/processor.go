package cli

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/jwtly10/leandoc/internal/transformer"
)

const sourceExt = ".adoc"

type ConvertResult struct {
	Path    string
	OutPath string
}

// Processor converts LeanDoc sources to Typst. The pipeline is synchronous
// end to end, so directory conversion simply walks the discovered sources
// in order and stops at the first fault, matching the error model of a
// single conversion.
type Processor struct {
	transformer *transformer.Transformer
}

func NewProcessor(opts transformer.TransformOptions) *Processor {
	return &Processor{
		transformer: transformer.NewTransformer(opts),
	}
}

// ProcessPath converts one source file, or every source file found below a
// directory root.
func (p *Processor) ProcessPath(path string) ([]ConvertResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path: %w", err)
	}

	sources := []string{path}
	if info.IsDir() {
		if sources, err = discoverSources(path); err != nil {
			return nil, err
		}
		slog.Debug("found files to process", "root", path, "count", len(sources))
	}

	results := make([]ConvertResult, 0, len(sources))
	for _, src := range sources {
		start := time.Now()
		outPath, err := p.convert(src)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", src, err)
		}
		slog.Debug("file converted", "source", src, "output", outPath, "duration", time.Since(start))
		results = append(results, ConvertResult{Path: src, OutPath: outPath})
	}
	return results, nil
}

func (p *Processor) convert(path string) (string, error) {
	if filepath.Ext(path) != sourceExt {
		return "", fmt.Errorf("invalid file extension, expected %s", sourceExt)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}
	defer f.Close()

	return p.transformer.Transform(transformer.Source{
		Content:   f,
		AbsSource: absPath,
	})
}

// discoverSources walks root and returns every source file in walk order,
// honoring .gitignore patterns found anywhere in the tree.
func discoverSources(root string) ([]string, error) {
	matcher := ignoreMatcher(root)

	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(rel, string(os.PathSeparator))

		if d.IsDir() {
			if d.Name() == ".git" || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(parts, false) {
			return nil
		}
		if filepath.Ext(path) == sourceExt {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no %s files found", sourceExt)
	}
	return sources, nil
}

// ignoreMatcher collects the .gitignore patterns below root, including
// nested ignore files. An unreadable tree degrades to matching nothing.
func ignoreMatcher(root string) gitignore.Matcher {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		slog.Debug("reading gitignore patterns failed", "root", root, "error", err)
		patterns = nil
	}
	return gitignore.NewMatcher(patterns)
}
