package leandoc

import (
	"path/filepath"
	"strings"
)

// ResolveOutputPath determines the Typst output path for a LeanDoc source
// path by swapping the extension for ".typ".
func ResolveOutputPath(srcPath string) string {
	return strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".typ"
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
