package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// skipDirs are directory names the walker never descends into
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".next":        true,
	".nuxt":        true,
	"target":       true,
	".idea":        true,
	".cache":       true,
}

// sourceExtensions is the allow-list of file types the code scanner reads
var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
	".vue": true, ".svelte": true,
	".py": true, ".rb": true, ".erb": true, ".php": true,
	".java": true, ".kt": true, ".kts": true, ".scala": true,
	".go": true, ".rs": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true,
	".cs": true, ".swift": true, ".sh": true,
}

// collectSourceFiles walks root and returns source file paths relative to it,
// in walk order. Enumeration stops once maxFiles paths are collected;
// truncated reports whether the tree had more. The context is checked between
// entries so a cancelled scan stops promptly.
func collectSourceFiles(ctx context.Context, root string, maxFiles int, maxFileSize int64) ([]string, bool, error) {
	var files []string
	truncated := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("scan root %s: %w", root, err)
			}
			logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if maxFileSize > 0 {
			if info, ierr := d.Info(); ierr != nil || info.Size() > maxFileSize {
				return nil
			}
		}

		if maxFiles > 0 && len(files) >= maxFiles {
			truncated = true
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return files, truncated, nil
}
