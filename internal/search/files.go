package search

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/sahilm/fuzzy"
)

// DefaultLimit caps results when the caller passes limit <= 0.
const DefaultLimit = 200

// scanCap bounds how many paths are collected before fuzzy ranking.
const scanCap = 5000

var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".idea":        true,
	"target":       true,
	"vendor":       true,
	"logs":         true,
}

// FindFiles returns up to limit relative file paths under root, skipping common
// ignores. With a non-empty query, paths are fuzzy-matched and returned best
// match first; otherwise they come in walk order.
func FindFiles(ctx context.Context, root, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if root == "" {
		root = "."
	}
	collect := limit
	if query != "" {
		collect = scanCap
	}
	paths := make([]string, 0, min(collect, DefaultLimit))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		if len(paths) >= collect {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if query == "" {
		return paths, nil
	}

	matches := fuzzy.Find(query, paths)
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
