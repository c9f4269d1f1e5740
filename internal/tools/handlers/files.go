package handlers

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"toolbridge/internal/search"
	"toolbridge/internal/tools"
)

const defaultMaxBytes = 64 * 1024

// ReadFileParams 是 read_file 的参数。
type ReadFileParams struct {
	Path     string `json:"path" jsonschema_description:"File path relative to the working directory"`
	MaxBytes int    `json:"max_bytes,omitempty" jsonschema_description:"Read at most this many bytes (default 65536)" jsonschema:"minimum=1"`
}

type ReadFileResult struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// ReadFile reads a file inside the env's working directory.
func ReadFile(ctx context.Context, env *tools.Env, p ReadFileParams) (ReadFileResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadFileResult{}, err
	}
	target, rel, err := resolveInWorkdir(env, p.Path)
	if err != nil {
		return ReadFileResult{}, err
	}
	limit := p.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ReadFileResult{}, tools.Errorf("file not found: %s", rel)
		}
		return ReadFileResult{}, tools.Errorf("open %s: %v", rel, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return ReadFileResult{}, tools.Errorf("read %s: %v", rel, err)
	}
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}
	return ReadFileResult{Path: rel, Content: string(data), Truncated: truncated}, nil
}

// ListFilesParams 是 list_files 的参数。
type ListFilesParams struct {
	Query string `json:"query,omitempty" jsonschema_description:"Fuzzy filter applied to relative paths"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of paths to return (default 200)" jsonschema:"minimum=1"`
}

type ListFilesResult struct {
	Files []string `json:"files"`
}

// ListFiles lists files under the env's working directory.
func ListFiles(ctx context.Context, env *tools.Env, p ListFilesParams) (ListFilesResult, error) {
	root := "."
	if env != nil && env.Workdir != "" {
		root = env.Workdir
	}
	paths, err := search.FindFiles(ctx, root, p.Query, p.Limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ListFilesResult{}, ctxErr
		}
		return ListFilesResult{}, tools.Errorf("list files: %v", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return ListFilesResult{Files: paths}, nil
}

func resolveInWorkdir(env *tools.Env, path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", tools.Errorf("path is empty")
	}
	root := "."
	if env != nil && env.Workdir != "" {
		root = env.Workdir
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", tools.Errorf("resolve workdir: %v", err)
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", tools.Errorf("path %s is outside the working directory", path)
	}
	return target, filepath.ToSlash(rel), nil
}
