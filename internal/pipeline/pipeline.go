// Package pipeline moves sets of files between the build directories.
// Sources select files by glob, stages transform the in-memory set and
// Dest writes the result preserving each file's relative path.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
)

// File is one file in flight. Path is slash separated and relative to the
// base directory it was read from.
type File struct {
	Path string
	Data []byte
	Mode fs.FileMode
}

// Ext returns the lower-case extension of the file
func (f File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// WithExt returns a copy of the file with its extension replaced
func (f File) WithExt(ext string) File {
	f.Path = strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext
	return f
}

// Stage transforms a file set. Stages must not touch the filesystem
// outside of what they are configured to read.
type Stage func(ctx context.Context, files []File) ([]File, error)

// Source reads every file under base that matches one of the patterns.
// Patterns are relative to root; the returned paths are relative to base.
// A pattern matching nothing yields no files, a missing root is an IO error.
func Source(root, base string, patterns ...string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, builderrors.NewPathError(root, "Reading sources", err)
	}
	if !info.IsDir() {
		return nil, builderrors.NewPathError(root, "Reading sources", fmt.Errorf("not a directory"))
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var matches []string
	for _, pattern := range patterns {
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, builderrors.NewInvalidOptionError("glob", pattern, err.Error())
		}
		for _, match := range found {
			if !seen[match] {
				seen[match] = true
				matches = append(matches, match)
			}
		}
	}
	sort.Strings(matches)

	files := make([]File, 0, len(matches))
	for _, match := range matches {
		rel := match
		if base != "" && base != "." {
			trimmed := strings.TrimPrefix(match, strings.TrimSuffix(base, "/")+"/")
			if trimmed == match {
				return nil, fmt.Errorf("file %s is outside of base %s", match, base)
			}
			rel = trimmed
		}

		full := filepath.Join(root, filepath.FromSlash(match))
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, builderrors.NewPathError(full, "Reading sources", err)
		}
		stat, err := os.Stat(full)
		if err != nil {
			return nil, builderrors.NewPathError(full, "Reading sources", err)
		}
		files = append(files, File{Path: rel, Data: data, Mode: stat.Mode().Perm()})
	}

	logger.Op.WithFields(map[string]interface{}{
		"root":     root,
		"patterns": patterns,
		"files":    len(files),
	}).Debug("Selected source files")
	return files, nil
}

// Dest writes files below dir, creating parent directories as needed
func Dest(dir string, files []File) error {
	for _, file := range files {
		target := filepath.Join(dir, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return builderrors.NewWriteError(target, err)
		}
		mode := file.Mode
		if mode == 0 {
			mode = 0644
		}
		if err := os.WriteFile(target, file.Data, mode); err != nil {
			return builderrors.NewWriteError(target, err)
		}
	}
	return nil
}

// Run chains the stages over files
func Run(ctx context.Context, files []File, stages ...Stage) ([]File, error) {
	var err error
	for _, stage := range stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		files, err = stage(ctx, files)
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Copy is the identity stage
func Copy(_ context.Context, files []File) ([]File, error) {
	return files, nil
}

// Filter keeps the files for which keep returns true
func Filter(keep func(File) bool) Stage {
	return func(_ context.Context, files []File) ([]File, error) {
		kept := files[:0:0]
		for _, file := range files {
			if keep(file) {
				kept = append(kept, file)
			}
		}
		return kept, nil
	}
}

// Each applies fn to every file; files whose extension is not listed pass through
func Each(fn func(ctx context.Context, file File) (File, error), exts ...string) Stage {
	return func(ctx context.Context, files []File) ([]File, error) {
		out := make([]File, 0, len(files))
		for _, file := range files {
			if len(exts) > 0 && !hasExt(file, exts) {
				out = append(out, file)
				continue
			}
			transformed, err := fn(ctx, file)
			if err != nil {
				return nil, err
			}
			out = append(out, transformed)
		}
		return out, nil
	}
}

func hasExt(file File, exts []string) bool {
	ext := file.Ext()
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Clean removes the given directories. Missing directories are not an error.
func Clean(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return builderrors.NewPathError(dir, "Cleaning build directory", err)
		}
	}
	return nil
}
