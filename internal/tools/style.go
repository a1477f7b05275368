package tools

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/maxkimambo/sitebuild/internal/config"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// StyleCompiler pipes each stylesheet through the configured preprocessor command
type StyleCompiler struct {
	options   config.StyleOptions
	sourceDir string
}

// NewStyleCompiler creates a StyleCompiler resolving imports below sourceDir
func NewStyleCompiler(options config.StyleOptions, sourceDir string) *StyleCompiler {
	return &StyleCompiler{options: options, sourceDir: sourceDir}
}

// Name returns the adapter name
func (s *StyleCompiler) Name() string { return "style" }

// Transform compiles one .scss file into .css
func (s *StyleCompiler) Transform(ctx context.Context, file pipeline.File) (pipeline.File, error) {
	dir := filepath.Join(s.sourceDir, filepath.FromSlash(path.Dir(file.Path)))
	cmd := ShellCommand{
		Command: s.options.Command,
		Dir:     s.sourceDir,
		Env: map[string]string{
			"SITEBUILD_FILE":         file.Path,
			"SITEBUILD_DIR":          dir,
			"SITEBUILD_OUTPUT_STYLE": s.options.OutputStyle,
		},
	}

	css, err := cmd.Run(ctx, bytes.NewReader(file.Data))
	if err != nil {
		return file, builderrors.NewToolFailedError(s.Name(), file.Path, err)
	}

	out := file.WithExt(".css")
	out.Data = css
	return out, nil
}

// IsPartial reports whether a stylesheet is only meant to be imported
func IsPartial(file pipeline.File) bool {
	return strings.HasPrefix(path.Base(file.Path), "_")
}
