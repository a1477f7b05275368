// Package tools adapts the external transformation libraries to pipeline
// stages. Every adapter is registered explicitly in NewSet.
package tools

import (
	"context"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// Transformer converts one file
type Transformer interface {
	Name() string
	Transform(ctx context.Context, file pipeline.File) (pipeline.File, error)
}

// Stage applies a transformer to files with the given extensions
func Stage(t Transformer, exts ...string) pipeline.Stage {
	return pipeline.Each(t.Transform, exts...)
}

// Set holds the adapters used by the site tasks
type Set struct {
	Style      Transformer
	Script     Transformer
	Page       Transformer
	Image      Transformer
	Minifier   *Minifier
	Bundler    *Bundler
	Linter     *Linter
	Compressor *Precompressor
}

// NewSet wires the default adapters for a configuration
func NewSet(cfg *config.Config) *Set {
	minifier := NewMinifier()

	set := &Set{
		Style:    NewStyleCompiler(cfg.Tools.Style, cfg.SourcePath()),
		Script:   NewScriptTranspiler(cfg.Tools.Script),
		Page:     NewPageRenderer(cfg),
		Image:    NewImageOptimizer(cfg.Tools.Image, minifier),
		Minifier: minifier,
		Bundler:  NewBundler(cfg.Root, cfg.IntermediatePath()),
		Linter:   NewLinter(cfg.Tools.Lint, cfg.SourcePath()),
	}
	if cfg.Build.Precompress {
		set.Compressor = NewPrecompressor()
	}
	return set
}
