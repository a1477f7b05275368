package tools

import (
	"bytes"
	"context"

	"github.com/andybalholm/brotli"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// Precompressor adds a brotli-compressed .br sibling next to text assets
type Precompressor struct {
	level int
	exts  []string
}

// NewPrecompressor creates a Precompressor for html, css, js and svg
func NewPrecompressor() *Precompressor {
	return &Precompressor{
		level: brotli.BestCompression,
		exts:  []string{".html", ".css", ".js", ".svg"},
	}
}

// Name returns the adapter name
func (p *Precompressor) Name() string { return "precompress" }

// Stage returns the input files followed by their compressed siblings
func (p *Precompressor) Stage(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
	out := make([]pipeline.File, 0, len(files)*2)
	out = append(out, files...)

	for _, file := range files {
		if !p.applies(file) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, p.level)
		if _, err := w.Write(file.Data); err != nil {
			return nil, builderrors.NewToolFailedError(p.Name(), file.Path, err)
		}
		if err := w.Close(); err != nil {
			return nil, builderrors.NewToolFailedError(p.Name(), file.Path, err)
		}

		out = append(out, pipeline.File{
			Path: file.Path + ".br",
			Data: buf.Bytes(),
			Mode: file.Mode,
		})
	}

	return out, nil
}

func (p *Precompressor) applies(file pipeline.File) bool {
	ext := file.Ext()
	for _, candidate := range p.exts {
		if ext == candidate {
			return true
		}
	}
	return false
}
