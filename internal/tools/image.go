package tools

import (
	"bytes"
	"context"
	"image/png"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// ImageOptimizer applies lossless size reductions. PNGs are re-encoded at
// the best compression level and kept only when smaller; SVGs (images and
// SVG fonts) are minified; everything else is copied verbatim.
type ImageOptimizer struct {
	options  config.ImageOptions
	minifier *Minifier
}

// NewImageOptimizer creates an ImageOptimizer
func NewImageOptimizer(options config.ImageOptions, minifier *Minifier) *ImageOptimizer {
	return &ImageOptimizer{options: options, minifier: minifier}
}

// Name returns the adapter name
func (o *ImageOptimizer) Name() string { return "image" }

// Transform optimises one file
func (o *ImageOptimizer) Transform(ctx context.Context, file pipeline.File) (pipeline.File, error) {
	if !o.options.Optimize {
		return file, nil
	}

	switch file.Ext() {
	case ".png":
		return o.recompressPNG(file), nil
	case ".svg":
		optimized, err := o.minifier.Transform(ctx, file)
		if err != nil {
			// a malformed SVG is still a valid asset to ship
			logger.Op.WithFields(map[string]interface{}{
				"file":  file.Path,
				"error": err.Error(),
			}).Warn("Copying SVG without optimisation")
			return file, nil
		}
		return keepSmaller(file, optimized.Data), nil
	default:
		return file, nil
	}
}

func (o *ImageOptimizer) recompressPNG(file pipeline.File) pipeline.File {
	img, err := png.Decode(bytes.NewReader(file.Data))
	if err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"file":  file.Path,
			"error": err.Error(),
		}).Warn("Copying PNG without optimisation")
		return file
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return file
	}
	return keepSmaller(file, buf.Bytes())
}

func keepSmaller(file pipeline.File, candidate []byte) pipeline.File {
	if len(candidate) < len(file.Data) {
		logger.Op.WithFields(map[string]interface{}{
			"file":   file.Path,
			"before": len(file.Data),
			"after":  len(candidate),
		}).Debug("Optimised asset")
		file.Data = candidate
	}
	return file
}
