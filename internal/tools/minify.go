package tools

import (
	"context"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

const (
	mediaHTML = "text/html"
	mediaCSS  = "text/css"
	mediaJS   = "application/javascript"
	mediaSVG  = "image/svg+xml"
)

var mediaTypes = map[string]string{
	".html": mediaHTML,
	".htm":  mediaHTML,
	".css":  mediaCSS,
	".js":   mediaJS,
	".svg":  mediaSVG,
}

// Minifier shrinks markup, stylesheets, scripts and SVG. Inline styles and
// scripts inside HTML are minified too.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier with every supported media type registered
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.Add(mediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	return &Minifier{m: m}
}

// Name returns the adapter name
func (m *Minifier) Name() string { return "minify" }

// Transform minifies a file by extension; unknown types pass through
func (m *Minifier) Transform(_ context.Context, file pipeline.File) (pipeline.File, error) {
	mediaType, ok := mediaTypes[file.Ext()]
	if !ok {
		return file, nil
	}

	out, err := m.m.Bytes(mediaType, file.Data)
	if err != nil {
		return file, builderrors.NewToolFailedError(m.Name(), file.Path, err)
	}

	file.Data = out
	return file, nil
}
