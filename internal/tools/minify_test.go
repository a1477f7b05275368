package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

func TestMinifier_ByExtension(t *testing.T) {
	m := NewMinifier()

	tests := []struct {
		path     string
		input    string
		expected string
	}{
		{"assets/styles/main.css", "body {\n  color : red ;\n}\n", "body{color:red}"},
		{"notes.txt", "keep   as is", "keep   as is"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			out, err := m.Transform(context.Background(), pipeline.File{Path: tt.path, Data: []byte(tt.input)})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out.Data))
		})
	}
}

func TestMinifier_ScriptAndMarkup(t *testing.T) {
	m := NewMinifier()

	js, err := m.Transform(context.Background(), pipeline.File{
		Path: "main.js",
		Data: []byte("function greet(name) {\n    return 'hi ' + name;\n}\n"),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(js.Data), "\n    ")
	assert.Contains(t, string(js.Data), "greet")

	html, err := m.Transform(context.Background(), pipeline.File{
		Path: "index.html",
		Data: []byte("<html>\n  <body>\n    <p>  hello   world  </p>\n    <style>  p { color : red ; }  </style>\n  </body>\n</html>\n"),
	})
	require.NoError(t, err)
	assert.Contains(t, string(html.Data), "hello world")
	assert.Contains(t, string(html.Data), "p{color:red}")
	assert.NotContains(t, string(html.Data), "\n  ")
}
