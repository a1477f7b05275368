package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/sitebuild/internal/config"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

func TestScriptTranspiler_LowersToTarget(t *testing.T) {
	transpiler := NewScriptTranspiler(config.ScriptOptions{Target: "es2015"})

	out, err := transpiler.Transform(context.Background(), pipeline.File{
		Path: "assets/scripts/main.js",
		Data: []byte("const value = input ?? 'fallback';\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "assets/scripts/main.js", out.Path)
	assert.NotContains(t, string(out.Data), "??")
	assert.Contains(t, string(out.Data), "fallback")
}

func TestScriptTranspiler_SyntaxError(t *testing.T) {
	transpiler := NewScriptTranspiler(config.ScriptOptions{Target: "es2015"})

	_, err := transpiler.Transform(context.Background(), pipeline.File{
		Path: "assets/scripts/broken.js",
		Data: []byte("const = ;\n"),
	})
	require.Error(t, err)
	assert.True(t, builderrors.IsCategory(err, builderrors.ErrorCategoryTool))
	assert.Contains(t, err.Error(), "assets/scripts/broken.js:1:")
}

func TestScriptTranspiler_UnknownTarget(t *testing.T) {
	transpiler := NewScriptTranspiler(config.ScriptOptions{Target: "es3"})

	_, err := transpiler.Transform(context.Background(), pipeline.File{Path: "a.js"})
	require.Error(t, err)
	assert.True(t, builderrors.IsCategory(err, builderrors.ErrorCategoryConfiguration))
}

func TestScriptTranspiler_AcceptsEveryConfigTarget(t *testing.T) {
	for _, target := range config.ScriptTargets {
		_, ok := esTargets[target]
		assert.True(t, ok, target)
	}
}
