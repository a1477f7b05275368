package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0644))
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Overrides{Root: dir})
	require.NoError(t, err)

	assert.Equal(t, 2080, cfg.Port)
	assert.False(t, cfg.Open)
	assert.Equal(t, 10, cfg.MaxParallel)
	assert.Equal(t, "", cfg.ConfigFile)
	assert.Equal(t, DefaultStyleCommand, cfg.Tools.Style.Command)
	assert.Equal(t, "es2015", cfg.Tools.Script.Target)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, filepath.Join(dir, "source"), cfg.SourcePath())
	assert.Equal(t, filepath.Join(dir, "output"), cfg.OutputPath())
	assert.Equal(t, "http://localhost:2080", cfg.URL())
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  port: 3000
  open: true
data:
  menus:
    - name: Home
      link: index.html
build:
  precompress: true
watch:
  debounce: 250ms
tools:
  style:
    command: "sass --stdin --load-path=node_modules"
  lint:
    command: "standard --fix"
`)

	cfg, err := Load(Overrides{Root: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultFileName), cfg.ConfigFile)
	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.Open)
	assert.True(t, cfg.Build.Precompress)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "sass --stdin --load-path=node_modules", cfg.Tools.Style.Command)
	assert.Equal(t, "expanded", cfg.Tools.Style.OutputStyle, "unset keys keep their default")
	assert.Equal(t, "standard --fix", cfg.Tools.Lint.Command)
	assert.Contains(t, cfg.Data, "menus")
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  port: 3000\n  open: true\n")

	cfg, err := Load(Overrides{Root: dir, Port: intPtr(4000), Open: boolPtr(false), MaxParallel: intPtr(2)})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.False(t, cfg.Open)
	assert.Equal(t, 2, cfg.MaxParallel)
}

func TestLoad_WeaklyTypedValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  port: \"8080\"\nbuild:\n  precompress: \"true\"\n")

	cfg, err := Load(Overrides{Root: dir})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Build.Precompress)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		overrides func(dir string) Overrides
	}{
		{"malformed yaml", "server: [", nil},
		{"unknown key", "servr:\n  port: 1\n", nil},
		{"bad port", "", func(dir string) Overrides { return Overrides{Root: dir, Port: intPtr(70000)} }},
		{"bad parallelism", "", func(dir string) Overrides { return Overrides{Root: dir, MaxParallel: intPtr(0)} }},
		{"bad output style", "tools:\n  style:\n    output_style: nested\n", nil},
		{"unsupported script target", "tools:\n  script:\n    target: es5\n", nil},
		{"explicit missing file", "", func(dir string) Overrides { return Overrides{Root: dir, ConfigFile: "missing.yaml"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				writeConfig(t, dir, tt.content)
			}
			overrides := Overrides{Root: dir}
			if tt.overrides != nil {
				overrides = tt.overrides(dir)
			}

			_, err := Load(overrides)
			require.Error(t, err)
			assert.True(t, builderrors.IsCategory(err, builderrors.ErrorCategoryConfiguration), err.Error())
		})
	}
}

func TestLoad_ScriptTargetCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tools:\n  script:\n    target: ES2020\n")

	cfg, err := Load(Overrides{Root: dir})
	require.NoError(t, err)
	assert.Equal(t, "ES2020", cfg.Tools.Script.Target)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	cfg, err := Load(Overrides{Root: dir})
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}
