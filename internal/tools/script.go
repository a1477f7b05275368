package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/maxkimambo/sitebuild/internal/config"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

var esTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ScriptTranspiler lowers modern JavaScript to the configured target
type ScriptTranspiler struct {
	options config.ScriptOptions
}

// NewScriptTranspiler creates a ScriptTranspiler
func NewScriptTranspiler(options config.ScriptOptions) *ScriptTranspiler {
	return &ScriptTranspiler{options: options}
}

// Name returns the adapter name
func (s *ScriptTranspiler) Name() string { return "script" }

// Transform transpiles one script
func (s *ScriptTranspiler) Transform(_ context.Context, file pipeline.File) (pipeline.File, error) {
	target, ok := esTargets[strings.ToLower(s.options.Target)]
	if !ok {
		return file, builderrors.NewInvalidOptionError("tools.script.target", s.options.Target, "unknown ECMAScript target")
	}

	options := api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     target,
		Sourcefile: file.Path,
	}
	if s.options.SourceMap {
		options.Sourcemap = api.SourceMapInline
	}

	result := api.Transform(string(file.Data), options)
	if len(result.Errors) > 0 {
		return file, builderrors.NewToolFailedError(s.Name(), file.Path, messagesError(result.Errors))
	}

	file.Data = result.Code
	return file, nil
}

// formatMessages renders esbuild diagnostics as file:line: text
func formatMessages(messages []api.Message) []string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d: %s", msg.Location.File, msg.Location.Line, msg.Text))
			continue
		}
		lines = append(lines, msg.Text)
	}
	return lines
}

func messagesError(messages []api.Message) error {
	return fmt.Errorf("%s", strings.Join(formatMessages(messages), "; "))
}
