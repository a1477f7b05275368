// Package site registers the build tasks of a project and runs them.
package site

import (
	"context"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/dag"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/metrics"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
	"github.com/maxkimambo/sitebuild/internal/taskmanager"
	"github.com/maxkimambo/sitebuild/internal/tools"
)

// Public task names
const (
	TaskClean      = "clean"
	TaskLint       = "lint"
	TaskStyle      = "style"
	TaskScript     = "script"
	TaskPage       = "page"
	TaskImage      = "image"
	TaskFont       = "font"
	TaskExtra      = "extra"
	TaskBundle     = "bundle"
	TaskDevServer  = "devServer"
	TaskDistServer = "distServer"
	TaskCompile    = "compile"
	TaskBuild      = "build"
	TaskServe      = "serve"
	TaskStart      = "start"
)

// Commands are the tasks exposed on the command line
var Commands = []string{TaskClean, TaskLint, TaskServe, TaskBuild, TaskStart}

// Site owns the task graph of one project
type Site struct {
	cfg      *config.Config
	tools    *tools.Set
	metrics  *metrics.Metrics
	registry *taskmanager.Registry
}

// New registers every task for cfg. The graph is fixed from here on.
func New(cfg *config.Config, set *tools.Set, m *metrics.Metrics) (*Site, error) {
	if set == nil {
		set = tools.NewSet(cfg)
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Site{
		cfg:      cfg,
		tools:    set,
		metrics:  m,
		registry: taskmanager.NewRegistry(),
	}
	if err := s.register(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Site) register() error {
	r := s.registry
	leaves := []struct {
		name        string
		description string
		action      taskmanager.Action
	}{
		{TaskClean, "Remove the intermediate and output directories", s.clean},
		{TaskLint, "Normalise stylesheet formatting and check scripts", s.lint},
		{TaskStyle, "Compile stylesheets into intermediate", s.style},
		{TaskScript, "Transpile scripts into intermediate", s.script},
		{TaskPage, "Render page templates into intermediate", s.page},
		{TaskImage, "Optimise images into output", s.image},
		{TaskFont, "Optimise fonts into output", s.font},
		{TaskExtra, "Copy public files into output", s.extra},
		{TaskBundle, "Bundle and minify referenced assets into output", s.bundle},
		{TaskDevServer, "Serve intermediate, source and public with live reload", s.devServer},
		{TaskDistServer, "Serve the output directory", s.distServer},
	}
	for _, leaf := range leaves {
		if err := r.Define(leaf.name, leaf.description, leaf.action); err != nil {
			return err
		}
	}

	if err := r.ComposeParallel(TaskCompile, "Compile styles, scripts and pages", TaskStyle, TaskScript, TaskPage); err != nil {
		return err
	}
	if err := r.ComposeSequential("assemble", "Compile then bundle", TaskCompile, TaskBundle); err != nil {
		return err
	}
	if err := r.ComposeParallel("release", "Produce every output artefact", "assemble", TaskImage, TaskFont, TaskExtra); err != nil {
		return err
	}
	if err := r.ComposeSequential(TaskBuild, "Clean and produce a release build", TaskClean, "release"); err != nil {
		return err
	}
	if err := r.ComposeSequential(TaskServe, "Compile and start the development server", TaskCompile, TaskDevServer); err != nil {
		return err
	}
	return r.ComposeSequential(TaskStart, "Build and preview the release", TaskBuild, TaskDistServer)
}

// Registry exposes the task graph
func (s *Site) Registry() *taskmanager.Registry {
	return s.registry
}

// Config returns the run configuration
func (s *Site) Config() *config.Config {
	return s.cfg
}

// Metrics returns the collectors fed by task runs
func (s *Site) Metrics() *metrics.Metrics {
	return s.metrics
}

// ExecutorConfig returns the executor settings for this run
func (s *Site) ExecutorConfig() *dag.ExecutorConfig {
	config := dag.DefaultExecutorConfig()
	config.MaxParallelTasks = s.cfg.MaxParallel
	config.Observer = s.metrics
	return config
}

// Run executes a task by name
func (s *Site) Run(ctx context.Context, name string) (*dag.ExecutionResult, error) {
	return s.registry.Run(ctx, name, s.ExecutorConfig())
}

// runTask is the watch loop's entry point
func (s *Site) runTask(ctx context.Context, name string) error {
	_, err := s.Run(ctx, name)
	return err
}

// transform reads, runs stages and writes in one go
func (s *Site) transform(ctx context.Context, base string, patterns []string, destDir string, stages ...pipeline.Stage) error {
	files, err := pipeline.Source(s.cfg.Root, base, patterns...)
	if err != nil {
		return err
	}
	files, err = pipeline.Run(ctx, files, stages...)
	if err != nil {
		return err
	}
	if err := pipeline.Dest(destDir, files); err != nil {
		return err
	}
	logger.Op.WithFields(map[string]interface{}{
		"files": len(files),
		"dest":  destDir,
	}).Debug("Wrote files")
	return nil
}
