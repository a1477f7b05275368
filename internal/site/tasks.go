package site

import (
	"context"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
	"github.com/maxkimambo/sitebuild/internal/tools"
)

// Source globs, relative to the project root
var (
	styleSources  = []string{"source/assets/styles/*.scss"}
	scriptSources = []string{"source/assets/scripts/*.js"}
	pageSources   = []string{"source/*.html"}
	imageSources  = []string{"source/assets/images/**"}
	fontSources   = []string{"source/assets/fonts/**"}
	extraSources  = []string{"public/**"}
	bundleSources = []string{"intermediate/*.html"}

	lintStyleSources  = []string{"source/**/*.{css,scss,sass,less}"}
	lintScriptSources = []string{"source/assets/scripts/**/*.js"}
)

func (s *Site) clean(_ context.Context) error {
	dirs := []string{s.cfg.IntermediatePath(), s.cfg.OutputPath()}
	if err := pipeline.Clean(dirs...); err != nil {
		return err
	}
	logger.User.Cleanupf("Removed %s and %s", config.IntermediateDir, config.OutputDir)
	return nil
}

func (s *Site) style(ctx context.Context) error {
	return s.transform(ctx, config.SourceDir, styleSources, s.cfg.IntermediatePath(),
		pipeline.Filter(func(f pipeline.File) bool { return !tools.IsPartial(f) }),
		tools.Stage(s.tools.Style, ".scss"),
	)
}

func (s *Site) script(ctx context.Context) error {
	return s.transform(ctx, config.SourceDir, scriptSources, s.cfg.IntermediatePath(),
		tools.Stage(s.tools.Script, ".js"),
	)
}

func (s *Site) page(ctx context.Context) error {
	return s.transform(ctx, config.SourceDir, pageSources, s.cfg.IntermediatePath(),
		tools.Stage(s.tools.Page, ".html"),
	)
}

func (s *Site) image(ctx context.Context) error {
	return s.transform(ctx, config.SourceDir, imageSources, s.cfg.OutputPath(),
		tools.Stage(s.tools.Image),
	)
}

func (s *Site) font(ctx context.Context) error {
	return s.transform(ctx, config.SourceDir, fontSources, s.cfg.OutputPath(),
		tools.Stage(s.tools.Image),
	)
}

func (s *Site) extra(ctx context.Context) error {
	return s.transform(ctx, config.PublicDir, extraSources, s.cfg.OutputPath(), pipeline.Copy)
}

func (s *Site) bundle(ctx context.Context) error {
	stages := []pipeline.Stage{
		s.tools.Bundler.Bundle,
		tools.Stage(s.tools.Minifier),
	}
	if s.tools.Compressor != nil {
		stages = append(stages, s.tools.Compressor.Stage)
	}
	return s.transform(ctx, config.IntermediateDir, bundleSources, s.cfg.OutputPath(), stages...)
}

// lint rewrites badly formatted sources in place, then fails on anything
// it could not fix.
func (s *Site) lint(ctx context.Context) error {
	styles, err := pipeline.Source(s.cfg.Root, config.SourceDir, lintStyleSources...)
	if err != nil {
		return err
	}
	scripts, err := pipeline.Source(s.cfg.Root, config.SourceDir, lintScriptSources...)
	if err != nil {
		return err
	}

	report := &tools.Report{}
	s.tools.Linter.Styles(styles, report)
	s.tools.Linter.Scripts(scripts, report)
	if err := pipeline.Dest(s.cfg.SourcePath(), report.Fixed); err != nil {
		return err
	}
	for _, file := range report.Fixed {
		logger.User.Createf("Reformatted %s", file.Path)
	}

	s.tools.Linter.External(ctx, report)
	return report.Err()
}
