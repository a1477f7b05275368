package site

import (
	"context"
	"path"
	"strings"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/devserver"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
	"github.com/maxkimambo/sitebuild/internal/tools"
	"github.com/maxkimambo/sitebuild/internal/watch"
)

// Notifier receives reload requests once a watched task has finished
type Notifier interface {
	Reload()
	ReloadCSS(paths []string)
}

// WatchRules maps source changes onto the leaf task to re-run and the
// browser notification that follows it.
func (s *Site) WatchRules(n Notifier) []watch.Rule {
	reload := func([]string) { n.Reload() }

	return []watch.Rule{
		{
			Name:     "styles",
			Patterns: styleSources,
			Task:     TaskStyle,
			OnChange: func(changed []string) { n.ReloadCSS(stylesheetURLs(changed)) },
		},
		{
			Name:     "scripts",
			Patterns: scriptSources,
			Task:     TaskScript,
			OnChange: reload,
		},
		{
			Name:     "pages",
			Patterns: append(append([]string{}, pageSources...), "source/**/layouts/**", "source/**/partials/**"),
			Task:     TaskPage,
			OnChange: reload,
		},
		{
			Name:     "assets",
			Patterns: append(append(append([]string{}, imageSources...), fontSources...), extraSources...),
			OnChange: reload,
		},
	}
}

// stylesheetURLs maps changed .scss sources onto the served .css paths.
// A changed partial may affect any stylesheet, so it refreshes all of them.
func stylesheetURLs(changed []string) []string {
	urls := make([]string, 0, len(changed))
	for _, rel := range changed {
		file := pipeline.File{Path: strings.TrimPrefix(rel, config.SourceDir+"/")}
		if tools.IsPartial(file) {
			return nil
		}
		urls = append(urls, path.Clean(file.WithExt(".css").Path))
	}
	return urls
}

// devServer serves the working tree with live reload and re-runs tasks
// as sources change. It stops, successfully, when ctx is cancelled.
func (s *Site) devServer(ctx context.Context) error {
	srv := devserver.New(devserver.Options{
		Address:    s.cfg.Address(),
		Roots:      []string{s.cfg.IntermediatePath(), s.cfg.SourcePath(), s.cfg.PublicPath()},
		Routes:     map[string]string{"/" + config.NodeModulesDir: s.cfg.Path(config.NodeModulesDir)},
		LiveReload: true,
		Open:       s.cfg.Open,
		Metrics:    s.metrics,
	})
	watcher := watch.New(watch.Options{
		Root:     s.cfg.Root,
		Rules:    s.WatchRules(srv),
		Debounce: s.cfg.Watch.Debounce,
		Run:      s.runTask,
		Observer: s.metrics,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	err := srv.Run(ctx)
	cancel()
	if werr := <-watchErr; err == nil {
		err = werr
	}
	if err == nil {
		logger.User.Info("Development server stopped")
	}
	return err
}

// distServer previews the release output
func (s *Site) distServer(ctx context.Context) error {
	srv := devserver.New(devserver.Options{
		Address: s.cfg.Address(),
		Roots:   []string{s.cfg.OutputPath()},
		Open:    s.cfg.Open,
		Metrics: s.metrics,
	})
	return srv.Run(ctx)
}
