package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/site"
	"github.com/maxkimambo/sitebuild/internal/utils"
)

type taskCommand struct {
	name  string
	short string
	long  string
}

var taskCommands = []taskCommand{
	{
		name:  site.TaskClean,
		short: "Remove the intermediate and output directories",
		long:  "Remove intermediate/ and output/. Running it on a clean project is a no-op.",
	},
	{
		name:  site.TaskLint,
		short: "Fix source formatting and report problems",
		long: `Normalise whitespace in stylesheets and scripts under source/ in place,
syntax-check scripts and run the configured external linter, if any.
Problems that cannot be fixed automatically fail the command.`,
	},
	{
		name:  site.TaskServe,
		short: "Compile and start the development server",
		long: `Compile styles, scripts and pages into intermediate/, then serve
intermediate/, source/ and public/ with live reload. Changed sources are
recompiled and connected browsers refreshed until interrupted.`,
	},
	{
		name:  site.TaskBuild,
		short: "Produce a release build in output/",
		long: `Clean, compile, bundle and minify pages with the assets they reference,
optimise images and fonts and copy public/ into output/.`,
	},
	{
		name:  site.TaskStart,
		short: "Build, then preview the release build",
		long:  "Run build and serve output/ without live reload until interrupted.",
	},
}

func newTaskCmd(task taskCommand) *cobra.Command {
	return &cobra.Command{
		Use:   task.name,
		Short: task.short,
		Long:  task.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, task.name)
		},
	}
}

func runTask(cmd *cobra.Command, name string) error {
	s, err := createSite(cmd)
	if err != nil {
		return err
	}
	logger.Op.Debugf("Configuration: %+v", *s.Config())
	logger.User.Infof("Project: %s", s.Config().Root)

	start := time.Now()
	result, err := s.Run(cmd.Context(), name)
	if result == nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), utils.RunSummary(result))
		fmt.Fprintln(cmd.ErrOrStderr(), utils.Error(fmt.Sprintf("'%s' failed after %v", name, elapsed),
			fmt.Sprintf("%d task(s) failed", len(result.FailedNodes()))))
		return err
	}

	if !quiet {
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), utils.RunSummary(result))
		}
		fmt.Fprintln(cmd.OutOrStdout(), utils.Success(fmt.Sprintf("'%s' finished after %v", name, elapsed),
			fmt.Sprintf("%d task(s) run", len(result.NodeResults))))
	}
	return nil
}
