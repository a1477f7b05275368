package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/logger"
)

var version = "v0.1.0"

// NewRootCmd builds the command tree. Every call returns fresh flags.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitebuild",
		Short: "Build and serve a static website",
		Long: `Build and serve a static website from source/ and public/.

Templates, stylesheets and scripts are compiled into intermediate/ during
development and bundled, minified and optimised into output/ for release.

EXAMPLES:
# Develop with live reload on http://localhost:2080
sitebuild serve --open true

# Produce a release build and preview it
sitebuild start

# Show how build is executed
sitebuild tasks build
`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			debug, _ := flags.GetBool("debug")
			verbose, _ := flags.GetBool("verbose")
			jsonLogs, _ := flags.GetBool("json")
			quiet, _ := flags.GetBool("quiet")
			logger.Setup(verbose || debug, jsonLogs, quiet)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("dir", "C", ".", "Project root containing source/ and public/")
	flags.String("config", "", "Config file (default <dir>/"+config.DefaultFileName+", optional)")
	flags.IntP("port", "p", config.DefaultPort, "Port for the development and preview servers")
	flags.Var(newBoolValue(false), "open", "Open the default browser once the server is listening (`true|false`)")
	flags.Int("max-parallel", config.DefaultMaxParallel, "Maximum number of tasks running at once")
	flags.Bool("debug", false, "Enable debug logging")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.Bool("json", false, "Output logs in JSON format, and plans as JSON for the tasks command")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")

	for _, task := range taskCommands {
		rootCmd.AddCommand(newTaskCmd(task))
	}
	rootCmd.AddCommand(newTasksCmd())

	return rootCmd
}

// Execute runs the CLI until ctx is cancelled or the command finishes
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
