package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitebuild/internal/config"
	"github.com/maxkimambo/sitebuild/internal/site"
)

// createOverrides collects the flags the user actually set. Flags left at
// their default do not override the config file.
func createOverrides(cmd *cobra.Command) config.Overrides {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	configFile, _ := flags.GetString("config")

	overrides := config.Overrides{
		Root:       dir,
		ConfigFile: configFile,
	}
	if flags.Changed("port") {
		port, _ := flags.GetInt("port")
		overrides.Port = &port
	}
	if flags.Changed("open") {
		open, _ := flags.GetBool("open")
		overrides.Open = &open
	}
	if flags.Changed("max-parallel") {
		maxParallel, _ := flags.GetInt("max-parallel")
		overrides.MaxParallel = &maxParallel
	}
	return overrides
}

func createSite(cmd *cobra.Command) (*site.Site, error) {
	cfg, err := config.Load(createOverrides(cmd))
	if err != nil {
		return nil, err
	}
	return site.New(cfg, nil, nil)
}
