package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
)

const (
	// DefaultPort is the dev/preview server port when neither flag nor file sets one
	DefaultPort = 2080
	// DefaultMaxParallel bounds concurrently running leaf tasks
	DefaultMaxParallel = 10
	// DefaultFileName is looked up in the project root when --config is not given
	DefaultFileName = "sitebuild.yaml"
	// DefaultDebounce coalesces bursts of filesystem events per watch rule
	DefaultDebounce = 100 * time.Millisecond
	// DefaultStyleCommand runs dart-sass on one stylesheet
	DefaultStyleCommand = `sass --stdin --no-source-map --style="$SITEBUILD_OUTPUT_STYLE" --load-path="$SITEBUILD_DIR"`
)

// ScriptTargets are the accepted values of tools.script.target, compared
// case-insensitively
var ScriptTargets = []string{
	"es2015", "es2016", "es2017", "es2018", "es2019",
	"es2020", "es2021", "es2022", "esnext",
}

// Directory names relative to the project root
const (
	SourceDir       = "source"
	PublicDir       = "public"
	IntermediateDir = "intermediate"
	OutputDir       = "output"
	NodeModulesDir  = "node_modules"
)

// Config is the resolved run configuration. It is built once at startup and
// never mutated afterwards.
type Config struct {
	Root        string
	ConfigFile  string
	Port        int
	Open        bool
	MaxParallel int

	// Data is exposed to page templates next to pkg and date
	Data map[string]interface{}

	Build BuildOptions
	Watch WatchOptions
	Tools ToolOptions
}

// BuildOptions tune the release pipeline
type BuildOptions struct {
	Precompress bool `mapstructure:"precompress"`
}

// WatchOptions tune the dev-server watch loop
type WatchOptions struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ToolOptions carries the per-adapter settings from the tools section
type ToolOptions struct {
	Style  StyleOptions  `mapstructure:"style"`
	Script ScriptOptions `mapstructure:"script"`
	Lint   LintOptions   `mapstructure:"lint"`
	Image  ImageOptions  `mapstructure:"image"`
}

// StyleOptions configure the external stylesheet preprocessor. Command is a
// shell command line reading SCSS on stdin and writing CSS to stdout; it sees
// SITEBUILD_FILE, SITEBUILD_DIR and SITEBUILD_OUTPUT_STYLE in its environment.
type StyleOptions struct {
	Command     string `mapstructure:"command"`
	OutputStyle string `mapstructure:"output_style"`
}

// ScriptOptions configure script transpilation
type ScriptOptions struct {
	Target    string `mapstructure:"target"`
	SourceMap bool   `mapstructure:"source_map"`
}

// LintOptions configure the lint task
type LintOptions struct {
	// Command is an optional external linter run after the built-in checks
	Command    string `mapstructure:"command"`
	IndentSize int    `mapstructure:"indent_size"`
}

// ImageOptions configure the image/font optimiser
type ImageOptions struct {
	Optimize bool `mapstructure:"optimize"`
}

// fileConfig mirrors the layout of sitebuild.yaml
type fileConfig struct {
	Server struct {
		Port        int  `mapstructure:"port"`
		Open        bool `mapstructure:"open"`
		MaxParallel int  `mapstructure:"max_parallel"`
	} `mapstructure:"server"`
	Data  map[string]interface{} `mapstructure:"data"`
	Build BuildOptions           `mapstructure:"build"`
	Watch WatchOptions           `mapstructure:"watch"`
	Tools ToolOptions            `mapstructure:"tools"`
}

// Overrides holds values given on the command line. Nil fields were not set
// and leave the file or default value in place.
type Overrides struct {
	Root        string
	ConfigFile  string
	Port        *int
	Open        *bool
	MaxParallel *int
}

// Default returns the configuration used when no file and no flags are given
func Default(root string) *Config {
	return &Config{
		Root:        root,
		Port:        DefaultPort,
		MaxParallel: DefaultMaxParallel,
		Data:        map[string]interface{}{},
		Watch:       WatchOptions{Debounce: DefaultDebounce},
		Tools: ToolOptions{
			Style: StyleOptions{
				Command:     DefaultStyleCommand,
				OutputStyle: "expanded",
			},
			Script: ScriptOptions{Target: "es2015"},
			Lint:   LintOptions{IndentSize: 2},
			Image:  ImageOptions{Optimize: true},
		},
	}
}

// Load resolves the configuration: defaults, then the config file if any,
// then command-line overrides.
func Load(overrides Overrides) (*Config, error) {
	root := overrides.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, builderrors.NewPathError(root, "Resolving project root", err)
	}

	cfg := Default(absRoot)

	path := overrides.ConfigFile
	explicit := path != ""
	if !explicit {
		path = filepath.Join(absRoot, DefaultFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}

	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	if overrides.Port != nil {
		cfg.Port = *overrides.Port
	}
	if overrides.Open != nil {
		cfg.Open = *overrides.Open
	}
	if overrides.MaxParallel != nil {
		cfg.MaxParallel = *overrides.MaxParallel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return builderrors.NewConfigFileError(path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return builderrors.NewConfigFileError(path, err)
	}
	if raw == nil {
		c.ConfigFile = path
		return nil
	}

	file := fileConfig{
		Build: c.Build,
		Watch: c.Watch,
		Tools: c.Tools,
	}
	file.Server.Port = c.Port
	file.Server.Open = c.Open
	file.Server.MaxParallel = c.MaxParallel

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &file,
	})
	if err != nil {
		return fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return builderrors.NewConfigFileError(path, err)
	}

	c.ConfigFile = path
	c.Port = file.Server.Port
	c.Open = file.Server.Open
	c.MaxParallel = file.Server.MaxParallel
	c.Build = file.Build
	c.Watch = file.Watch
	c.Tools = file.Tools
	if file.Data != nil {
		c.Data = file.Data
	}
	return nil
}

// Validate checks option ranges
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return builderrors.NewInvalidOptionError("port", c.Port, "must be between 1 and 65535")
	}
	if c.MaxParallel < 1 {
		return builderrors.NewInvalidOptionError("max-parallel", c.MaxParallel, "must be at least 1")
	}
	if c.Watch.Debounce < 0 {
		return builderrors.NewInvalidOptionError("watch.debounce", c.Watch.Debounce, "must not be negative")
	}
	if c.Tools.Style.Command == "" {
		return builderrors.NewInvalidOptionError("tools.style.command", "", "must not be empty")
	}
	switch c.Tools.Style.OutputStyle {
	case "expanded", "compressed":
	default:
		return builderrors.NewInvalidOptionError("tools.style.output_style", c.Tools.Style.OutputStyle, "must be expanded or compressed")
	}
	if !slices.Contains(ScriptTargets, strings.ToLower(c.Tools.Script.Target)) {
		return builderrors.NewInvalidOptionError("tools.script.target", c.Tools.Script.Target,
			"must be one of "+strings.Join(ScriptTargets, ", "))
	}
	if c.Tools.Lint.IndentSize < 1 {
		return builderrors.NewInvalidOptionError("tools.lint.indent_size", c.Tools.Lint.IndentSize, "must be at least 1")
	}
	return nil
}

// Path joins elements onto the project root
func (c *Config) Path(elem ...string) string {
	return filepath.Join(append([]string{c.Root}, elem...)...)
}

// SourcePath returns the absolute source directory
func (c *Config) SourcePath() string { return c.Path(SourceDir) }

// PublicPath returns the absolute public directory
func (c *Config) PublicPath() string { return c.Path(PublicDir) }

// IntermediatePath returns the absolute intermediate directory
func (c *Config) IntermediatePath() string { return c.Path(IntermediateDir) }

// OutputPath returns the absolute output directory
func (c *Config) OutputPath() string { return c.Path(OutputDir) }

// Address is the host:port the servers listen on
func (c *Config) Address() string {
	return fmt.Sprintf("localhost:%d", c.Port)
}

// URL is the address opened in the browser
func (c *Config) URL() string {
	return "http://" + c.Address()
}
