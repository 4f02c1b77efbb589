package cli

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drawsync/pkg/buildinfo"
	"github.com/matzehuels/drawsync/pkg/config"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/pipeline"
	"github.com/matzehuels/drawsync/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "drawsync"

	// envDrawioBin overrides the exporter binary when --drawio-bin is not set.
	envDrawioBin = "DRAWIO_BIN"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the --config flag.
	configPath string
	// config is loaded lazily by loadConfig.
	config *config.Config

	// newRenderer builds the exporter; tests replace it with a fake.
	newRenderer func(binary string, logger *log.Logger) render.Renderer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		newRenderer: func(binary string, logger *log.Logger) render.Renderer {
			return render.NewDrawio(binary, logger)
		},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "drawsync exports draw.io pages incrementally",
		Long:         `drawsync exports the pages of a draw.io document to images, re-exporting only the pages whose name, content or output path changed since the last run.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/drawsync/config.toml)")

	// Register all subcommands
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.pagesCommand())
	root.AddCommand(c.manifestCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig reads the config file once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	c.config = cfg
	return cfg, nil
}

// storeOpts selects where manifests are kept.
type storeOpts struct {
	target     string // --store value; empty means the config value or file
	noManifest bool   // --no-manifest
}

// openStore opens the manifest store selected by flags and config.
func (c *CLI) openStore(ctx context.Context, opts storeOpts) (manifest.Store, error) {
	if opts.noManifest {
		return manifest.NewNullStore(), nil
	}
	target := opts.target
	if target == "" {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		target = cfg.Store
	}
	store, err := manifest.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("manifest store", "backend", storeName(target))
	return store, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, sopts storeOpts, drawioBin string) (*pipeline.Runner, error) {
	store, err := c.openStore(ctx, sopts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, c.newRenderer(drawioBin, c.Logger), c.Logger), nil
}

// drawioBinary resolves the exporter binary: flag, then environment, then config.
func (c *CLI) drawioBinary(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(envDrawioBin); env != "" {
		return env
	}
	if cfg, err := c.loadConfig(); err == nil && cfg.DrawioBin != "" {
		return cfg.DrawioBin
	}
	return render.DefaultBinary
}

func storeName(target string) string {
	if target == "" {
		return manifest.BackendFile
	}
	if u := redactURL(target); u != "" {
		return u
	}
	return target
}

// redactURL hides credentials in a backend URL; non-URLs yield "".
func redactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Redacted()
}
