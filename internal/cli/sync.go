package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drawsync/pkg/config"
	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/pipeline"
)

// syncOpts holds the command-line flags for the sync command.
type syncOpts struct {
	output         string        // output folder; empty means next to the document
	all            bool          // export every page
	page           int           // export one page (0-based)
	interactive    bool          // pick the page in a terminal UI
	workers        int           // number of export partitions
	force          bool          // export regardless of the manifest
	format         string        // output format and extension
	timeout        time.Duration // per-page export timeout
	manifestPolicy string        // merge or replace, for single-page runs
	retryFailed    bool          // leave failed pages out of the manifest
	dryRun         bool          // plan only
	strict         bool          // exit non-zero when any page fails
	drawioBin      string        // exporter binary
	store          storeOpts
}

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	opts := syncOpts{
		workers: pipeline.DefaultWorkers,
		format:  pipeline.DefaultFormat,
		timeout: pipeline.DefaultJobTimeout,
	}

	cmd := &cobra.Command{
		Use:   "sync <document> [-- exporter args...]",
		Short: "Export the changed pages of a draw.io document",
		Long: `Export the pages of a draw.io document, skipping pages whose name, content
and output path are unchanged since the last run.

Select every page with --all or one page with --page (0-based) or --interactive.
Arguments after "--" are passed verbatim to the drawio exporter, e.g.

  drawsync sync arch.drawio --all -- --scale 2 --border 10`,
		Args: func(cmd *cobra.Command, args []string) error {
			if n := positional(cmd, args); n != 1 {
				return fmt.Errorf("accepts 1 document, received %d", n)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.applySyncConfig(cmd, &opts); err != nil {
				return err
			}
			return c.runSync(cmd.Context(), cmd, args[0], extraArgs(cmd, args), &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output folder (default: the document's folder)")
	f.BoolVarP(&opts.all, "all", "a", false, "export all pages")
	f.IntVarP(&opts.page, "page", "p", 0, "export a single page by 0-based index")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "choose the page interactively")
	f.IntVarP(&opts.workers, "workers", "w", opts.workers, "number of parallel exports")
	f.BoolVar(&opts.force, "force", false, "export selected pages even if unchanged")
	f.StringVarP(&opts.format, "format", "f", opts.format, "output format: png (default), svg, pdf, jpg, ...")
	f.DurationVar(&opts.timeout, "timeout", opts.timeout, "timeout for a single page export")
	f.StringVar(&opts.manifestPolicy, "manifest-policy", pipeline.DefaultManifestPolicy, "single-page manifest policy: merge (default), replace")
	f.BoolVar(&opts.retryFailed, "retry-failed", false, "leave failed pages out of the manifest so the next run retries them")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show which pages would be exported")
	f.BoolVar(&opts.strict, "strict", false, "exit with an error if any page fails to export")
	f.StringVar(&opts.drawioBin, "drawio-bin", "", "drawio executable (default $DRAWIO_BIN or drawio)")
	f.StringVar(&opts.store.target, "store", "", "manifest store: file (default), none, redis://..., mongodb://...")
	f.BoolVar(&opts.store.noManifest, "no-manifest", false, "ignore and do not write the manifest")

	cmd.MarkFlagsMutuallyExclusive("all", "page", "interactive")
	cmd.MarkFlagsMutuallyExclusive("store", "no-manifest")

	return cmd
}

// applySyncConfig fills in values from the config file for flags the user
// did not set.
func (c *CLI) applySyncConfig(cmd *cobra.Command, opts *syncOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyConfig(cmd, opts, cfg)
	return nil
}

func applyConfig(cmd *cobra.Command, opts *syncOpts, cfg *config.Config) {
	f := cmd.Flags()
	if !f.Changed("workers") && cfg.Workers > 0 {
		opts.workers = cfg.Workers
	}
	if !f.Changed("format") && cfg.Format != "" {
		opts.format = cfg.Format
	}
	if !f.Changed("timeout") {
		if d, err := cfg.JobTimeout(); err == nil && d > 0 {
			opts.timeout = d
		}
	}
	if !f.Changed("manifest-policy") && cfg.ManifestPolicy != "" {
		opts.manifestPolicy = cfg.ManifestPolicy
	}
	if !f.Changed("retry-failed") && cfg.RetryFailed {
		opts.retryFailed = true
	}
}

// runSync executes one sync run and prints its outcome.
func (c *CLI) runSync(ctx context.Context, cmd *cobra.Command, doc string, extra []string, opts *syncOpts) error {
	prog := newProgress(c.Logger)

	runner, err := c.newRunner(ctx, opts.store, c.drawioBinary(opts.drawioBin))
	if err != nil {
		return err
	}
	defer runner.Close()

	po := pipeline.Options{
		Document:       doc,
		OutputDir:      c.outputDir(doc, opts.output, cmd.Flags().Changed("output")),
		All:            opts.all,
		Format:         opts.format,
		Extra:          extra,
		Workers:        opts.workers,
		Force:          opts.force,
		ManifestPolicy: opts.manifestPolicy,
		RetryFailed:    opts.retryFailed,
		DryRun:         opts.dryRun,
		JobTimeout:     opts.timeout,
		Logger:         c.Logger,
	}

	switch {
	case cmd.Flags().Changed("page"):
		page := opts.page
		po.Page = &page
	case opts.interactive:
		page, err := c.pickPage(ctx, runner, doc, po.OutputDir, opts.format)
		if err != nil {
			return err
		}
		po.Page = &page
	}

	if !opts.dryRun {
		if chk, ok := runner.Renderer.(interface{ Check() error }); ok {
			if err := chk.Check(); err != nil {
				return err
			}
		}
	}

	res, err := runner.Execute(ctx, po)
	if err != nil {
		if res != nil && res.Saved {
			c.Logger.Warn("interrupted; finished pages were recorded", "exported", res.Exec.Succeeded)
		}
		return selectionHint(err)
	}

	newPrinter(cmd.OutOrStdout()).syncResult(res, opts.dryRun)
	prog.done(fmt.Sprintf("Synced %s", filepath.Base(res.Document)))

	if opts.strict && res.Exec.Failed() > 0 {
		return res.Exec.Err()
	}
	return nil
}

// outputDir resolves the output folder: the flag (relative to the working
// directory), else the config value (relative to the document's folder).
func (c *CLI) outputDir(doc, flag string, set bool) string {
	if set {
		return flag
	}
	cfg, err := c.loadConfig()
	if err != nil || cfg.Output == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Output) {
		return cfg.Output
	}
	return filepath.Join(filepath.Dir(doc), cfg.Output)
}

// positional returns the number of arguments before "--".
func positional(cmd *cobra.Command, args []string) int {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return dash
	}
	return len(args)
}

// extraArgs returns the arguments after "--".
func extraArgs(cmd *cobra.Command, args []string) []string {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return nil
	}
	return args[dash:]
}

// selectionHint turns a bare selection error into a hint about the flags.
func selectionHint(err error) error {
	if errors.Is(err, errors.ErrCodeInvalidSelection) {
		return fmt.Errorf("%w (use --all, --page N or --interactive)", err)
	}
	return err
}
