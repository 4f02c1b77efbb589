package pipeline

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/drawsync/pkg/document"
	"github.com/matzehuels/drawsync/pkg/executor"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/observability"
	"github.com/matzehuels/drawsync/pkg/plan"
	"github.com/matzehuels/drawsync/pkg/render"
)

// Runner executes sync runs against a manifest store and a renderer.
//
// The Runner holds no per-run state. Multiple goroutines may share one
// Runner, but concurrent runs against the same document race on its
// manifest and must be serialized by the caller.
type Runner struct {
	Store    manifest.Store
	Renderer render.Renderer
	Logger   *log.Logger
}

// NewRunner creates a runner.
// If store is nil, manifests are kept in files next to their documents.
// If renderer is nil, pages are exported with the drawio CLI found on PATH.
func NewRunner(store manifest.Store, renderer render.Renderer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = manifest.NewFileStore()
	}
	if renderer == nil {
		renderer = render.NewDrawio("", logger)
	}
	return &Runner{
		Store:    store,
		Renderer: renderer,
		Logger:   logger,
	}
}

// Execute runs read → load → plan → execute → save for one document.
//
// Configuration, document and manifest errors abort the run before anything
// is exported or saved. Export failures do not: they are reported in
// Result.Exec and the manifest is still saved. If ctx is cancelled during
// execution the finished work is saved and the context error is returned
// together with the result.
func (r *Runner) Execute(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := opts.Logger.With("run", runID[:8])
	res = &Result{
		RunID:            runID,
		Document:         opts.Document,
		ManifestLocation: r.Store.Location(opts.Document),
	}

	observability.Pipeline().OnRunStart(ctx, runID, opts.Document)
	defer func() {
		res.Stats.Total = time.Since(start)
		failed := 0
		if res.Exec != nil {
			failed = res.Exec.Failed()
		}
		observability.Pipeline().OnRunComplete(ctx, runID, opts.Document, res.Planned(), failed, res.Stats.Total, err)
	}()

	// Stage 1: Read
	readStart := time.Now()
	pages, err := document.ReadPages(opts.Document)
	if err != nil {
		return res, err
	}
	res.Pages = len(pages)
	res.Stats.ReadTime = time.Since(readStart)
	logger.Debug("read document", "pages", len(pages), "duration", res.Stats.ReadTime)

	// Stage 2: Load
	prev, err := r.Store.Load(ctx, opts.Document)
	observability.Manifest().OnManifestLoad(ctx, res.ManifestLocation, len(prev), err)
	if err != nil {
		return res, err
	}

	// Stage 3: Plan
	planStart := time.Now()
	p, err := plan.Build(plan.Input{
		Document:  opts.Document,
		Pages:     pages,
		Selection: opts.Selection(),
		Force:     opts.Force,
		Previous:  prev,
		OutputDir: opts.OutputDir,
		Format:    opts.Format,
		Extra:     opts.Extra,
	})
	if err != nil {
		return res, err
	}
	res.Jobs = p.Jobs
	res.Skipped = p.Skipped
	res.Stats.PlanTime = time.Since(planStart)

	logger.Info("planned export",
		"pages", len(p.Records),
		"changed", len(p.Jobs),
		"unchanged", p.Skipped)

	if opts.DryRun {
		res.Manifest = nextManifest(prev, p, nil, opts)
		res.Exec = &executor.Result{}
		return res, nil
	}

	// Stage 4: Execute
	exec := executor.New(r.Renderer, logger)
	exec.Workers = opts.Workers
	exec.JobTimeout = opts.JobTimeout
	res.Exec = exec.Run(ctx, p.Jobs)
	res.Stats.ExecuteTime = res.Exec.Duration

	if len(p.Jobs) > 0 {
		logger.Info("exported pages",
			"succeeded", res.Exec.Succeeded,
			"failed", res.Exec.Failed(),
			"workers", res.Exec.Partitions,
			"duration", res.Stats.ExecuteTime)
	}

	// Stage 5: Save
	res.Manifest = nextManifest(prev, p, res.Exec, opts)
	saveStart := time.Now()
	saveErr := r.Store.Save(context.WithoutCancel(ctx), opts.Document, res.Manifest)
	observability.Manifest().OnManifestSave(ctx, res.ManifestLocation, len(res.Manifest), saveErr)
	if saveErr != nil {
		return res, saveErr
	}
	res.Saved = true
	res.Stats.SaveTime = time.Since(saveStart)
	logger.Debug("saved manifest", "location", res.ManifestLocation, "pages", len(res.Manifest))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// nextManifest builds the manifest to persist after a run.
//
// All-pages runs replace the manifest with the fresh records, which drops
// entries for pages that no longer exist. Single-page runs merge their
// record into prev unless the policy is replace. Pages whose export was
// interrupted, and with RetryFailed every failed page, are left out so
// the next run exports them again.
func nextManifest(prev manifest.Manifest, p *plan.Plan, exec *executor.Result, opts Options) manifest.Manifest {
	next := p.Manifest()
	if opts.Selection().IsSingle() && opts.ManifestPolicy == PolicyMerge {
		next = prev.Merge(next)
	}
	if exec == nil {
		return next
	}
	for _, f := range exec.Failures {
		if opts.RetryFailed || goerrors.Is(f, context.Canceled) {
			next.Delete(f.Index)
		}
	}
	return next
}

// Pages reads a document and pairs every page with its stored record.
// It is used to inspect a document without exporting anything.
func (r *Runner) Pages(ctx context.Context, doc string) ([]document.Page, manifest.Manifest, error) {
	pages, err := document.ReadPages(doc)
	if err != nil {
		return nil, nil, err
	}
	m, err := r.Store.Load(ctx, doc)
	if err != nil {
		return pages, nil, err
	}
	return pages, m, nil
}

// Close releases resources held by the runner (primarily the store).
func (r *Runner) Close() error {
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}
