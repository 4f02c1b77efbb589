// Package executor runs render jobs across a fixed number of workers.
//
// Jobs are split into partitions by [Partition]; each partition is handled
// by one goroutine that renders its jobs sequentially. [Executor.Run]
// returns only after every partition has finished. A failed job is recorded
// and never stops the other jobs in its partition or elsewhere.
package executor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/observability"
	"github.com/matzehuels/drawsync/pkg/render"
)

const (
	// DefaultWorkers is the partition count used when none is set.
	DefaultWorkers = 4

	// DefaultJobTimeout bounds a single export.
	DefaultJobTimeout = 5 * time.Minute
)

// Executor renders jobs concurrently.
type Executor struct {
	Renderer   render.Renderer
	Workers    int           // requested partitions; DefaultWorkers if < 1
	JobTimeout time.Duration // per job; DefaultJobTimeout if zero, unbounded if negative
	Logger     *log.Logger
}

// New creates an Executor with default settings.
func New(r render.Renderer, logger *log.Logger) *Executor {
	if logger == nil {
		logger = discard
	}
	return &Executor{
		Renderer:   r,
		Workers:    DefaultWorkers,
		JobTimeout: DefaultJobTimeout,
		Logger:     logger,
	}
}

// Result summarizes one Run.
type Result struct {
	Attempted  int                 // jobs handed to the executor
	Succeeded  int                 // jobs that rendered without error
	Failures   []*errors.PageError // failed jobs, ordered by page index
	Partitions int                 // partitions actually used
	Duration   time.Duration
}

// Failed returns the number of failed jobs.
func (r *Result) Failed() int { return len(r.Failures) }

// FailedIndices returns the page indices of the failed jobs.
func (r *Result) FailedIndices() []int {
	out := make([]int, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Index
	}
	return out
}

// Err returns nil if every job succeeded and an error summarizing the
// failures otherwise.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return errors.Wrap(errors.ErrCodeRenderFailed, r.Failures[0],
		"%d of %d pages failed to export", len(r.Failures), r.Attempted)
}

// Run renders all jobs and blocks until every partition is done.
//
// Run itself never fails: per-job errors are collected in the result. If
// ctx is cancelled, jobs that have not started yet are recorded as failed
// with the context error.
func (e *Executor) Run(ctx context.Context, jobs []render.Job) *Result {
	start := time.Now()
	parts := Partition(jobs, e.workers())
	res := &Result{Attempted: len(jobs), Partitions: len(parts)}
	if len(jobs) == 0 {
		res.Partitions = 0
		return res
	}

	e.logger().Debug("executing", "jobs", len(jobs), "partitions", len(parts))

	// One slot per partition; each goroutine writes only its own slot.
	failures := make([][]*errors.PageError, len(parts))
	var g errgroup.Group
	for i, part := range parts {
		g.Go(func() error {
			failures[i] = e.runPartition(ctx, part)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failures {
		res.Failures = append(res.Failures, f...)
	}
	sort.Slice(res.Failures, func(a, b int) bool {
		return res.Failures[a].Index < res.Failures[b].Index
	})
	res.Succeeded = res.Attempted - len(res.Failures)
	res.Duration = time.Since(start)
	return res
}

func (e *Executor) runPartition(ctx context.Context, jobs []render.Job) []*errors.PageError {
	var failed []*errors.PageError
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			failed = append(failed, pageError(job, err))
			continue
		}
		if err := e.runJob(ctx, job); err != nil {
			failed = append(failed, pageError(job, err))
		}
	}
	return failed
}

func (e *Executor) runJob(ctx context.Context, job render.Job) (err error) {
	hooks := observability.Jobs()
	hooks.OnJobStart(ctx, job.Document, job.Page.Index)
	start := time.Now()

	if timeout := e.jobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeInternal, "renderer panic: %v", r)
		}
		elapsed := time.Since(start)
		hooks.OnJobComplete(ctx, job.Document, job.Page.Index, elapsed, err)
		if err != nil {
			e.logger().Warn("export failed", "page", job.Page.Index, "name", job.Page.Name, "err", errors.UserMessage(err))
			return
		}
		e.logger().Info("exported", "page", job.Page.Index, "name", job.Page.Name,
			"time", fmt.Sprintf("%.2fs", elapsed.Seconds()))
	}()

	return e.Renderer.Render(ctx, job)
}

func pageError(job render.Job, err error) *errors.PageError {
	return &errors.PageError{Index: job.Page.Index, Name: job.Page.Name, Err: err}
}

func (e *Executor) workers() int {
	if e.Workers < 1 {
		return DefaultWorkers
	}
	return e.Workers
}

func (e *Executor) jobTimeout() time.Duration {
	if e.JobTimeout == 0 {
		return DefaultJobTimeout
	}
	return e.JobTimeout
}

var discard = log.NewWithOptions(io.Discard, log.Options{})

func (e *Executor) logger() *log.Logger {
	if e.Logger == nil {
		return discard
	}
	return e.Logger
}
