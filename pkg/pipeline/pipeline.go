// Package pipeline provides the incremental page export pipeline for drawsync.
//
// This package wires the document reader, the planner, the executor and a
// manifest store into a single synchronous run that can be used by the CLI
// and by the HTTP trigger alike.
//
// # Stages
//
// One run consists of:
//
//  1. Read: parse the document into pages
//  2. Load: fetch the manifest of the previous run
//  3. Plan: fingerprint every page in scope and decide which pages changed
//  4. Execute: export the changed pages across a fixed number of workers
//  5. Save: persist the fresh records as the new manifest
//
// Any failure before Save leaves the stored manifest untouched. Pages whose
// export fails are still recorded, unless [Options.RetryFailed] is set.
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	page := 2
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Document: "diagrams/architecture.drawio",
//	    Page:     &page,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Exec.Succeeded, "pages exported")
package pipeline

import (
	"time"

	"github.com/matzehuels/drawsync/pkg/executor"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and HTTP trigger
// =============================================================================

const (
	// DefaultWorkers is the default number of export partitions.
	DefaultWorkers = executor.DefaultWorkers

	// DefaultFormat is the default output format.
	DefaultFormat = "png"

	// DefaultJobTimeout bounds a single page export.
	DefaultJobTimeout = executor.DefaultJobTimeout
)

// Manifest policies for single-page runs.
const (
	// PolicyMerge keeps the records of unselected pages.
	PolicyMerge = "merge"

	// PolicyReplace narrows the manifest to the selected page.
	PolicyReplace = "replace"
)

// DefaultManifestPolicy is the default manifest policy.
const DefaultManifestPolicy = PolicyMerge

// ValidManifestPolicies is the set of supported manifest policies.
var ValidManifestPolicies = map[string]bool{
	PolicyMerge:   true,
	PolicyReplace: true,
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outcome of a sync run.
type Result struct {
	// RunID identifies the run in logs and API responses.
	RunID string

	// Document is the absolute path of the source document.
	Document string

	// ManifestLocation is where the manifest is stored.
	ManifestLocation string

	// Pages is the number of pages in the document.
	Pages int

	// Jobs holds the planned exports, in document order.
	Jobs []render.Job

	// Skipped counts pages in scope that were unchanged.
	Skipped int

	// Exec is the executor outcome. It is empty for dry runs.
	Exec *executor.Result

	// Manifest is the manifest written at the end of the run (or, for a dry
	// run, the one that would have been written).
	Manifest manifest.Manifest

	// Saved reports whether Manifest was persisted.
	Saved bool

	// Stats contains timing information.
	Stats Stats
}

// Planned returns the number of planned jobs.
func (r *Result) Planned() int { return len(r.Jobs) }

// Stats contains pipeline execution statistics.
type Stats struct {
	ReadTime    time.Duration
	PlanTime    time.Duration
	ExecuteTime time.Duration
	SaveTime    time.Duration
	Total       time.Duration
}
