// Package observability provides hooks for metrics, tracing, and logging.
//
// The sync pipeline emits events at a few well-defined points: the start
// and end of a run, each render job, and each manifest load and save.
// Consumers register hooks at startup to receive them; without
// registration every hook is a no-op.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetJobHooks(&myJobHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Jobs().OnJobStart(ctx, document, index)
//	// ... render ...
//	observability.Jobs().OnJobComplete(ctx, document, index, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events for whole sync runs.
type PipelineHooks interface {
	// OnRunStart is called once the run's options are validated.
	OnRunStart(ctx context.Context, runID, document string)

	// OnRunComplete is called when the run ends, successfully or not.
	// planned is the number of jobs, failed the number of failed jobs.
	OnRunComplete(ctx context.Context, runID, document string, planned, failed int, duration time.Duration, err error)
}

// =============================================================================
// Job Hooks
// =============================================================================

// JobHooks receives events for individual page exports.
// Hooks are called concurrently from executor workers.
type JobHooks interface {
	OnJobStart(ctx context.Context, document string, index int)
	OnJobComplete(ctx context.Context, document string, index int, duration time.Duration, err error)
}

// =============================================================================
// Manifest Hooks
// =============================================================================

// ManifestHooks receives events from manifest stores.
type ManifestHooks interface {
	// OnManifestLoad records a load; pages is the number of records found.
	OnManifestLoad(ctx context.Context, location string, pages int, err error)

	// OnManifestSave records a save.
	OnManifestSave(ctx context.Context, location string, pages int, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRunStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnRunComplete(context.Context, string, string, int, int, time.Duration, error) {
}

// NoopJobHooks is a no-op implementation of JobHooks.
type NoopJobHooks struct{}

func (NoopJobHooks) OnJobStart(context.Context, string, int)                           {}
func (NoopJobHooks) OnJobComplete(context.Context, string, int, time.Duration, error) {}

// NoopManifestHooks is a no-op implementation of ManifestHooks.
type NoopManifestHooks struct{}

func (NoopManifestHooks) OnManifestLoad(context.Context, string, int, error) {}
func (NoopManifestHooks) OnManifestSave(context.Context, string, int, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	jobHooks      JobHooks      = NoopJobHooks{}
	manifestHooks ManifestHooks = NoopManifestHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any sync runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetJobHooks registers custom job hooks.
func SetJobHooks(h JobHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		jobHooks = h
	}
}

// SetManifestHooks registers custom manifest hooks.
func SetManifestHooks(h ManifestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		manifestHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Jobs returns the registered job hooks.
func Jobs() JobHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return jobHooks
}

// Manifest returns the registered manifest hooks.
func Manifest() ManifestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return manifestHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	jobHooks = NoopJobHooks{}
	manifestHooks = NoopManifestHooks{}
}
