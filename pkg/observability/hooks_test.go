package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnRunStart(ctx, "run-1", "arch.drawio")
	p.OnRunComplete(ctx, "run-1", "arch.drawio", 3, 1, time.Second, nil)

	j := NoopJobHooks{}
	j.OnJobStart(ctx, "arch.drawio", 0)
	j.OnJobComplete(ctx, "arch.drawio", 0, time.Second, errors.New("boom"))

	m := NoopManifestHooks{}
	m.OnManifestLoad(ctx, ".arch.drawio.sync.json", 2, nil)
	m.OnManifestSave(ctx, ".arch.drawio.sync.json", 2, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Jobs().(NoopJobHooks); !ok {
		t.Error("Jobs() should return NoopJobHooks by default")
	}
	if _, ok := Manifest().(NoopManifestHooks); !ok {
		t.Error("Manifest() should return NoopManifestHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customJobs := &testJobHooks{}
	SetJobHooks(customJobs)
	if Jobs() != customJobs {
		t.Error("SetJobHooks should set custom hooks")
	}

	customManifest := &testManifestHooks{}
	SetManifestHooks(customManifest)
	if Manifest() != customManifest {
		t.Error("SetManifestHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Jobs().(NoopJobHooks); !ok {
		t.Error("Reset() should restore NoopJobHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testJobHooks{}
	SetJobHooks(custom)
	SetJobHooks(nil)

	if Jobs() != custom {
		t.Error("SetJobHooks(nil) should be ignored")
	}

	Reset()
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testJobHooks struct{ NoopJobHooks }
type testManifestHooks struct{ NoopManifestHooks }
