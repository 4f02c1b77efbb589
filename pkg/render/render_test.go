package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	dserrors "github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/manifest"
)

func TestJobArgs(t *testing.T) {
	j := Job{
		Document: "/d/arch.drawio",
		Page:     manifest.Page{Index: 0, Name: "Intro", Path: "/out/Intro.png"},
		Format:   "png",
		Extra:    []string{"--scale", "2", "--transparent"},
	}

	want := []string{"-x", "/d/arch.drawio", "-o", "/out/Intro.png", "-p", "1", "-f", "png", "--scale", "2", "--transparent"}
	got := j.Args()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestJobArgsDoesNotAliasExtra(t *testing.T) {
	extra := make([]string, 1, 4)
	extra[0] = "--crop"
	a := Job{Page: manifest.Page{Index: 1}, Format: "svg", Extra: extra}.Args()
	b := Job{Page: manifest.Page{Index: 2}, Format: "svg", Extra: extra}.Args()
	if a[5] != "2" || b[5] != "3" {
		t.Errorf("page args = %s, %s; want 2, 3", a[5], b[5])
	}
}

func TestFunc(t *testing.T) {
	called := false
	var r Renderer = Func(func(ctx context.Context, j Job) error {
		called = true
		if j.Page.Name != "Intro" {
			t.Errorf("job page = %q", j.Page.Name)
		}
		return nil
	})
	if err := r.Render(context.Background(), Job{Page: manifest.Page{Name: "Intro"}}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("Func was not called")
	}
}

// fakeDrawio writes an executable shell script standing in for drawio.
func fakeDrawio(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "drawio")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDrawioRender(t *testing.T) {
	// $4 is the output path (-x doc -o out ...).
	bin := fakeDrawio(t, `echo "$@" > "$4"`)
	out := filepath.Join(t.TempDir(), "nested", "Intro.png")

	d := NewDrawio(bin, nil)
	job := Job{Document: "doc.drawio", Page: manifest.Page{Index: 2, Name: "Intro", Path: out}, Format: "png"}
	if err := d.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "-x doc.drawio -o "+out+" -p 3 -f png" {
		t.Errorf("exporter args = %q", got)
	}
}

func TestDrawioRenderFailure(t *testing.T) {
	bin := fakeDrawio(t, `echo "export failed: no display" >&2; exit 3`)
	d := NewDrawio(bin, nil)

	err := d.Render(context.Background(), Job{Page: manifest.Page{Path: filepath.Join(t.TempDir(), "x.png")}, Format: "png"})
	if err == nil {
		t.Fatal("Render() expected error")
	}
	if !dserrors.Is(err, dserrors.ErrCodeRenderFailed) {
		t.Errorf("error code = %v, want RENDER_FAILED", dserrors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "no display") {
		t.Errorf("error should include stderr: %v", err)
	}
}

func TestDrawioRenderTimeout(t *testing.T) {
	bin := fakeDrawio(t, `exec sleep 5`)
	d := NewDrawio(bin, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Render(ctx, Job{Page: manifest.Page{Path: filepath.Join(t.TempDir(), "x.png")}, Format: "png"})
	if !dserrors.Is(err, dserrors.ErrCodeTimeout) {
		t.Errorf("Render() error = %v, want TIMEOUT", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout error should wrap context.DeadlineExceeded: %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("Render did not stop at the deadline")
	}
}

func TestDrawioCheck(t *testing.T) {
	if err := NewDrawio("drawsync-definitely-missing-binary", nil).Check(); err == nil {
		t.Error("Check() should fail for a missing binary")
	}
	bin := fakeDrawio(t, "exit 0")
	if err := NewDrawio(bin, nil).Check(); err != nil {
		t.Errorf("Check() error: %v", err)
	}
}

func TestStderrSuffix(t *testing.T) {
	if stderrSuffix("  ") != "" {
		t.Error("blank stderr should produce no suffix")
	}
	if got := stderrSuffix("boom\n"); got != ": boom" {
		t.Errorf("stderrSuffix() = %q", got)
	}
	long := stderrSuffix(strings.Repeat("x", maxStderr+10))
	if !strings.HasSuffix(long, "...") || len(long) != maxStderr+5 {
		t.Errorf("long stderr not truncated: len=%d", len(long))
	}
}
