package render

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/drawsync/pkg/errors"
)

// DefaultBinary is the executable name of the draw.io desktop CLI.
const DefaultBinary = "drawio"

const (
	// maxStderr bounds how much exporter output is kept in an error message.
	maxStderr = 2048

	// waitDelay bounds how long output pipes may stay open after the
	// exporter is killed (drawio spawns helper processes).
	waitDelay = 2 * time.Second
)

// Drawio renders pages by running the draw.io desktop CLI once per job.
type Drawio struct {
	Binary string      // executable name or path; DefaultBinary if empty
	Logger *log.Logger // optional
}

// NewDrawio creates a Drawio renderer for the given binary.
func NewDrawio(binary string, logger *log.Logger) *Drawio {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Drawio{Binary: binary, Logger: logger}
}

// Check verifies that the exporter binary can be found.
func (d *Drawio) Check() error {
	if _, err := exec.LookPath(d.binary()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err,
			"drawio export requires the draw.io desktop CLI (%s); install it or set --drawio-bin", d.binary())
	}
	return nil
}

// Render runs the exporter for job and waits for it to exit.
// A non-zero exit status or a context deadline is returned as an error.
func (d *Drawio) Render(ctx context.Context, job Job) error {
	if err := os.MkdirAll(filepath.Dir(job.Page.Path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create output directory")
	}

	args := job.Args()
	cmd := exec.CommandContext(ctx, d.binary(), args...)
	var errBuf bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &errBuf
	cmd.WaitDelay = waitDelay

	if d.Logger != nil {
		d.Logger.Debug("exec", "cmd", d.binary()+" "+strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		if goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "drawio timed out")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeRenderFailed, err, "drawio%s", stderrSuffix(errBuf.String()))
	}
	return nil
}

func (d *Drawio) binary() string {
	if d.Binary == "" {
		return DefaultBinary
	}
	return d.Binary
}

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return fmt.Sprintf(": %s", s)
}

// Ensure Drawio implements Renderer.
var _ Renderer = (*Drawio)(nil)
