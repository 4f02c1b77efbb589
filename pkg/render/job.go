package render

import (
	"context"
	"strconv"

	"github.com/matzehuels/drawsync/pkg/manifest"
)

// Job is one unit of work: export one page to one output file.
type Job struct {
	Document string        // path of the source document
	Page     manifest.Page // page record; Page.Path is the output file
	Format   string        // output format (png, svg, pdf, ...)
	Extra    []string      // arguments passed verbatim to the exporter
}

// Renderer exports a single page.
// Implementations must be safe for concurrent use by multiple workers, as
// long as each call writes a distinct output path.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// Func adapts an ordinary function to the Renderer interface.
type Func func(ctx context.Context, job Job) error

// Render calls f(ctx, job).
func (f Func) Render(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Args returns the drawio command line arguments for j.
// The drawio CLI numbers pages from 1, so the page index is shifted by one.
func (j Job) Args() []string {
	args := []string{
		"-x", j.Document,
		"-o", j.Page.Path,
		"-p", strconv.Itoa(j.Page.Index + 1),
		"-f", j.Format,
	}
	return append(args, j.Extra...)
}
