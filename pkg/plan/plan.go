// Package plan decides which pages of a document must be exported.
//
// Build takes the pages read from the document, the page selection, the
// force flag and the manifest of the previous run, and returns one
// [render.Job] per page that needs exporting together with the fresh
// records of every page in scope.
package plan

import (
	"path/filepath"

	"github.com/matzehuels/drawsync/pkg/document"
	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/fingerprint"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/render"
)

// Selection chooses the pages a run considers: all pages, or exactly one.
// The zero value selects nothing and is rejected by [Build].
type Selection struct {
	All  bool
	Page *int
}

// All selects every page of the document.
func All() Selection { return Selection{All: true} }

// Single selects the page at index.
func Single(index int) Selection { return Selection{Page: &index} }

// IsSingle reports whether exactly one page is selected.
func (s Selection) IsSingle() bool { return !s.All && s.Page != nil }

// Validate checks that exactly one of All and Single was requested.
// The index itself is checked against the document by [Build].
func (s Selection) Validate() error {
	switch {
	case s.All && s.Page != nil:
		return errors.New(errors.ErrCodeInvalidSelection, "select either all pages or one page, not both")
	case !s.All && s.Page == nil:
		return errors.New(errors.ErrCodeInvalidSelection, "no pages selected: choose all pages or a specific page")
	}
	return nil
}

// Input bundles everything Build needs.
type Input struct {
	Document  string          // source document path
	Pages     []document.Page // pages in document order
	Selection Selection
	Force     bool              // export every selected page regardless of the manifest
	Previous  manifest.Manifest // manifest of the last run; nil means empty
	OutputDir string            // empty means the document's directory
	Format    string            // output format and file extension
	Extra     []string          // passed verbatim to the renderer
}

// Plan is the outcome of Build.
type Plan struct {
	// Jobs holds one job per page to export, in document order.
	Jobs []render.Job
	// Records holds the fresh record of every page in scope, in document
	// order, whether or not it is exported.
	Records []manifest.Page
	// Skipped counts pages in scope that are unchanged.
	Skipped int
}

// Build validates the selection, narrows the page set, computes fresh
// records and emits a job for every page that is forced or changed.
//
// It fails with INVALID_SELECTION when the selection is missing or
// ambiguous, UNKNOWN_PAGE when a single selected page does not exist,
// DOCUMENT_PARSE when a page in scope has a name that cannot be used as a
// file name, and INVALID_INPUT when two pages in scope would export to the
// same file. Pages outside the selection are not checked.
func Build(in Input) (*Plan, error) {
	if err := in.Selection.Validate(); err != nil {
		return nil, err
	}
	if err := errors.ValidateFormat(in.Format); err != nil {
		return nil, err
	}

	candidates := in.Pages
	if in.Selection.IsSingle() {
		idx := *in.Selection.Page
		p, ok := find(in.Pages, idx)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownPage,
				"page %d not found (document has %d pages)", idx, len(in.Pages))
		}
		candidates = []document.Page{p}
	}

	outDir, err := outputDir(in.Document, in.OutputDir)
	if err != nil {
		return nil, err
	}

	prev := in.Previous
	if prev == nil {
		prev = manifest.New()
	}

	p := &Plan{Records: make([]manifest.Page, 0, len(candidates))}
	seen := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if err := errors.ValidatePageName(c.Name); err != nil {
			return nil, err
		}
		rec := manifest.Page{
			Index: c.Index,
			Name:  c.Name,
			Hash:  fingerprint.Compute(c.Content),
			Path:  filepath.Join(outDir, c.Name+"."+in.Format),
		}
		if other, dup := seen[rec.Path]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"pages %d and %d are both named %q and would overwrite %s", other, c.Index, c.Name, rec.Path)
		}
		seen[rec.Path] = c.Index
		p.Records = append(p.Records, rec)

		if in.Force || fingerprint.HasChanged(prev.Get(c.Index), rec) {
			p.Jobs = append(p.Jobs, render.Job{
				Document: in.Document,
				Page:     rec,
				Format:   in.Format,
				Extra:    in.Extra,
			})
		} else {
			p.Skipped++
		}
	}
	return p, nil
}

// Manifest returns the records of p as a manifest.
func (p *Plan) Manifest() manifest.Manifest {
	return manifest.FromPages(p.Records)
}

func find(pages []document.Page, index int) (document.Page, bool) {
	for _, p := range pages {
		if p.Index == index {
			return p, true
		}
	}
	return document.Page{}, false
}

// outputDir resolves the absolute output folder. An empty folder means
// "next to the document".
func outputDir(doc, dir string) (string, error) {
	if dir == "" {
		dir = filepath.Dir(doc)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve output folder %s", dir)
	}
	return abs, nil
}
