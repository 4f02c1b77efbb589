package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drawsync/pkg/document"
	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/manifest"
	"github.com/matzehuels/drawsync/pkg/pipeline"
	"github.com/matzehuels/drawsync/pkg/plan"
)

// pageRow is one line of the pages table and the page picker.
type pageRow struct {
	Index  int
	Name   string
	Hash   string
	Path   string
	Status string // statusSynced, statusChanged, statusNew or statusInvalid
}

// pagesOpts holds the command-line flags for the pages command.
type pagesOpts struct {
	output string
	format string
	store  storeOpts
}

// pagesCommand creates the pages command.
func (c *CLI) pagesCommand() *cobra.Command {
	opts := pagesOpts{format: pipeline.DefaultFormat}

	cmd := &cobra.Command{
		Use:   "pages <document>",
		Short: "List the pages of a document and their sync status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				if cfg, err := c.loadConfig(); err == nil && cfg.Format != "" {
					opts.format = cfg.Format
				}
			}
			return c.runPages(cmd.Context(), cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output folder used to compute status (default: the document's folder)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format used to compute status")
	cmd.Flags().StringVar(&opts.store.target, "store", "", "manifest store: file (default), none, redis://..., mongodb://...")

	return cmd
}

func (c *CLI) runPages(ctx context.Context, cmd *cobra.Command, doc string, opts *pagesOpts) error {
	runner, err := c.newRunner(ctx, opts.store, "")
	if err != nil {
		return err
	}
	defer runner.Close()

	outDir := c.outputDir(doc, opts.output, cmd.Flags().Changed("output"))
	rows, err := c.loadPageRows(ctx, runner, doc, outDir, opts.format)
	if err != nil {
		return err
	}
	out := newPrinter(cmd.OutOrStdout())
	if len(rows) == 0 {
		out.info("%s has no pages", filepath.Base(doc))
		return nil
	}

	out.line(renderPageTable(rows))
	return nil
}

// loadPageRows reads the document and its manifest and computes the sync
// status of every page.
func (c *CLI) loadPageRows(ctx context.Context, runner *pipeline.Runner, doc, outDir, format string) ([]pageRow, error) {
	pages, m, err := runner.Pages(ctx, doc)
	if err != nil {
		return nil, err
	}
	return pageRows(doc, pages, m, outDir, format)
}

// pageRows plans an all-pages run without executing it: pages that would be
// exported are changed (or new, without a record), the rest are synced.
// Pages whose name cannot be used as a file name are listed as invalid.
func pageRows(doc string, pages []document.Page, m manifest.Manifest, outDir, format string) ([]pageRow, error) {
	valid := make([]document.Page, 0, len(pages))
	for _, pg := range pages {
		if errors.ValidatePageName(pg.Name) == nil {
			valid = append(valid, pg)
		}
	}

	p, err := plan.Build(plan.Input{
		Document:  doc,
		Pages:     valid,
		Selection: plan.All(),
		Previous:  m,
		OutputDir: outDir,
		Format:    format,
	})
	if err != nil {
		return nil, err
	}

	changed := make(map[int]bool, len(p.Jobs))
	for _, j := range p.Jobs {
		changed[j.Page.Index] = true
	}
	records := make(map[int]manifest.Page, len(p.Records))
	for _, rec := range p.Records {
		records[rec.Index] = rec
	}

	rows := make([]pageRow, len(pages))
	for i, pg := range pages {
		rec, ok := records[pg.Index]
		if !ok {
			rows[i] = pageRow{Index: pg.Index, Name: pg.Name, Status: statusInvalid}
			continue
		}
		status := statusSynced
		switch {
		case m.Get(rec.Index) == nil:
			status = statusNew
		case changed[rec.Index]:
			status = statusChanged
		}
		rows[i] = pageRow{
			Index:  rec.Index,
			Name:   rec.Name,
			Hash:   rec.Hash,
			Path:   rec.Path,
			Status: status,
		}
	}
	return rows, nil
}

// renderPageTable renders rows as a bordered table.
func renderPageTable(rows []pageRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			fmt.Sprintf("%d", r.Index),
			r.Name,
			shortHash(r.Hash),
			renderStatus(r.Status),
			r.Path,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Page", "Hash", "Status", "Output").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if col == 2 || col == 4 {
				return base.Foreground(colorDim)
			}
			return base
		})

	return t.Render()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
