package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/pipeline"
)

// Palette
var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success, synced
	colorYellow = lipgloss.Color("220") // warnings, changed
	colorRed    = lipgloss.Color("167") // failures
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // labels
	colorDim    = lipgloss.Color("240") // muted
)

var (
	// StyleTitle for headings such as the page picker title.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for hashes, paths and other secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for counts and new pages.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for partial failures.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleOK      = lipgloss.NewStyle().Foreground(colorGreen)
	styleFail    = lipgloss.NewStyle().Foreground(colorRed)
	styleWarn    = lipgloss.NewStyle().Foreground(colorYellow)
	styleInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// Page sync states shown by the pages command and the picker.
const (
	statusSynced  = "synced"
	statusChanged = "changed"
	statusNew     = "new"
	statusInvalid = "invalid"
)

// renderStatus styles a page sync status.
func renderStatus(status string) string {
	switch status {
	case statusSynced:
		return styleOK.Render(status)
	case statusChanged:
		return styleWarn.Render(status)
	case statusInvalid:
		return styleFail.Render(status)
	default:
		return StyleNumber.Render(status)
	}
}

// =============================================================================
// Printer
// =============================================================================

// printer writes styled, line-oriented command output. Commands print to
// cmd.OutOrStdout() so tests can capture what the user sees; logs go to
// stderr through the CLI logger.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) success(format string, args ...any) {
	p.line(styleOK.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p *printer) failure(format string, args ...any) {
	p.line(styleFail.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (p *printer) warning(format string, args ...any) {
	p.line(styleWarn.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) info(format string, args ...any) {
	p.line(styleInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented, muted line.
func (p *printer) detail(format string, args ...any) {
	p.line("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints an output path.
func (p *printer) file(path string) {
	p.line("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func (p *printer) keyValue(key, value string) {
	p.line(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// nextStep suggests a follow-up command.
func (p *printer) nextStep(description, cmd string) {
	p.line(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Sync Summary
// =============================================================================

// syncResult prints one line per exported or failed page followed by a
// summary. Dry runs list the pages that would be exported.
func (p *printer) syncResult(res *pipeline.Result, dryRun bool) {
	name := filepath.Base(res.Document)

	if res.Planned() == 0 {
		p.success("%s is up to date (%d pages)", name, res.Pages)
		return
	}

	if dryRun {
		p.info("%s: %d of %d pages would be exported", name, res.Planned(), res.Pages)
		for _, j := range res.Jobs {
			p.file(j.Page.Path)
		}
		p.nextStep("Run without --dry-run to export", "drawsync sync "+res.Document)
		return
	}

	failed := make(map[int]error, res.Exec.Failed())
	for _, f := range res.Exec.Failures {
		failed[f.Index] = f.Err
	}
	for _, j := range res.Jobs {
		if err, ok := failed[j.Page.Index]; ok {
			p.failure("%s %s", j.Page.Name, StyleDim.Render(errors.UserMessage(err)))
			continue
		}
		p.file(j.Page.Path)
	}

	if res.Exec.Failed() > 0 {
		p.warning("%s: %d exported, %d failed", name, res.Exec.Succeeded, res.Exec.Failed())
	} else {
		p.success("%s: exported %d of %d pages", name, res.Exec.Succeeded, res.Pages)
	}
	p.stats(res)
}

// stats prints run statistics on a single muted line.
func (p *printer) stats(res *pipeline.Result) {
	parts := []string{fmt.Sprintf("%d unchanged", res.Skipped)}
	if res.Exec.Partitions > 0 {
		parts = append(parts, fmt.Sprintf("%d workers", res.Exec.Partitions))
	}
	parts = append(parts, res.Stats.Total.Round(time.Millisecond).String())
	p.line("  " + StyleDim.Render(strings.Join(parts, " · ")))
}
