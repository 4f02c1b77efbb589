package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/pipeline"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PageListModel - Interactive page selection
// =============================================================================

// PageListModel is the bubbletea model for interactive page selection.
type PageListModel struct {
	Title    string
	Pages    []pageRow
	Cursor   int
	Selected *pageRow
	Height   int
	Offset   int
}

// NewPageListModel creates a new page list model.
func NewPageListModel(title string, pages []pageRow) PageListModel {
	return PageListModel{
		Title:  title,
		Pages:  pages,
		Height: 15,
	}
}

func (m PageListModel) Init() tea.Cmd {
	return nil
}

func (m PageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Pages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Pages) == 0 {
				return m, tea.Quit
			}
			page := m.Pages[m.Cursor]
			m.Selected = &page
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m PageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Pages))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Pages[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, fmt.Sprintf("%d", p.Index), p.Name, renderStatus(p.Status)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Page", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Pages))))

	return b.String()
}

// pickPage shows the page picker and returns the chosen page index.
func (c *CLI) pickPage(ctx context.Context, runner *pipeline.Runner, doc, outDir, format string) (int, error) {
	rows, err := c.loadPageRows(ctx, runner, doc, outDir, format)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidSelection, "%s has no pages to choose from", filepath.Base(doc))
	}

	model := NewPageListModel("Select Page · "+filepath.Base(doc), rows)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("page picker: %w", err)
	}

	picked := final.(PageListModel).Selected
	if picked == nil {
		return 0, errors.New(errors.ErrCodeInvalidSelection, "no page selected")
	}
	return picked.Index, nil
}
