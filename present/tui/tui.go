// Package tui is an interactive terminal view of a displayed tree.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/present"
)

// BatchMsg delivers a batch to the model.
type BatchMsg struct {
	Batch *engine.Batch
}

// ErrMsg reports the failure of whatever feeds the model.
type ErrMsg struct {
	Err error
}

type styles struct {
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	changed  lipgloss.Style
	missing  lipgloss.Style
	unrec    lipgloss.Style
	selected lipgloss.Style
	footer   lipgloss.Style
	err      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4A5C8A")),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("#80D8EC")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("#C6C62E")),
		changed:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#08C410")),
		missing:  lipgloss.NewStyle().Faint(true),
		unrec:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00C4")),
		selected: lipgloss.NewStyle().Reverse(true),
		footer:   lipgloss.NewStyle().Faint(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("#C48080")),
	}
}

// Model is a bubbletea model over a present.Tree.
type Model struct {
	tree   *present.Tree
	title  string
	styles styles
	width  int
	err    error
	last   *engine.Batch
}

func New(title string) Model {
	return Model{
		tree:   present.NewTree(),
		title:  title,
		styles: defaultStyles(),
	}
}

func (m Model) Tree() *present.Tree { return m.tree }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case BatchMsg:
		if err := m.tree.Apply(msg.Batch); err != nil {
			m.err = err
			return m, nil
		}
		m.last = msg.Batch
		m.err = nil
	case ErrMsg:
		m.err = msg.Err
	case tea.WindowSizeMsg:
		m.width = msg.Width
		// header and footer
		m.tree.SetHeight(max(1, msg.Height-2))
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.tree.Move(-1)
		case "down", "j":
			m.tree.Move(1)
		case "pgup":
			m.tree.Move(-10)
		case "pgdown":
			m.tree.Move(10)
		case "home", "g":
			m.tree.Move(-len(m.tree.Rows()))
		case "end", "G":
			m.tree.Move(len(m.tree.Rows()))
		case "enter", " ", "space":
			m.tree.Toggle()
		case "right", "l":
			if r, ok := m.tree.Selected(); ok && !r.Leaf {
				m.tree.Expand(r.Path)
			}
		case "left", "h":
			if r, ok := m.tree.Selected(); ok && !r.Leaf {
				m.tree.Collapse(r.Path)
			}
		case "E":
			m.tree.ExpandAll()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var buf strings.Builder
	buf.WriteString(m.styles.header.Render(m.headerLine()))
	buf.WriteByte('\n')
	rows := m.tree.Window()
	cursor := m.tree.Cursor() - m.tree.Offset()
	for i, r := range rows {
		line := m.row(r)
		if i == cursor {
			line = m.styles.selected.Render(line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if m.err != nil {
		buf.WriteString(m.styles.err.Render(m.err.Error()))
	} else {
		buf.WriteString(m.styles.footer.Render("↑/↓ move  enter toggle  E expand all  q quit"))
	}
	return buf.String()
}

func (m Model) headerLine() string {
	if m.last == nil {
		return m.title + "  waiting for data"
	}
	s := fmt.Sprintf("%s  #%d  %s", m.title, m.last.Seq, m.last.Time.Format("15:04:05.000"))
	if n := len(m.last.Missing); n != 0 {
		s += fmt.Sprintf("  %d missing", n)
	}
	return s
}

func (m Model) row(r present.Row) string {
	marker := "  "
	if !r.Leaf {
		marker = "▸ "
		if r.Expanded {
			marker = "▾ "
		}
	}
	value := m.styles.value
	switch {
	case r.Missing:
		value = m.styles.missing
	case r.Unrecognized:
		value = m.styles.unrec
	case r.Changed:
		value = m.styles.changed
	}
	line := strings.Repeat("  ", r.Depth) + marker + m.styles.label.Render(r.Label) + ": " + value.Render(r.Value)
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}

// Sink forwards batches to a running program.
type Sink struct {
	P *tea.Program
}

func (s Sink) Apply(b *engine.Batch) error {
	s.P.Send(BatchMsg{Batch: b})
	return nil
}
