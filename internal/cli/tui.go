package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/store"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	cellMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

// newTable returns a rounded table whose header row uses headerStyle and
// whose cells are styled by cell.
func newTable(headers []string, rows [][]string, cell func(row, col int) lipgloss.Style) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cellMuted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cell(row, col)
		})
}

// =============================================================================
// DocumentListModel - Interactive document selection
// =============================================================================

// DocumentListModel is the bubbletea model for picking a stored document.
type DocumentListModel struct {
	Entries  []store.Entry
	Cursor   int
	Selected *store.Entry
	Height   int
	Offset   int

	now time.Time
}

// NewDocumentListModel creates a new document list model.
func NewDocumentListModel(entries []store.Entry) DocumentListModel {
	return DocumentListModel{
		Entries: entries,
		Height:  15,
		now:     time.Now(),
	}
}

func (m DocumentListModel) Init() tea.Cmd {
	return nil
}

func (m DocumentListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Entries) == 0 {
				return m, nil
			}
			entry := m.Entries[m.Cursor]
			m.Selected = &entry
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m DocumentListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Document"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			e.Key,
			strconv.Itoa(e.Nodes),
			formatSize(e.Size),
			formatRelativeTime(e.Created, m.now),
		})
	}

	t := newTable([]string{"", "Key", "Nodes", "Size", "Stored"}, rows, func(row, col int) lipgloss.Style {
		selected := m.Offset+row == m.Cursor
		switch {
		case selected && col < 2:
			return lipgloss.NewStyle().Foreground(colorOK).Bold(true)
		case selected:
			return lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
		case col >= 2:
			return cellMuted
		}
		return lipgloss.NewStyle()
	})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}

// =============================================================================
// Tables
// =============================================================================

// recordTable renders one row per record of doc.
func recordTable(doc *record.Document) string {
	rows := make([][]string, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		creation := "—"
		if n.Creation != nil {
			creation = "✓"
		}
		influences := "—"
		if n.Influences != nil {
			influences = strconv.Itoa(n.Influences.Len())
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			n.Name,
			n.Type,
			creation,
			strconv.Itoa(len(n.Connections)),
			strconv.Itoa(len(n.Attributes)),
			influences,
		})
	}

	headers := []string{"#", "Node", "Type", "Creation", "Conns", "Attrs", "Influences"}
	return newTable(headers, rows, func(_, col int) lipgloss.Style {
		switch {
		case col == 0 || col >= 3:
			return cellMuted
		case col == 1:
			return StyleValue
		}
		return StyleHighlight
	}).Render()
}

// entryTable renders store entries.
func entryTable(entries []store.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, strconv.Itoa(e.Nodes), formatSize(e.Size), formatRelativeTime(e.Created, now), shortID(e.ID)})
	}
	return newTable([]string{"Key", "Nodes", "Size", "Stored", "Revision"}, rows, func(_, col int) lipgloss.Style {
		if col == 0 {
			return StyleValue
		}
		return cellMuted
	}).Render()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
