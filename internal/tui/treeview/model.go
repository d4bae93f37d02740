package treeview

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/msgcluster/internal/cluster"
)

// Loader fetches a fresh tree for the "r" key.
type Loader func() (cluster.Wrapped, error)

// row is one visible node of the flattened tree.
type row struct {
	path  string
	id    string
	depth int
	node  cluster.Wrapped
}

type reloadMsg struct {
	tree cluster.Wrapped
	err  error
}

// Model browses a wrapped tree: a table of nodes (indented by depth) over a
// viewport showing the selected node's payload.
type Model struct {
	title  string
	tree   cluster.Wrapped
	load   Loader
	theme  Theme
	status string

	width  int
	height int

	rows      []row
	collapsed map[string]bool

	table    table.Model
	viewport viewport.Model
}

// New builds a browser for tree. load may be nil, which disables reload.
func New(title string, tree cluster.Wrapped, load Loader) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 32},
			{Title: "Type", Width: 6},
			{Title: "Kids", Width: 5},
			{Title: "Payload", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		title:     title,
		tree:      tree,
		load:      load,
		theme:     NewDefaultTheme(),
		collapsed: make(map[string]bool),
		table:     t,
		viewport:  viewport.Model{Width: 80, Height: 8},
	}
	m.rebuild()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter", " ":
			if r, ok := m.selected(); ok && len(r.node.Children) > 0 {
				m.collapsed[r.path] = !m.collapsed[r.path]
				m.rebuild()
			}
			return m, nil
		case "r":
			if m.load == nil {
				return m, nil
			}
			load := m.load
			m.status = "reloading..."
			return m, func() tea.Msg {
				tree, err := load()
				return reloadMsg{tree: tree, err: err}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(max(m.width-6, 20))
		m.table.SetHeight(max(m.height/2, 3))
		m.viewport.Width = max(m.width-6, 20)
		m.viewport.Height = max(m.height/3, 3)

	case reloadMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.tree = msg.tree
		m.status = ""
		m.rebuild()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.syncViewport()
	return m, cmd
}

func (m Model) View() string {
	width := max(m.width-4, 40)

	nodes := m.theme.Border.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render(m.title),
			m.table.View(),
		),
	)

	heading := "Payload"
	if r, ok := m.selected(); ok {
		heading = "Payload of " + r.path
	}
	payload := m.theme.Border.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render(heading),
			m.viewport.View(),
		),
	)

	help := " [q] Quit • [↑/↓] Move • [enter] Fold"
	if m.load != nil {
		help += " • [r] Reload"
	}
	parts := []string{nodes, payload, m.theme.Dim.Render(help)}
	if m.status != "" {
		parts = append(parts, m.theme.Error.Render(m.status))
	}
	return lipgloss.NewStyle().Margin(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) selected() (row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return row{}, false
	}
	return m.rows[i], true
}

// rebuild flattens the tree, skipping collapsed subtrees, and refreshes the
// table and viewport.
func (m *Model) rebuild() {
	m.rows = nil
	m.flatten("", "/", 0, m.tree)

	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, m.tableRow(r))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
	m.syncViewport()
}

func (m *Model) flatten(id, path string, depth int, w cluster.Wrapped) {
	m.rows = append(m.rows, row{path: path, id: id, depth: depth, node: w})
	if m.collapsed[path] {
		return
	}
	ids := make([]string, 0, len(w.Children))
	for childID := range w.Children {
		ids = append(ids, childID)
	}
	slices.Sort(ids)
	for _, childID := range ids {
		m.flatten(childID, strings.TrimSuffix(path, "/")+"/"+childID, depth+1, w.Children[childID])
	}
}

func (m *Model) tableRow(r row) table.Row {
	marker := "  "
	if len(r.node.Children) > 0 {
		marker = "▾ "
		if m.collapsed[r.path] {
			marker = "▸ "
		}
	}
	name := r.id
	if r.depth == 0 {
		name = "(root)"
	}

	typ := strconv.Itoa(r.node.Type)
	if r.node.Type == cluster.UnknownType {
		typ = m.theme.Unknown.Render("?")
	}
	return table.Row{
		strings.Repeat("  ", r.depth) + marker + name,
		typ,
		strconv.Itoa(len(r.node.Children)),
		summarize(r.node.Payload),
	}
}

func (m *Model) syncViewport() {
	r, ok := m.selected()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(renderPayload(r.node.Payload))
	m.viewport.GotoTop()
}

func summarize(v any) string {
	if v == nil {
		return "-"
	}
	s := strings.Join(strings.Fields(fmt.Sprint(v)), " ")
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}

func renderPayload(v any) string {
	if v == nil {
		return "(no payload)"
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(string(out), "\n")
}
