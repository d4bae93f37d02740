package treeview

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/msgcluster/internal/cluster"
)

func leaf(tag int, payload any) cluster.Wrapped {
	return cluster.Wrapped{Type: tag, Payload: payload, Children: map[string]cluster.Wrapped{}}
}

func sampleTree() cluster.Wrapped {
	return cluster.Wrapped{
		Type:    0,
		Payload: "root",
		Children: map[string]cluster.Wrapped{
			"b": leaf(2, map[string]any{"hp": 10}),
			"a": {
				Type:    1,
				Payload: nil,
				Children: map[string]cluster.Wrapped{
					"x": leaf(cluster.UnknownType, 3),
				},
			},
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func paths(m Model) []string {
	out := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.path)
	}
	return out
}

func TestFlattenSortedDepthFirst(t *testing.T) {
	m := New("tree", sampleTree(), nil)
	assert.Equal(t, []string{"/", "/a", "/a/x", "/b"}, paths(m))
	assert.Equal(t, []int{0, 1, 2, 1}, []int{m.rows[0].depth, m.rows[1].depth, m.rows[2].depth, m.rows[3].depth})
	assert.Len(t, m.table.Rows(), 4)
}

func TestMoveAndFold(t *testing.T) {
	m := New("tree", sampleTree(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	r, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "/a", r.path)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"/", "/a", "/b"}, paths(m))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"/", "/a", "/a/x", "/b"}, paths(m))
}

func TestFoldIgnoresLeaves(t *testing.T) {
	m := New("tree", sampleTree(), nil)
	for range 3 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	r, _ := m.selected()
	require.Equal(t, "/b", r.path)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.collapsed)
}

func TestViewShowsSelection(t *testing.T) {
	m := New("cluster", sampleTree(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	for range 3 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}

	view := m.View()
	assert.Contains(t, view, "cluster")
	assert.Contains(t, view, "Payload of /b")
	assert.Contains(t, view, "hp: 10")
	assert.NotContains(t, view, "[r] Reload")
}

func TestReload(t *testing.T) {
	calls := 0
	load := func() (cluster.Wrapped, error) {
		calls++
		if calls == 2 {
			return cluster.Wrapped{}, errors.New("offline")
		}
		return leaf(9, "fresh"), nil
	}

	m := New("tree", sampleTree(), load)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"/"}, paths(m))
	assert.Equal(t, 9, m.rows[0].node.Type)
	assert.Empty(t, m.status)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.status, "offline")
	assert.Contains(t, m.View(), "reload failed")
}

func TestQuit(t *testing.T) {
	m := New("tree", sampleTree(), nil)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "-", summarize(nil))
	assert.Equal(t, "7", summarize(7))
	long := summarize(string(make([]byte, 100)))
	assert.LessOrEqual(t, len(long), 40)
}
