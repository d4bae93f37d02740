package cluster

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictRegistryRejectsUnknownType(t *testing.T) {
	reg := NewRegistry("strict")
	tree := NewRoot(reg)

	_, err := reg.Create(42, tree)
	require.ErrorIs(t, err, ErrUnregisteredType)
	_, err = reg.CreateAndInsert(42, tree, "x")
	require.ErrorIs(t, err, ErrUnregisteredType)
	assert.Equal(t, 0, tree.Len())
}

func TestForgivingRegistryFallsBackAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := NewRegistry("forgiving", Forgiving(), WithLogger(logger))
	assert.True(t, reg.IsForgiving())
	tree := NewRoot(reg)

	n, err := reg.CreateAndInsert(42, tree, "x")
	require.NoError(t, err)
	assert.IsType(t, &Object{}, n)
	assert.Equal(t, UnknownType, n.AsObject().Type())
	assert.Contains(t, buf.String(), "unknown object type")
	assert.Contains(t, buf.String(), `"type":42`)

	buf.Reset()
	_, err = reg.CreateAndInsert(UnknownType, tree, "y")
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "the unknown-type sentinel is silent")
}

func TestBindAndTags(t *testing.T) {
	reg := NewRegistry("tags")
	reg.Bind(7, newCounter)
	reg.Bind(3, newGreeter)

	assert.True(t, reg.Bound(RootType))
	assert.True(t, reg.Bound(7))
	assert.False(t, reg.Bound(8))
	assert.Equal(t, []int{0, 3, 7}, reg.Tags())
	assert.Equal(t, "tags", reg.Name())

	n, err := reg.Create(7, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n.AsObject().Type())
	assert.True(t, n.AsObject().IsRoot())
	assert.Same(t, reg, n.AsObject().Registry())
}

func TestWithRootType(t *testing.T) {
	reg := NewRegistry("roots", WithRootType(newGreeter))
	root, err := reg.NewRoot()
	require.NoError(t, err)
	g, ok := root.(*greeter)
	require.True(t, ok)

	require.NoError(t, g.Emit("hello"))
	assert.Equal(t, 1, g.value)
}

func TestCreateAsTypeMismatch(t *testing.T) {
	reg := NewRegistry("cast")
	reg.Bind(1, newCounter)
	tree := NewRoot(reg)

	_, err := CreateAs[*greeter](reg, 1, tree, "c")
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, ok := tree.Child("c")
	assert.False(t, ok)
}

func TestConfigureRunsBeforeInit(t *testing.T) {
	reg := NewRegistry("configure")
	var seen []int
	reg.Bind(1, func() Node { return &configured{seen: &seen} })
	tree := NewRoot(reg)

	_, err := reg.CreateAndInsert(1, tree, "c", With(func(c *configured) { c.setting = 9 }))
	require.NoError(t, err)
	assert.Equal(t, []int{9, 9}, seen)
}

type configured struct {
	Object
	setting int
	seen    *[]int
}

func (c *configured) Init()     { *c.seen = append(*c.seen, c.setting) }
func (c *configured) PostInit() { *c.seen = append(*c.seen, c.setting) }

func TestTemporaryRemovesChildOnError(t *testing.T) {
	reg := NewRegistry("temporary")
	reg.Bind(1, newGreeter)
	tree := NewRoot(reg)

	var tmp *greeter
	boom := errors.New("boom")
	err := reg.Temporary(1, tree, func(n Node) error {
		tmp = n.(*greeter)
		assert.Equal(t, 1, tree.Len())
		id := tree.Children()[0]
		assert.True(t, strings.HasPrefix(id, "_temp_"))
		require.NoError(t, tree.Emit("hello"))
		assert.Equal(t, 1, tmp.value)
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 0, tree.Len())
	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 1, tmp.value, "subscriptions are gone after the scope")
}

func TestTemporaryRemovesChildOnPanic(t *testing.T) {
	reg := NewRegistry("temporary")
	reg.Bind(1, newGreeter)
	tree := NewRoot(reg)

	var tmp *greeter
	assert.Panics(t, func() {
		_ = reg.Temporary(1, tree, func(n Node) error {
			tmp = n.(*greeter)
			panic("scope failed")
		})
	})

	assert.Equal(t, 0, tree.Len())
	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 0, tmp.value)
}

func TestTemporaryIDsAreUnique(t *testing.T) {
	reg := NewRegistry("temporary")
	tree := NewRoot(reg)
	var ids []string
	for range 2 {
		_ = reg.Temporary(RootType, tree, func(Node) error {
			ids = append(ids, tree.Children()...)
			return nil
		})
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestAddChildRejectsForeignSubtree(t *testing.T) {
	reg := NewRegistry("foreign")
	reg.Bind(1, newGreeter)
	a := NewRoot(reg)
	b := NewRoot(reg)
	bChild, err := CreateAs[*greeter](reg, 1, b, "g")
	require.NoError(t, err)

	_, err = a.AddChild("stolen", bChild)
	require.ErrorIs(t, err, ErrForeignSubtree)

	a.AddForeignChild("imported", b)
	assert.Equal(t, []string{"imported"}, a.Children())

	// The grafted subtree still dispatches through its own root.
	require.NoError(t, a.Emit("hello"))
	assert.Equal(t, 0, bChild.value)
	require.NoError(t, b.Emit("hello"))
	assert.Equal(t, 1, bChild.value)

	// Cleanup follows ownership into the foreign subtree.
	a.Cleanup()
	require.NoError(t, b.Emit("hello"))
	assert.Equal(t, 1, bChild.value)
}

func TestRemoveChildCleansUpDescendants(t *testing.T) {
	reg := NewRegistry("remove")
	reg.Bind(1, newGreeter)
	tree := NewRoot(reg)
	mid, err := reg.CreateAndInsert(1, tree, "mid")
	require.NoError(t, err)
	leaf, err := CreateAs[*greeter](reg, 1, mid, "leaf")
	require.NoError(t, err)

	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 1, leaf.value)

	tree.RemoveChild("mid")
	tree.RemoveChild("absent")
	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 1, leaf.value)
	assert.Equal(t, 0, mid.AsObject().Len())
	assert.Same(t, tree, leaf.Root())
}

func TestCleanupDuringDispatchIsDeferred(t *testing.T) {
	reg := NewRegistry("cleanup")
	reg.Bind(1, newGreeter)
	tree := NewRoot(reg)
	g, err := CreateAs[*greeter](reg, 1, tree, "g")
	require.NoError(t, err)

	tree.Listen("hello", func(*Call) (any, error) {
		tree.RemoveChild("g")
		return nil, nil
	}, Priority(10))

	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 1, g.value, "removed node still runs in the current pass")
	require.NoError(t, tree.Emit("hello"))
	assert.Equal(t, 1, g.value)
}

func TestNewRootOf(t *testing.T) {
	reg := NewRegistry("root-of")
	reg.Bind(5, newGreeter)

	root, err := reg.NewRootOf(5)
	require.NoError(t, err)
	assert.True(t, root.AsObject().IsRoot())
	assert.Equal(t, 5, root.AsObject().Type())
	assert.Same(t, reg, root.AsObject().Registry())

	_, err = reg.NewRootOf(6)
	assert.ErrorIs(t, err, ErrUnregisteredType)
}
