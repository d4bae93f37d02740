package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/msgcluster/internal/cluster"
)

func TestClusterObserverPublishesDispatches(t *testing.T) {
	hub := NewHub(16)
	reg := cluster.NewRegistry("observed")
	root, err := reg.NewRoot()
	require.NoError(t, err)
	obj := root.AsObject()
	obj.SetObserver(NewClusterObserver(hub, "observed"))

	obj.Listen("ping", func(*cluster.Call) (any, error) { return nil, nil })
	require.NoError(t, obj.Emit("ping"))

	obj.Compute("score", func(c *cluster.Call) (any, error) { return c.Value.(int) + 1, nil })
	v, err := obj.Calculate("score", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	boom := errors.New("boom")
	obj.Listen("fail", func(*cluster.Call) (any, error) { return nil, boom })
	require.ErrorIs(t, obj.Emit("fail"), boom)

	evs := hub.Since(0)
	require.Len(t, evs, 3)
	assert.Equal(t, "dispatch.event", evs[0].Type)
	assert.Equal(t, "dispatch.calculation", evs[1].Type)

	var d Dispatch
	require.NoError(t, json.Unmarshal(evs[0].Data, &d))
	assert.Equal(t, Dispatch{Cluster: "observed", Key: "ping", TargetType: cluster.RootType, Handled: 1}, d)

	require.NoError(t, json.Unmarshal(evs[2].Data, &d))
	assert.Equal(t, "fail", d.Key)
	assert.Equal(t, 0, d.Handled)
	assert.Contains(t, d.Error, "boom")
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "dispatch.override", EventType(cluster.Overrides))
}
