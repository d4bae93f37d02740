package events

import (
	"github.com/mattjoyce/msgcluster/internal/cluster"
)

// Dispatch is the payload published for every finished dispatch pass.
type Dispatch struct {
	Cluster    string `json:"cluster,omitempty"`
	Key        string `json:"key"`
	TargetType int    `json:"target_type"`
	Handled    int    `json:"handled"`
	Error      string `json:"error,omitempty"`
}

// EventType maps a dispatch kind to the published event type.
func EventType(kind cluster.Kind) string {
	return "dispatch." + kind.String()
}

// ClusterObserver publishes cluster dispatch passes to a Hub.
type ClusterObserver struct {
	hub  *Hub
	name string
}

func NewClusterObserver(hub *Hub, clusterName string) *ClusterObserver {
	return &ClusterObserver{hub: hub, name: clusterName}
}

func (o *ClusterObserver) Observe(ob cluster.Observation) {
	d := Dispatch{
		Cluster: o.name,
		Key:     ob.Key,
		Handled: ob.Handled,
	}
	if ob.Target != nil {
		d.TargetType = ob.Target.AsObject().Type()
	}
	if ob.Err != nil {
		d.Error = ob.Err.Error()
	}
	o.hub.Publish(EventType(ob.Kind), d)
}

var _ cluster.Observer = (*ClusterObserver)(nil)
