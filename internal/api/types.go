package api

import (
	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/snapshot"
)

// DispatchRequest is the optional JSON body for POST /emit/{key} and
// POST /calculate/{key}. Initial is only used by calculations.
type DispatchRequest struct {
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Initial any            `json:"initial,omitempty"`
}

// EmitResponse is returned by POST /emit/{key}.
type EmitResponse struct {
	Key       string `json:"key"`
	Listeners int    `json:"listeners"`
}

// CalculateResponse is returned by POST /calculate/{key}.
type CalculateResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// SubscriberResponse describes one subscription in GET /subscribers.
type SubscriberResponse struct {
	SubscriberType int     `json:"subscriber_type"`
	Limit          int     `json:"limit"`
	Priority       float64 `json:"priority"`
}

// SnapshotResponse is returned by GET /snapshots/{name} and restore.
type SnapshotResponse struct {
	Entry snapshot.Entry  `json:"entry"`
	Tree  cluster.Wrapped `json:"tree"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Cluster       string `json:"cluster,omitempty"`
	Nodes         int    `json:"nodes"`
}
