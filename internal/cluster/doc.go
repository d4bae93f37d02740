// Package cluster implements a tree of message objects that share one set of
// dispatch tables per tree.
//
// The parentless node of a tree (the cluster root) owns three tables: events
// ([Object.Emit]), calculations ([Object.Calculate]) and method overrides
// ([Object.RunReplace]). Every other node reaches them by walking up to its
// root. Subscriptions made by handlers while a dispatch pass is running are
// deferred through an [actionlock.Lock] until the outermost pass returns.
//
// A [Registry] maps integer type tags to node factories and drives
// serialization: [Object.Wrap] snapshots a subtree into a [Wrapped] record and
// [Registry.Unwrap] / [Object.Unwrap] rebuild or merge it back.
package cluster
