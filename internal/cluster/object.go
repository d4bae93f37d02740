package cluster

import (
	"github.com/mattjoyce/msgcluster/internal/ordered"
)

const (
	// RootType is the tag registries bind to the cluster root type.
	RootType = 0
	// UnknownType tags nodes whose concrete type was lost. Registries create
	// a generic Object for it without logging.
	UnknownType = -1
)

// Node is implemented by every object in a cluster tree. Concrete types embed
// Object, which supplies the tree and dispatch behaviour; they override
// Payload and SetPayload to expose their serializable state.
type Node interface {
	AsObject() *Object
	Payload() any
	SetPayload(v any)
}

// Initializer is implemented by nodes that subscribe handlers while being
// constructed. Init runs once, after the factory and configure funcs.
type Initializer interface {
	Init()
}

// PostIniter is implemented by nodes that need a hook after Init, once the
// node is fully built. It runs exactly once per constructed node.
type PostIniter interface {
	PostInit()
}

// Factory builds a zero node of one concrete type.
type Factory func() Node

func newPlainObject() Node { return &Object{} }

// Object is the base node. The zero value is a detached root with no
// registry; use NewRoot or a Registry to build wired nodes.
type Object struct {
	self     Node
	parent   Node
	typeTag  int
	factory  Factory
	children ordered.Map[string, Node]
	payload  any
	registry *Registry

	// Only set on cluster roots.
	dispatch *tables
}

// NewRoot builds a plain cluster root with reg attached.
func NewRoot(reg *Registry) *Object {
	return construct(newPlainObject, RootType, nil, reg, nil).(*Object)
}

// construct runs the full constructor path: factory, wiring, configure
// funcs, then the Init and PostInit hooks.
func construct(factory Factory, tag int, parent Node, reg *Registry, configure []func(Node)) Node {
	n := factory()
	o := n.AsObject()
	o.self = n
	o.parent = parent
	o.typeTag = tag
	o.factory = factory
	if parent == nil {
		o.registry = reg
	}
	for _, fn := range configure {
		fn(n)
	}
	if in, ok := n.(Initializer); ok {
		in.Init()
	}
	if pi, ok := n.(PostIniter); ok {
		pi.PostInit()
	}
	return n
}

// AsObject returns o.
func (o *Object) AsObject() *Object { return o }

// Payload returns the value stored by SetPayload.
func (o *Object) Payload() any { return o.payload }

// SetPayload stores v as-is.
func (o *Object) SetPayload(v any) { o.payload = v }

// Node returns the outermost value o is embedded in.
func (o *Object) Node() Node {
	if o.self != nil {
		return o.self
	}
	return o
}

// Type returns the tag the node was created with.
func (o *Object) Type() int { return o.typeTag }

// Parent returns the parent node, or nil for a cluster root.
func (o *Object) Parent() Node { return o.parent }

// IsRoot reports whether o is a cluster root.
func (o *Object) IsRoot() bool { return o.parent == nil }

// Root walks parent links up to the cluster root.
func (o *Object) Root() Node {
	return o.rootObject().Node()
}

func (o *Object) rootObject() *Object {
	cur := o
	for cur.parent != nil {
		cur = cur.parent.AsObject()
	}
	return cur
}

// Registry returns the registry attached to o, or else its root's.
func (o *Object) Registry() *Registry {
	if o.registry != nil {
		return o.registry
	}
	return o.rootObject().registry
}

// Child returns the child stored under id.
func (o *Object) Child(id string) (Node, bool) {
	return o.children.Get(id)
}

// Children returns child ids in insertion order.
func (o *Object) Children() []string {
	return o.children.Keys()
}

// Len returns the number of children.
func (o *Object) Len() int { return o.children.Len() }
