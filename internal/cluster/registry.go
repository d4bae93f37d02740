package cluster

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mattjoyce/msgcluster/internal/log"
)

// Registry maps type tags to node factories. One registry may serve any
// number of clusters; dispatch tables always stay per cluster.
type Registry struct {
	name      string
	forgiving bool
	types     map[int]Factory
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// Forgiving makes Create fall back to a generic Object for unbound tags
// instead of failing.
func Forgiving() RegistryOption { return func(r *Registry) { r.forgiving = true } }

// WithRootType binds RootType to factory.
func WithRootType(factory Factory) RegistryOption {
	return func(r *Registry) { r.types[RootType] = factory }
}

// WithLogger replaces the registry logger.
func WithLogger(l *slog.Logger) RegistryOption { return func(r *Registry) { r.logger = l } }

// NewRegistry creates a registry. RootType is bound to the plain Object
// unless WithRootType says otherwise.
func NewRegistry(name string, opts ...RegistryOption) *Registry {
	r := &Registry{
		name:  name,
		types: map[int]Factory{RootType: newPlainObject},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.WithComponent("registry").With("registry", name)
	}
	return r
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// IsForgiving reports whether unknown tags degrade to generic objects.
func (r *Registry) IsForgiving() bool { return r.forgiving }

// Bind associates tag with factory, replacing any earlier binding.
func (r *Registry) Bind(tag int, factory Factory) {
	r.types[tag] = factory
}

// Bound reports whether tag has a factory.
func (r *Registry) Bound(tag int) bool {
	_, ok := r.types[tag]
	return ok
}

// Tags returns the bound tags in ascending order.
func (r *Registry) Tags() []int {
	tags := make([]int, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// With adapts a typed configure func for Create and friends. It is skipped
// when the node is not a T.
func With[T Node](fn func(T)) func(Node) {
	return func(n Node) {
		if v, ok := n.(T); ok {
			fn(v)
		}
	}
}

// Create builds a node of type tag under parent (nil for a new root).
// configure funcs run before the node's Init and PostInit hooks.
func (r *Registry) Create(tag int, parent Node, configure ...func(Node)) (Node, error) {
	factory, ok := r.types[tag]
	if !ok {
		if !r.forgiving {
			return nil, fmt.Errorf("registry %q: type %d: %w", r.name, tag, ErrUnregisteredType)
		}
		if tag != UnknownType {
			r.logger.Warn("unknown object type", "type", tag)
		}
		return construct(newPlainObject, UnknownType, parent, r, configure), nil
	}
	return construct(factory, tag, parent, r, configure), nil
}

// CreateAndInsert builds a node under parent and stores it as child id.
func (r *Registry) CreateAndInsert(tag int, parent Node, id string, configure ...func(Node)) (Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("insert %q: %w", id, ErrNoParent)
	}
	n, err := r.Create(tag, parent, configure...)
	if err != nil {
		return nil, err
	}
	return parent.AsObject().AddChild(id, n)
}

// CreateAs is CreateAndInsert for callers that know the concrete type.
func CreateAs[T Node](r *Registry, tag int, parent Node, id string, configure ...func(Node)) (T, error) {
	var zero T
	n, err := r.CreateAndInsert(tag, parent, id, configure...)
	if err != nil {
		return zero, err
	}
	v, ok := n.(T)
	if !ok {
		parent.AsObject().RemoveChild(id)
		return zero, fmt.Errorf("create %q as %T (got %T): %w", id, zero, n, ErrTypeMismatch)
	}
	return v, nil
}

// NewRoot creates a cluster root of RootType with r attached.
func (r *Registry) NewRoot() (Node, error) {
	return r.Create(RootType, nil)
}

// NewRootOf creates a cluster root built from the factory bound to tag.
func (r *Registry) NewRootOf(tag int) (Node, error) {
	return r.Create(tag, nil)
}

// Temporary inserts a fresh node under parent for the duration of fn. The
// node is removed and cleaned up when fn returns, fails or panics.
func (r *Registry) Temporary(tag int, parent Node, fn func(Node) error, configure ...func(Node)) error {
	id := "_temp_" + uuid.NewString()
	n, err := r.CreateAndInsert(tag, parent, id, configure...)
	if err != nil {
		return err
	}
	defer parent.AsObject().RemoveChild(id)
	return fn(n)
}

// Unwrap rebuilds a tree from w. The new node is created under parent (nil
// for a new root) and carries r as its registry.
func (r *Registry) Unwrap(w Wrapped, parent Node) (Node, error) {
	n, err := r.Create(w.Type, parent)
	if err != nil {
		return nil, err
	}
	n.AsObject().registry = r
	if err := n.AsObject().Unwrap(w); err != nil {
		return nil, err
	}
	return n, nil
}
