package cluster

import "errors"

var (
	// ErrForeignSubtree is returned when a child from another tree is added
	// without AddForeignChild.
	ErrForeignSubtree = errors.New("child belongs to a different cluster")
	// ErrUnregisteredType is returned by a strict registry for unbound tags.
	ErrUnregisteredType = errors.New("object type is not registered")
	// ErrNoRegistry is returned when a tree needs a registry and has none.
	ErrNoRegistry = errors.New("cluster has no registry")
	// ErrNoParent is returned when an operation needs a parent the node lacks.
	ErrNoParent = errors.New("object has no parent")
	// ErrTypeMismatch is returned by CreateAs when the created node is not
	// of the requested Go type.
	ErrTypeMismatch = errors.New("created object has unexpected type")
)

// Fizzle is returned by an override callback to decline a call. The next
// override (or the original method) is tried instead, and the declining
// override keeps its remaining limit. It is a control value, not a failure.
var Fizzle = errors.New("override fizzled")
