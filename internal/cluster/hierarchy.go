package cluster

import "fmt"

// AddChild stores child under id. The child must already belong to o's
// cluster; use AddForeignChild to graft a subtree from another tree.
// The child's parent link is left as constructed.
func (o *Object) AddChild(id string, child Node) (Node, error) {
	if child.AsObject().rootObject() != o.rootObject() {
		return nil, fmt.Errorf("add child %q: %w", id, ErrForeignSubtree)
	}
	o.children.Put(id, child)
	return child, nil
}

// AddForeignChild stores child under id without the same-cluster check.
// The subtree keeps dispatching through its own root.
func (o *Object) AddForeignChild(id string, child Node) Node {
	o.children.Put(id, child)
	return child
}

// RemoveChild detaches the child under id and cleans it up.
// Unknown ids are ignored.
func (o *Object) RemoveChild(id string) {
	child, ok := o.children.Get(id)
	if !ok {
		return
	}
	o.children.Remove(id)
	child.AsObject().Cleanup()
}

// Cleanup unsubscribes o from every table of its root, then cleans up and
// drops all children.
func (o *Object) Cleanup() {
	o.IgnoreAll()
	for _, child := range o.children.Snapshot() {
		child.Value.AsObject().Cleanup()
	}
	o.children.Clear()
}
