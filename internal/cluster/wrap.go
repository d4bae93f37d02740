package cluster

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/jinzhu/copier"
)

// Wrapped is the serialized form of a subtree.
type Wrapped struct {
	Type     int                `json:"type" yaml:"type"`
	Payload  any                `json:"payload" yaml:"payload"`
	Children map[string]Wrapped `json:"children" yaml:"children"`
}

// Wrap snapshots o and its descendants.
func (o *Object) Wrap() Wrapped {
	w := Wrapped{
		Type:     o.typeTag,
		Payload:  o.Node().Payload(),
		Children: make(map[string]Wrapped, o.children.Len()),
	}
	for id, child := range o.children.All() {
		w.Children[id] = child.AsObject().Wrap()
	}
	return w
}

type unwrapItem struct {
	parent Node
	id     string
	w      Wrapped
}

func queueChildren(q []unwrapItem, parent Node, children map[string]Wrapped) []unwrapItem {
	ids := make([]string, 0, len(children))
	for id := range children {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		q = append(q, unwrapItem{parent: parent, id: id, w: children[id]})
	}
	return q
}

// Unwrap loads w into o: the payload is set, then children are walked
// breadth-first. Children whose id already exists are updated in place;
// missing ones are created through the registry.
func (o *Object) Unwrap(w Wrapped) error {
	self := o.Node()
	self.SetPayload(w.Payload)

	q := queueChildren(nil, self, w.Children)
	for len(q) > 0 {
		item := q[0]
		q = q[1:]

		parent := item.parent.AsObject()
		child, ok := parent.Child(item.id)
		if !ok {
			reg := o.Registry()
			if reg == nil {
				return fmt.Errorf("unwrap child %q: %w", item.id, ErrNoRegistry)
			}
			created, err := reg.Create(item.w.Type, item.parent)
			if err != nil {
				return fmt.Errorf("unwrap child %q: %w", item.id, err)
			}
			if child, err = parent.AddChild(item.id, created); err != nil {
				return err
			}
		}
		child.SetPayload(item.w.Payload)
		q = queueChildren(q, child, item.w.Children)
	}
	return nil
}

func (o *Object) clone(parent Node) (Node, error) {
	factory := o.factory
	if factory == nil {
		factory = newPlainObject
	}
	w, err := clonePayloads(o.Wrap())
	if err != nil {
		return nil, err
	}
	n := construct(factory, o.typeTag, parent, o.Registry(), nil)
	if err := n.AsObject().Unwrap(w); err != nil {
		return nil, err
	}
	return n, nil
}

// CopyInPlace clones o under the same parent, so the copy shares o's
// cluster. When id is not empty the copy is also stored under it.
func (o *Object) CopyInPlace(id string) (Node, error) {
	n, err := o.clone(o.parent)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return n, nil
	}
	if o.parent == nil {
		return nil, fmt.Errorf("copy into %q: %w", id, ErrNoParent)
	}
	return o.parent.AsObject().AddChild(id, n)
}

// Copy clones o into a new, independent cluster root with its own dispatch
// tables. The copy keeps o's registry. Payloads are deep-copied, so maps,
// slices and structs holding them are not shared with o.
func (o *Object) Copy() (Node, error) {
	return o.clone(nil)
}

func clonePayloads(w Wrapped) (Wrapped, error) {
	payload, err := clonePayload(w.Payload)
	if err != nil {
		return Wrapped{}, err
	}
	out := Wrapped{Type: w.Type, Payload: payload, Children: make(map[string]Wrapped, len(w.Children))}
	for id, child := range w.Children {
		if out.Children[id], err = clonePayloads(child); err != nil {
			return Wrapped{}, err
		}
	}
	return out, nil
}

// clonePayload deep-copies v. Decoded JSON shapes are walked directly; other
// structs, maps and slices go through copier.
func clonePayload(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := clonePayload(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := clonePayload(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice:
		dst := reflect.New(rv.Type())
		if err := copier.CopyWithOption(dst.Interface(), v, copier.Option{CaseSensitive: true, DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("copy payload %T: %w", v, err)
		}
		return dst.Elem().Interface(), nil
	default:
		return v, nil
	}
}
