package cluster

import (
	"errors"
	"fmt"
)

// RunReplace invokes the replaceable method name on o. Overrides registered
// anywhere in the cluster are tried highest priority first; the first one
// that does not return Fizzle supplies the result. When every override
// fizzles, or none exist, original runs instead.
func (o *Object) RunReplace(name string, original Callback, args ...any) (any, error) {
	return o.RunReplaceKw(name, original, nil, args...)
}

// RunReplaceKw is RunReplace with keyword arguments.
func (o *Object) RunReplaceKw(name string, original Callback, kwargs map[string]any, args ...any) (result any, err error) {
	t := o.tables()
	t.lock.Enter()
	defer t.lock.Exit()

	handled := 0
	defer func() { t.observe(Overrides, name, o.Node(), handled, err) }()

	base := Call{Key: name, Target: o.Node()}
	if subs, ok := t.entries(Overrides, name, false); ok {
		for _, e := range snapshot(subs, true) {
			v, err := e.Value.call(base, args, kwargs)
			if errors.Is(err, Fizzle) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", name, err)
			}
			t.spend(subs, e)
			handled++
			return v, nil
		}
	}

	own := record{callback: original, subscriber: o.Node(), passSubscriber: true}
	v, err := own.call(base, args, kwargs)
	if err != nil {
		return nil, fmt.Errorf("method %q: %w", name, err)
	}
	return v, nil
}
