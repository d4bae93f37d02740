package cluster

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/mattjoyce/msgcluster/internal/actionlock"
	"github.com/mattjoyce/msgcluster/internal/ordered"
)

// Kind selects one of the three dispatch tables.
type Kind int

const (
	Events Kind = iota
	Calculations
	Overrides
)

func (k Kind) String() string {
	switch k {
	case Events:
		return "event"
	case Calculations:
		return "calculation"
	case Overrides:
		return "override"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var allKinds = [...]Kind{Events, Calculations, Overrides}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown dispatch kind %q", s)
}

// Call is what a Callback receives.
type Call struct {
	// Key is the event, calculation target or method name.
	Key string
	// Subscriber is the subscribing node, set only for PassSubscriber records.
	Subscriber Node
	// Target is the node the dispatch was requested on.
	Target Node
	// Value is the running value of a calculation.
	Value any
	// Initial is the value a calculation started from.
	Initial any
	// Args holds bound arguments followed by call-site arguments.
	Args []any
	// Kwargs holds bound keyword arguments overlaid with call-site ones.
	Kwargs map[string]any
}

// Arg returns Args[i], or nil when out of range.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Kwarg returns the keyword argument name.
func (c *Call) Kwarg(name string) (any, bool) {
	v, ok := c.Kwargs[name]
	return v, ok
}

// Callback handles one dispatch. Event callbacks' results are discarded;
// calculation callbacks return the new running value; override callbacks
// return the method result or Fizzle.
type Callback func(c *Call) (any, error)

// record is one subscription. limit -1 never reaches zero.
type record struct {
	callback       Callback
	subscriber     Node
	limit          int
	args           []any
	kwargs         map[string]any
	passSubscriber bool
	priority       float64
}

// SubscribeOption customizes a subscription.
type SubscribeOption func(*record)

// Limit caps how many successful invocations the subscription gets.
// -1 (the default) means unlimited.
func Limit(n int) SubscribeOption { return func(r *record) { r.limit = n } }

// Priority orders handlers. Events and overrides run highest first;
// calculations run lowest first.
func Priority(p float64) SubscribeOption { return func(r *record) { r.priority = p } }

// BindArgs prepends args to every call's positional arguments.
func BindArgs(args ...any) SubscribeOption {
	return func(r *record) { r.args = append(r.args, args...) }
}

// BindKwargs adds keyword arguments to every call.
func BindKwargs(kwargs map[string]any) SubscribeOption {
	return func(r *record) {
		if r.kwargs == nil {
			r.kwargs = make(map[string]any, len(kwargs))
		}
		maps.Copy(r.kwargs, kwargs)
	}
}

// PassSubscriber sets Call.Subscriber to the subscribing node.
func PassSubscriber() SubscribeOption { return func(r *record) { r.passSubscriber = true } }

// Subscription describes a live table entry.
type Subscription struct {
	Subscriber Node
	Limit      int
	Priority   float64
}

type subscribers = ordered.Map[*Object, record]

// tables is the shared dispatch state held by a cluster root.
type tables struct {
	lock     *actionlock.Lock
	byKind   [len(allKinds)]map[string]*subscribers
	observer Observer
}

func (o *Object) tables() *tables {
	root := o.rootObject()
	if root.dispatch == nil {
		t := &tables{lock: actionlock.New()}
		for i := range t.byKind {
			t.byKind[i] = make(map[string]*subscribers)
		}
		root.dispatch = t
	}
	return root.dispatch
}

// Lock returns the cluster's action lock.
func (o *Object) Lock() *actionlock.Lock { return o.tables().lock }

func (t *tables) entries(kind Kind, key string, create bool) (*subscribers, bool) {
	subs, ok := t.byKind[kind][key]
	if !ok && create {
		subs = ordered.New[*Object, record]()
		t.byKind[kind][key] = subs
		ok = true
	}
	return subs, ok
}

func (o *Object) subscribe(kind Kind, key string, cb Callback, opts []SubscribeOption) {
	rec := record{callback: cb, subscriber: o.Node(), limit: -1}
	for _, opt := range opts {
		opt(&rec)
	}
	t := o.tables()
	lock := t.lock.Enter()
	defer lock.Exit()
	subs, _ := t.entries(kind, key, true)
	actionlock.Set(lock, subs, o, rec)
}

func (o *Object) unsubscribe(kind Kind, key string) {
	t := o.tables()
	lock := t.lock.Enter()
	defer lock.Exit()
	subs, ok := t.entries(kind, key, false)
	if !ok || !subs.Has(o) {
		return
	}
	actionlock.Delete(lock, subs, o)
}

// Listen subscribes cb to event key.
func (o *Object) Listen(key string, cb Callback, opts ...SubscribeOption) {
	o.subscribe(Events, key, cb, opts)
}

// Ignore removes o's subscription to event key.
func (o *Object) Ignore(key string) { o.unsubscribe(Events, key) }

// Compute subscribes cb to calculation target key.
func (o *Object) Compute(key string, cb Callback, opts ...SubscribeOption) {
	o.subscribe(Calculations, key, cb, opts)
}

// IgnoreCompute removes o's calculation for key.
func (o *Object) IgnoreCompute(key string) { o.unsubscribe(Calculations, key) }

// Override registers cb as a replacement for the replaceable method name,
// wherever in the cluster it is invoked.
func (o *Object) Override(name string, cb Callback, opts ...SubscribeOption) {
	o.subscribe(Overrides, name, cb, opts)
}

// IgnoreOverride removes o's override of name.
func (o *Object) IgnoreOverride(name string) { o.unsubscribe(Overrides, name) }

// IgnoreAll removes o from every key of every table, whether or not it is
// subscribed there.
func (o *Object) IgnoreAll() {
	t := o.tables()
	lock := t.lock.Enter()
	defer lock.Exit()
	for _, kind := range allKinds {
		for _, subs := range t.byKind[kind] {
			actionlock.Delete(lock, subs, o)
		}
	}
}

// Subscribers lists the live subscriptions for key in registration order.
func (o *Object) Subscribers(kind Kind, key string) []Subscription {
	subs, ok := o.tables().entries(kind, key, false)
	if !ok {
		return nil
	}
	out := make([]Subscription, 0, subs.Len())
	for _, rec := range subs.All() {
		out = append(out, Subscription{Subscriber: rec.subscriber, Limit: rec.limit, Priority: rec.priority})
	}
	return out
}

// SetObserver installs obs on o's cluster root. A nil obs removes it.
func (o *Object) SetObserver(obs Observer) { o.tables().observer = obs }

type pending = ordered.Entry[*Object, record]

// snapshot copies the entries for key sorted by priority. The sort is stable
// so equal priorities keep registration order.
func snapshot(subs *subscribers, descending bool) []pending {
	snap := subs.Snapshot()
	slices.SortStableFunc(snap, func(a, b pending) int {
		if descending {
			return cmp.Compare(b.Value.priority, a.Value.priority)
		}
		return cmp.Compare(a.Value.priority, b.Value.priority)
	})
	return snap
}

func (rec record) call(base Call, args []any, kwargs map[string]any) (any, error) {
	c := base
	if rec.passSubscriber {
		c.Subscriber = rec.subscriber
	}
	c.Args = make([]any, 0, len(rec.args)+len(args))
	c.Args = append(c.Args, rec.args...)
	c.Args = append(c.Args, args...)
	if len(rec.kwargs) > 0 || len(kwargs) > 0 {
		c.Kwargs = make(map[string]any, len(rec.kwargs)+len(kwargs))
		maps.Copy(c.Kwargs, rec.kwargs)
		maps.Copy(c.Kwargs, kwargs)
	}
	return rec.callback(&c)
}

// spend decrements the live record's limit in place and drops the entry once
// it is exhausted. Only the removal goes through the lock, so an unsubscribe
// the handler queued earlier is never undone by the write-back.
func (t *tables) spend(subs *subscribers, e pending) {
	rec, ok := subs.Get(e.Key)
	if !ok || rec.limit <= 0 {
		return
	}
	rec.limit--
	subs.Put(e.Key, rec)
	if rec.limit == 0 {
		actionlock.Delete(t.lock, subs, e.Key)
	}
}

func (t *tables) observe(kind Kind, key string, target Node, handled int, err error) {
	if t.observer == nil {
		return
	}
	t.observer.Observe(Observation{Kind: kind, Key: key, Target: target, Handled: handled, Err: err})
}

// Emit calls every listener of key, highest priority first.
func (o *Object) Emit(key string, args ...any) error {
	return o.EmitKw(key, nil, args...)
}

// EmitKw is Emit with keyword arguments.
func (o *Object) EmitKw(key string, kwargs map[string]any, args ...any) (err error) {
	t := o.tables()
	t.lock.Enter()
	defer t.lock.Exit()

	handled := 0
	defer func() { t.observe(Events, key, o.Node(), handled, err) }()

	subs, ok := t.entries(Events, key, false)
	if !ok {
		return nil
	}
	base := Call{Key: key, Target: o.Node()}
	for _, e := range snapshot(subs, true) {
		if _, err := e.Value.call(base, args, kwargs); err != nil {
			return fmt.Errorf("emit %q: %w", key, err)
		}
		t.spend(subs, e)
		handled++
	}
	return nil
}

// Calculate folds initial through every calculation registered for key,
// lowest priority first, so higher priorities see already-modified values.
func (o *Object) Calculate(key string, initial any, args ...any) (any, error) {
	return o.CalculateKw(key, initial, nil, args...)
}

// CalculateKw is Calculate with keyword arguments.
func (o *Object) CalculateKw(key string, initial any, kwargs map[string]any, args ...any) (value any, err error) {
	t := o.tables()
	t.lock.Enter()
	defer t.lock.Exit()

	handled := 0
	defer func() { t.observe(Calculations, key, o.Node(), handled, err) }()

	value = initial
	subs, ok := t.entries(Calculations, key, false)
	if !ok {
		return value, nil
	}
	for _, e := range snapshot(subs, false) {
		base := Call{Key: key, Target: o.Node(), Value: value, Initial: initial}
		next, err := e.Value.call(base, args, kwargs)
		if err != nil {
			return value, fmt.Errorf("calculate %q: %w", key, err)
		}
		value = next
		t.spend(subs, e)
		handled++
	}
	return value, nil
}

// CalculateAs runs Calculate on n and asserts the result back to T.
func CalculateAs[T any](n Node, key string, initial T, args ...any) (T, error) {
	v, err := n.AsObject().Calculate(key, initial, args...)
	if err != nil {
		return initial, err
	}
	out, ok := v.(T)
	if !ok {
		return initial, fmt.Errorf("calculate %q: result %T is not %T", key, v, initial)
	}
	return out, nil
}
