package cluster

import (
	"errors"
)

// counter is a node whose payload is an int.
type counter struct {
	Object
	value int
}

func (c *counter) Payload() any { return c.value }

func (c *counter) SetPayload(v any) {
	if n, ok := v.(int); ok {
		c.value = n
	}
}

func newCounter() Node { return &counter{value: 123} }

// greeter counts "hello" events into its payload.
type greeter struct {
	counter
}

func newGreeter() Node { return &greeter{} }

func (g *greeter) Init() {
	g.Listen("hello", func(*Call) (any, error) {
		g.value++
		return nil, nil
	})
}

// eventObject mirrors a typical event-driven node.
type eventObject struct {
	Object
	data         int
	helloDone    int
	magicDone    int
	advancedDone int
	x, y, test   any
}

func newEventObject() Node { return &eventObject{data: 1} }

func (e *eventObject) Init() {
	e.Listen("hello", func(*Call) (any, error) {
		e.helloDone++
		e.Listen("advanced", func(*Call) (any, error) {
			e.advancedDone = 1
			return nil, nil
		})
		return nil, nil
	})
	e.Listen("magic", func(*Call) (any, error) {
		e.magicDone++
		return nil, nil
	}, Limit(1))
	e.Listen("set_data", func(c *Call) (any, error) {
		e.data = c.Arg(0).(int)
		if e.data == 4 {
			e.Ignore("hello")
		}
		return nil, nil
	})
	e.Listen("with_args", func(c *Call) (any, error) {
		e.x = c.Arg(0)
		e.y, _ = c.Kwarg("y")
		e.test, _ = c.Kwarg("test")
		return nil, nil
	}, BindArgs(23), BindKwargs(map[string]any{"test": 567}))
}

// calcObject registers calculations on construction.
type calcObject struct {
	Object
}

func newCalcObject() Node { return &calcObject{} }

func (o *calcObject) Init() {
	o.Listen("use_math", func(*Call) (any, error) {
		o.Compute("damage", func(c *Call) (any, error) {
			m, _ := c.Kwarg("multiplier")
			return c.Value.(float64) * m.(float64), nil
		}, Limit(1), BindKwargs(map[string]any{"multiplier": 2.0}))
		return nil, nil
	})
	o.Compute("accuracy", func(c *Call) (any, error) {
		return c.Value.(float64) * 1.5, nil
	})
	o.Compute("use_init_value", func(c *Call) (any, error) {
		return c.Value.(float64) * c.Initial.(float64), nil
	})
}

// magicDoubler doubles "magic" calculations.
type magicDoubler struct {
	Object
}

func newMagicDoubler() Node { return &magicDoubler{} }

func (o *magicDoubler) Init() {
	o.Compute("magic", func(c *Call) (any, error) {
		return c.Value.(int) * 2, nil
	})
}

// replaceTarget exposes a replaceable method "test".
type replaceTarget struct {
	Object
}

func newReplaceTarget() Node { return &replaceTarget{} }

func (o *replaceTarget) Test(value int) (int, error) {
	v, err := o.RunReplace("test", func(c *Call) (any, error) {
		return 1 + c.Arg(0).(int), nil
	}, value)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// replaceProxy overrides "test" unless the value is ignoredValue.
type replaceProxy struct {
	Object
	ignoredValue int
	newValue     int
	sawTarget    bool
}

func newReplaceProxy() Node { return &replaceProxy{ignoredValue: -100, newValue: -1} }

func (o *replaceProxy) Init() {
	o.Override("test", func(c *Call) (any, error) {
		_, o.sawTarget = c.Target.(*replaceTarget)
		if c.Subscriber != Node(o) {
			return nil, errors.New("subscriber not passed")
		}
		value := c.Arg(0).(int)
		if value == o.ignoredValue {
			return nil, Fizzle
		}
		o.newValue = value
		return 2 + value, nil
	}, PassSubscriber())
}

// finalProxy always fizzles but records that it was asked.
type finalProxy struct {
	Object
	called bool
}

func newFinalProxy() Node { return &finalProxy{} }

func (o *finalProxy) Init() {
	o.Override("test", func(*Call) (any, error) {
		o.called = true
		return nil, Fizzle
	})
}

// baseEventObject and inheritingEventObject exercise hook overriding through
// embedding.
type baseEventObject struct {
	Object
	data       int
	secondData int
}

func newBaseEventObject() Node { return &baseEventObject{} }

func (b *baseEventObject) hello() { b.data++ }

func (b *baseEventObject) Init() {
	b.Listen("hello", func(*Call) (any, error) { b.hello(); return nil, nil })
	b.Listen("magic", func(*Call) (any, error) { b.secondData++; return nil, nil })
}

type inheritingEventObject struct {
	baseEventObject
	postInits int
}

func newInheritingEventObject() Node { return &inheritingEventObject{} }

func (d *inheritingEventObject) Init() {
	d.baseEventObject.Init()
	d.Listen("hello", func(*Call) (any, error) {
		d.hello()
		d.data++
		return nil, nil
	})
}

func (d *inheritingEventObject) PostInit() {
	d.postInits++
	d.Ignore("magic")
}

type inheritingEventObject2 struct {
	baseEventObject
}

func newInheritingEventObject2() Node { return &inheritingEventObject2{} }
