package cluster

// Observation reports one finished dispatch pass.
type Observation struct {
	Kind   Kind
	Key    string
	Target Node
	// Handled counts callbacks that completed (for overrides: 0 or 1).
	Handled int
	Err     error
}

// Observer receives an Observation after each Emit, Calculate and RunReplace
// on the cluster it is installed on.
type Observer interface {
	Observe(Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Observation)

func (f ObserverFunc) Observe(ob Observation) { f(ob) }
