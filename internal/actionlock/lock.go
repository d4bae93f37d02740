// Package actionlock implements a nestable guard that defers table mutations
// requested while a table is being iterated.
//
// A dispatch pass holds the lock for its whole duration. Mutations requested
// at depth 1 (the outermost scope) apply immediately; anything requested from
// a nested scope, or with no scope open at all, is queued and applied in FIFO
// order once the depth returns to zero.
package actionlock

// Lock is a nesting counter plus a queue of deferred actions.
// The zero value is ready to use. A Lock is not safe for concurrent use.
type Lock struct {
	depth   int
	pending []func()
}

// New returns an unlocked Lock.
func New() *Lock {
	return &Lock{}
}

// Enter opens a scope. Pair every Enter with a deferred Exit.
func (l *Lock) Enter() *Lock {
	l.depth++
	return l
}

// Exit closes a scope. Leaving the outermost scope drains the deferred queue.
func (l *Lock) Exit() {
	if l.depth == 0 {
		panic("actionlock: Exit without matching Enter")
	}
	l.depth--
	if l.depth > 0 {
		return
	}
	// Actions queued while draining are picked up by the same loop.
	for len(l.pending) > 0 {
		action := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		action()
	}
	l.pending = nil
}

// Run executes action now when exactly one scope is open, and queues it
// otherwise.
func (l *Lock) Run(action func()) {
	if l.depth == 1 {
		action()
		return
	}
	l.pending = append(l.pending, action)
}

// Depth returns the number of open scopes.
func (l *Lock) Depth() int { return l.depth }

// Pending returns the number of queued actions.
func (l *Lock) Pending() int { return len(l.pending) }

// Table is the mutation surface Set and Delete operate on.
type Table[K comparable, V any] interface {
	Put(key K, value V)
	Remove(key K)
}

// Set stores value under key in t, through l.
func Set[K comparable, V any](l *Lock, t Table[K, V], key K, value V) {
	l.Run(func() { t.Put(key, value) })
}

// Delete removes key from t, through l. Removing an absent key is a no-op.
func Delete[K comparable, V any](l *Lock, t Table[K, V], key K) {
	l.Run(func() { t.Remove(key) })
}

// MapTable adapts a plain Go map to Table.
type MapTable[K comparable, V any] map[K]V

func (m MapTable[K, V]) Put(key K, value V) { m[key] = value }
func (m MapTable[K, V]) Remove(key K)       { delete(m, key) }
