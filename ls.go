package threadkit

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// LS is a pool of values that are checked out and returned explicitly. A
// value is either free or in use, never both, so LS is safe to use from
// nested parallel regions.
//
// T should have identity semantics (a pointer, typically): in-use values are
// tracked by value, so two equal values would be indistinguishable.
type LS[T comparable] struct {
	env     *Env
	factory func() T

	// mu serializes every pool mutation
	mu    sync.Mutex
	free  map[int64][]T // owning goroutine id -> free values
	nfree int
	used  map[T]int64 // in-use value -> owning goroutine id

	tls *TLS[T]
}

// LSOption configures an LS.
type LSOption func(*lsConfig)

type lsConfig struct {
	tlsMode bool
}

// WithTLSMode makes the LS behave like a TLS: one value per goroutine,
// Release is a no-op. Only safe when regions do not nest.
func WithTLSMode() LSOption {
	return func(c *lsConfig) { c.tlsMode = true }
}

// NewLS creates an LS whose values come from factory. In-use values are
// tracked by identity, so T should be a pointer or another type whose values
// are distinct per factory call.
func NewLS[T comparable](e *Env, factory func() T, opts ...LSOption) *LS[T] {
	var cfg lsConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ls := &LS[T]{
		env:     e,
		factory: factory,
		free:    make(map[int64][]T),
		used:    make(map[T]int64),
	}
	if cfg.tlsMode {
		ls.tls = NewTLS(e, factory)
	}
	return ls
}

// Local checks out a value. It prefers a free value last owned by the
// calling goroutine, then any free value, and otherwise creates one.
func (l *LS[T]) Local() T {
	if l.tls != nil {
		return l.tls.Local()
	}

	id := goid.Get()

	l.mu.Lock()
	if v, ok := l.takeFree(id); ok {
		l.used[v] = id
		l.mu.Unlock()
		return v
	}
	l.mu.Unlock()

	v := l.factory()

	l.mu.Lock()
	l.used[v] = id
	l.mu.Unlock()
	return v
}

// takeFree pops a free value, preferring id's. Caller holds mu.
func (l *LS[T]) takeFree(id int64) (T, bool) {
	var zero T
	if l.nfree == 0 {
		return zero, false
	}

	owner := id
	vs := l.free[owner]
	if len(vs) == 0 {
		for k, other := range l.free {
			if len(other) > 0 {
				owner, vs = k, other
				break
			}
		}
	}

	v := vs[len(vs)-1]
	if len(vs) == 1 {
		delete(l.free, owner)
	} else {
		l.free[owner] = vs[:len(vs)-1]
	}
	l.nfree--
	return v, true
}

// Release returns v to the free set under the goroutine that checked it out.
// Values not currently checked out are ignored.
func (l *LS[T]) Release(v T) {
	if l.tls != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	owner, ok := l.used[v]
	if !ok {
		return
	}
	delete(l.used, v)
	l.free[owner] = append(l.free[owner], v)
	l.nfree++
}

// Lease is a checked-out LS value.
type Lease[T comparable] struct {
	ls       *LS[T]
	v        T
	released atomic.Bool
}

// Acquire checks out a value wrapped in a Lease.
//
// Example:
//
//	lease := scratch.Acquire()
//	defer lease.Release()
//	buf := lease.Value()
func (l *LS[T]) Acquire() *Lease[T] {
	return &Lease[T]{ls: l, v: l.Local()}
}

// Value returns the leased value.
func (le *Lease[T]) Value() T {
	return le.v
}

// Release returns the value to the pool. Only the first call has an effect.
func (le *Lease[T]) Release() {
	if le.released.CompareAndSwap(false, true) {
		le.ls.Release(le.v)
	}
}

// With runs fn with a checked-out value and returns it afterwards, even if
// fn panics.
func (l *LS[T]) With(fn func(v T)) {
	lease := l.Acquire()
	defer lease.Release()
	fn(lease.Value())
}

// Reduce calls visit once on every value, free or in use, then empties the
// pool.
func (l *LS[T]) Reduce(visit func(v T)) {
	if l.tls != nil {
		l.tls.Reduce(visit)
		l.tls.reset()
		return
	}

	l.mu.Lock()
	all := make([]T, 0, l.nfree+len(l.used))
	for _, vs := range l.free {
		all = append(all, vs...)
	}
	for v := range l.used {
		all = append(all, v)
	}
	l.free = make(map[int64][]T)
	l.nfree = 0
	l.used = make(map[T]int64)
	l.mu.Unlock()

	for _, v := range all {
		visit(v)
	}
}

// Len returns the number of values the pool holds, free and in use.
func (l *LS[T]) Len() int {
	if l.tls != nil {
		return l.tls.Len()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nfree + len(l.used)
}
