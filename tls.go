package threadkit

import (
	"sync"

	"github.com/petermattis/goid"
)

// TLS holds one lazily created value per goroutine.
//
// Values are never dropped when a goroutine exits, and a goroutine keeps its
// value across nesting levels: a value obtained in an outer region is
// returned again inside a nested one. Use LS when regions nest.
type TLS[T any] struct {
	env     *Env
	factory func() T

	slots sync.Map // goroutine id -> T

	mu    sync.Mutex
	order []T // creation order
}

// NewTLS creates a TLS whose values come from factory.
func NewTLS[T any](e *Env, factory func() T) *TLS[T] {
	return &TLS[T]{env: e, factory: factory}
}

// Local returns the calling goroutine's value, creating it on first use.
func (t *TLS[T]) Local() T {
	id := goid.Get()
	if v, ok := t.slots.Load(id); ok {
		return v.(T)
	}

	// Only this goroutine writes its own key.
	v := t.factory()
	t.slots.Store(id, v)

	t.mu.Lock()
	t.order = append(t.order, v)
	t.mu.Unlock()
	return v
}

// Len returns the number of values created so far.
func (t *TLS[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Reduce calls visit on every value, one at a time, in creation order.
func (t *TLS[T]) Reduce(visit func(v T)) {
	for _, v := range t.values() {
		visit(v)
	}
}

// ParallelReduce calls visit on every value, possibly concurrently. visit
// must be safe to run on distinct values at the same time.
func (t *TLS[T]) ParallelReduce(visit func(v T)) {
	vals := t.values()
	t.env.ForSimple(len(vals), func(i int) { visit(vals[i]) })
}

func (t *TLS[T]) values() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.order...)
}

// reset forgets every value.
func (t *TLS[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots.Range(func(k, _ any) bool {
		t.slots.Delete(k)
		return true
	})
	t.order = nil
}
