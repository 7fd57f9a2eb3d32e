package alloc

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// maxClass bounds pooled sizes at 1<<maxClass elements. Larger requests fall
// through to make and are dropped on Deallocate.
const maxClass = 26

// Scalable is a size-class pooling allocator. The zero value is ready to use.
type Scalable[T any] struct {
	classes [maxClass + 1]sync.Pool

	hits   atomic.Uint64
	misses atomic.Uint64
	frees  atomic.Uint64
}

// ScalableStats counts allocator traffic.
type ScalableStats struct {
	Hits   uint64 // Allocations served from a pool
	Misses uint64 // Allocations that called make
	Frees  uint64 // Slices returned to a pool
}

// NewScalable returns an empty Scalable allocator.
func NewScalable[T any]() *Scalable[T] {
	return &Scalable[T]{}
}

// class returns the smallest c with 1<<c >= n.
func class(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Allocate returns a slice of length n that may hold data from an earlier use.
func (a *Scalable[T]) Allocate(n int) []T {
	if n <= 0 {
		return nil
	}
	c := class(n)
	if c > maxClass {
		a.misses.Add(1)
		return make([]T, n)
	}
	if v := a.classes[c].Get(); v != nil {
		a.hits.Add(1)
		s := *(v.(*[]T))
		return s[:n]
	}
	a.misses.Add(1)
	return make([]T, n, 1<<c)
}

// AllocateZeroed returns a zeroed slice of length n.
func (a *Scalable[T]) AllocateZeroed(n int) []T {
	s := a.Allocate(n)
	clear(s)
	return s
}

// Deallocate returns s to its size class. Slices whose capacity is not a
// class size did not come from this allocator and are dropped.
func (a *Scalable[T]) Deallocate(s []T) {
	c := cap(s)
	if c == 0 || c&(c-1) != 0 {
		return
	}
	k := class(c)
	if k > maxClass {
		return
	}
	s = s[:c]
	a.frees.Add(1)
	a.classes[k].Put(&s)
}

// Stats returns a snapshot of the counters.
func (a *Scalable[T]) Stats() ScalableStats {
	return ScalableStats{
		Hits:   a.hits.Load(),
		Misses: a.misses.Load(),
		Frees:  a.frees.Load(),
	}
}
