// Package alloc provides typed allocation helpers for kernel scratch buffers.
//
// Two allocators are offered. Plain hands out fresh zeroed slices and drops
// them on Deallocate. Scalable keeps freed slices in power-of-two size classes
// backed by sync.Pool, which has per-P caches and is safe to hit from every
// worker goroutine at once. Buffers built here are what kernels hand to TLS
// and LS factories.
package alloc

// Allocator allocates slices of T. Implementations are safe for concurrent use.
type Allocator[T any] interface {
	// Allocate returns a slice of length n. Its contents are unspecified.
	Allocate(n int) []T
	// AllocateZeroed returns a slice of length n with every element zeroed.
	AllocateZeroed(n int) []T
	// Deallocate gives s back. s must not be used afterwards.
	Deallocate(s []T)
}

// Plain allocates with make and lets the garbage collector reclaim.
type Plain[T any] struct{}

// Allocate returns make([]T, n).
func (Plain[T]) Allocate(n int) []T { return make([]T, n) }

// AllocateZeroed returns make([]T, n).
func (Plain[T]) AllocateZeroed(n int) []T { return make([]T, n) }

// Deallocate is a no-op.
func (Plain[T]) Deallocate([]T) {}

// Construct allocates n elements from a and runs ctor on each, in order.
// A nil ctor leaves the zero value.
func Construct[T any](a Allocator[T], n int, ctor func(i int, p *T)) []T {
	s := a.AllocateZeroed(n)
	if ctor != nil {
		for i := range s {
			ctor(i, &s[i])
		}
	}
	return s
}

// Destroy runs dtor on each element of s, then deallocates it.
func Destroy[T any](a Allocator[T], s []T, dtor func(p *T)) {
	if dtor != nil {
		for i := range s {
			dtor(&s[i])
		}
	}
	a.Deallocate(s)
}
