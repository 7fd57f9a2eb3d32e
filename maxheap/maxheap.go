// Package maxheap provides max-heap operations over a plain slice.
//
// The heap lives in the slice itself: the children of i are 2i+1 and 2i+2 and
// its parent is (i-1)/2. Nothing is allocated. Kernels use it for top-k
// selection and as a priority queue without the interface indirection of
// container/heap.
//
// Every operation comes in two forms: one for ordered types using <, and a
// Func form taking a less function. less(a, b) must report whether a sorts
// before b; the largest element under less ends up at index 0.
package maxheap

import "golang.org/x/exp/constraints"

func less[T constraints.Ordered](a, b T) bool { return a < b }

// MakeMaxHeap arranges s into a max-heap.
func MakeMaxHeap[T constraints.Ordered](s []T) { MakeMaxHeapFunc(s, less[T]) }

// PushMaxHeap restores the heap after a new element was appended at the end of s.
// s[:len(s)-1] must already be a heap.
func PushMaxHeap[T constraints.Ordered](s []T) { PushMaxHeapFunc(s, less[T]) }

// PopMaxHeap moves the maximum to s[len(s)-1] and re-heaps s[:len(s)-1].
func PopMaxHeap[T constraints.Ordered](s []T) { PopMaxHeapFunc(s, less[T]) }

// SortMaxHeap sorts a max-heap into ascending order by repeated pops.
func SortMaxHeap[T constraints.Ordered](s []T) { SortMaxHeapFunc(s, less[T]) }

// MakeMaxHeapFunc is MakeMaxHeap with a custom comparator.
func MakeMaxHeapFunc[T any](s []T, less func(a, b T) bool) {
	n := len(s)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(s, i, n, less)
	}
}

// PushMaxHeapFunc is PushMaxHeap with a custom comparator.
func PushMaxHeapFunc[T any](s []T, less func(a, b T) bool) {
	if len(s) < 2 {
		return
	}
	siftUp(s, len(s)-1, less)
}

// PopMaxHeapFunc is PopMaxHeap with a custom comparator.
func PopMaxHeapFunc[T any](s []T, less func(a, b T) bool) {
	n := len(s) - 1
	if n <= 0 {
		return
	}
	s[0], s[n] = s[n], s[0]
	siftDown(s, 0, n, less)
}

// SortMaxHeapFunc is SortMaxHeap with a custom comparator.
func SortMaxHeapFunc[T any](s []T, less func(a, b T) bool) {
	for n := len(s); n > 1; n-- {
		PopMaxHeapFunc(s[:n], less)
	}
}

// HeapSortFunc sorts s ascending in place: make, then sort.
func HeapSortFunc[T any](s []T, less func(a, b T) bool) {
	MakeMaxHeapFunc(s, less)
	SortMaxHeapFunc(s, less)
}

// IsMaxHeapFunc reports whether s satisfies the max-heap property.
func IsMaxHeapFunc[T any](s []T, less func(a, b T) bool) bool {
	for i := 1; i < len(s); i++ {
		if less(s[(i-1)/2], s[i]) {
			return false
		}
	}
	return true
}

func siftDown[T any](s []T, i, n int, less func(a, b T) bool) {
	for {
		largest := i
		if l := 2*i + 1; l < n && less(s[largest], s[l]) {
			largest = l
		}
		if r := 2*i + 2; r < n && less(s[largest], s[r]) {
			largest = r
		}
		if largest == i {
			return
		}
		s[i], s[largest] = s[largest], s[i]
		i = largest
	}
}

func siftUp[T any](s []T, i int, less func(a, b T) bool) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(s[parent], s[i]) {
			return
		}
		s[i], s[parent] = s[parent], s[i]
		i = parent
	}
}
