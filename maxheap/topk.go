package maxheap

// TopK keeps the k smallest items seen so far under less, using a max-heap
// whose root is the current worst kept item. It is not safe for concurrent
// use; kernels keep one per goroutine and merge.
type TopK[T any] struct {
	k     int
	less  func(a, b T) bool
	items []T
}

// NewTopK returns an empty selector for the k smallest items.
func NewTopK[T any](k int, less func(a, b T) bool) *TopK[T] {
	if k < 0 {
		k = 0
	}
	return &TopK[T]{k: k, less: less, items: make([]T, 0, k)}
}

// Push offers v.
func (t *TopK[T]) Push(v T) {
	if t.k == 0 {
		return
	}
	if len(t.items) < t.k {
		t.items = append(t.items, v)
		PushMaxHeapFunc(t.items, t.less)
		return
	}
	if t.less(v, t.items[0]) {
		t.items[0] = v
		siftDown(t.items, 0, len(t.items), t.less)
	}
}

// Merge offers every item kept by other.
func (t *TopK[T]) Merge(other *TopK[T]) {
	for _, v := range other.items {
		t.Push(v)
	}
}

// Len returns the number of kept items.
func (t *TopK[T]) Len() int { return len(t.items) }

// Sorted returns the kept items in ascending order. The selector stays usable.
func (t *TopK[T]) Sorted() []T {
	out := make([]T, len(t.items))
	copy(out, t.items)
	SortMaxHeapFunc(out, t.less)
	return out
}
