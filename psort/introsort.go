package psort

import (
	"math/bits"

	"github.com/tahsin716/threadkit/maxheap"
)

// insertionThreshold is the largest range finished by insertion sort.
const insertionThreshold = 7

// depthLimit is the partition depth after which a range is heapsorted.
func depthLimit(n int) int {
	return 2 * bits.Len(uint(n))
}

// introsort sorts s without recursion. The larger side of each partition is
// pushed on an explicit stack and the smaller side is processed next, so the
// stack stays O(log n) deep on any input.
func introsort[T any](s []T, less func(a, b T) bool, depth int) {
	type frame struct {
		lo, hi, depth int
	}

	var stack []frame
	lo, hi := 0, len(s)

	for {
		switch {
		case hi-lo <= insertionThreshold:
			insertionSort(s[lo:hi], less)
		case depth == 0:
			maxheap.HeapSortFunc(s[lo:hi], less)
		default:
			depth--
			p := lo + partition(s[lo:hi], less)
			if p-lo < hi-p-1 {
				stack = append(stack, frame{p + 1, hi, depth})
				hi = p
			} else {
				stack = append(stack, frame{lo, p, depth})
				lo = p + 1
			}
			continue
		}

		if len(stack) == 0 {
			return
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lo, hi, depth = f.lo, f.hi, f.depth
	}
}

func insertionSort[T any](s []T, less func(a, b T) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// partition splits s (len(s) > insertionThreshold) around a median-of-three
// pivot and returns the pivot's final index p: s[:p] <= s[p] <= s[p+1:].
func partition[T any](s []T, less func(a, b T) bool) int {
	last := len(s) - 1
	mid := last / 2

	// Order first, middle and last. The last element is then >= pivot and
	// bounds the left-to-right scan.
	if less(s[mid], s[0]) {
		s[mid], s[0] = s[0], s[mid]
	}
	if less(s[last], s[0]) {
		s[last], s[0] = s[0], s[last]
	}
	if less(s[last], s[mid]) {
		s[last], s[mid] = s[mid], s[last]
	}

	// Median goes to the front; it bounds the right-to-left scan.
	s[0], s[mid] = s[mid], s[0]
	pivot := s[0]

	i, j := 0, last
	for {
		i++
		for less(s[i], pivot) {
			i++
		}
		j--
		for less(pivot, s[j]) {
			j--
		}
		if i >= j {
			break
		}
		s[i], s[j] = s[j], s[i]
	}

	s[0], s[j] = s[j], s[0]
	return j
}
