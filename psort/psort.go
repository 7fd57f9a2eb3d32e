// Package psort sorts numeric keys and (value, index) pairs, in parallel on
// an Env with more than one thread and with a sequential introsort otherwise.
//
// The sequential algorithm picks a median-of-three pivot, keeps its work on
// an explicit stack, finishes ranges of 7 or fewer elements with insertion
// sort and falls back to heapsort past a depth of 2*log2(n). It is not
// stable; SortPairs gets a stable order by value through the index tiebreak.
package psort

import (
	"golang.org/x/exp/constraints"

	"github.com/tahsin716/threadkit"
)

// Key is a sortable numeric key. NaNs sort in an unspecified position.
type Key interface {
	constraints.Integer | constraints.Float
}

// Pair is a value with its original position, for argsort.
type Pair[K Key] struct {
	Value K
	Index int
}

func less[K Key](a, b K) bool { return a < b }

func lessPair[K Key](a, b Pair[K]) bool {
	return a.Value < b.Value || (a.Value == b.Value && a.Index < b.Index)
}

// parallelCutoff is the smallest range split into separate tasks.
const parallelCutoff = 2048

// Sort sorts s ascending.
func Sort[K Key](e *threadkit.Env, s []K) {
	SortFunc(e, s, less[K])
}

// SortPairs sorts s by value, then by index.
func SortPairs[K Key](e *threadkit.Env, s []Pair[K]) {
	SortFunc(e, s, lessPair[K])
}

// SortFunc sorts s ascending under less. With one thread it is exactly the
// sequential introsort.
func SortFunc[T any](e *threadkit.Env, s []T, less func(a, b T) bool) {
	if e.MaxThreads() == 1 || len(s) <= parallelCutoff {
		introsort(s, less, depthLimit(len(s)))
		return
	}

	g := threadkit.NewTaskGroup(e)
	cutoff := max(parallelCutoff, len(s)/(8*e.MaxThreads()))

	var sortRange func(s []T, depth int)
	sortRange = func(s []T, depth int) {
		for len(s) > cutoff {
			if depth == 0 {
				introsort(s, less, 0)
				return
			}
			depth--

			p := partition(s, less)
			small, large := s[:p], s[p+1:]
			if len(small) > len(large) {
				small, large = large, small
			}

			sub, d := small, depth
			g.Go(func() { sortRange(sub, d) })
			s = large
		}
		introsort(s, less, depth)
	}

	sortRange(s, depthLimit(len(s)))
	g.Wait()
}

// SortSequential sorts s ascending in the calling goroutine.
func SortSequential[K Key](s []K) {
	introsort(s, less[K], depthLimit(len(s)))
}

// SortPairsSequential sorts s by value, then by index, in the calling goroutine.
func SortPairsSequential[K Key](s []Pair[K]) {
	introsort(s, lessPair[K], depthLimit(len(s)))
}

// Argsort returns the indices that sort values, ties in index order.
func Argsort[K Key](e *threadkit.Env, values []K) []int {
	pairs := make([]Pair[K], len(values))
	e.For(len(values), func(i int) {
		pairs[i] = Pair[K]{Value: values[i], Index: i}
	})

	SortPairs(e, pairs)

	idx := make([]int, len(pairs))
	e.For(len(pairs), func(i int) { idx[i] = pairs[i].Index })
	return idx
}
