package threadkit

// Reduce folds [0, n) in parallel. Each chunk computes
// loop(begin, end, init); the partials are then combined left to right in
// chunk order with combine, which must be associative. For a fixed thread
// count the result is deterministic even if combine is not commutative.
//
// n <= 0 returns init. Sequentially it returns loop(0, n, init).
//
// Example:
//
//	sum := threadkit.Reduce(env, len(xs), 0.0,
//	    func(begin, end int, acc float64) float64 {
//	        for _, x := range xs[begin:end] {
//	            acc += x
//	        }
//	        return acc
//	    },
//	    func(a, b float64) float64 { return a + b },
//	)
func Reduce[T any](e *Env, n int, init T, loop func(begin, end int, acc T) T, combine func(a, b T) T) T {
	if n <= 0 {
		return init
	}
	return reduceChunks(e, n, e.autoChunks(int64(n)), init, loop, combine)
}

// ReduceSimple is Reduce with one index per chunk.
func ReduceSimple[T any](e *Env, n int, init T, loop func(begin, end int, acc T) T, combine func(a, b T) T) T {
	if n <= 0 {
		return init
	}
	k := int64(n)
	if e.MaxThreads() == 1 {
		k = 1
	}
	return reduceChunks(e, n, k, init, loop, combine)
}

func reduceChunks[T any](e *Env, n int, k int64, init T, loop func(begin, end int, acc T) T, combine func(a, b T) T) T {
	if k == 1 {
		var out T
		e.run(1, func(int64) { out = loop(0, n, init) })
		return out
	}

	partials := make([]T, k)
	e.run(k, func(c int64) {
		begin, end := span(int64(n), k, c)
		partials[c] = loop(int(begin), int(end), init)
	})

	acc := partials[0]
	for _, p := range partials[1:] {
		acc = combine(acc, p)
	}
	return acc
}
