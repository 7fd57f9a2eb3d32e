package threadkit

import "sync/atomic"

// For calls body(i) for every i in [0, n). Iterations are cut into
// contiguous chunks and run in no particular order. Sequential when
// MaxThreads() == 1.
func (e *Env) For(n int, body func(i int)) {
	e.ForInt64(int64(n), func(i int64) { body(int(i)) })
}

// ForInt64 is For over an int64 range.
func (e *Env) ForInt64(n int64, body func(i int64)) {
	if n <= 0 {
		return
	}
	k := e.autoChunks(n)
	e.run(k, func(c int64) {
		begin, end := span(n, k, c)
		for i := begin; i < end; i++ {
			body(i)
		}
	})
}

// ForSimple is For with one iteration per chunk. Use it when iterations vary
// widely in cost and locality does not matter.
func (e *Env) ForSimple(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	if e.MaxThreads() == 1 {
		e.run(1, func(int64) {
			for i := 0; i < n; i++ {
				body(i)
			}
		})
		return
	}
	e.run(int64(n), func(c int64) { body(int(c)) })
}

// ForBlocked calls body once per chunk with the chunk's first index and
// length. Chunks are contiguous and together cover [0, n) exactly once.
func (e *Env) ForBlocked(n int, body func(begin, count int)) {
	if n <= 0 {
		return
	}
	k := e.autoChunks(int64(n))
	e.run(k, func(c int64) {
		begin, end := span(int64(n), k, c)
		body(int(begin), int(end-begin))
	})
}

// StaticFor splits [0, n) into MaxThreads() blocks of ceil(n/t) iterations.
// Block k always gets tid k, so the same i maps to the same tid across calls
// with unchanged n and thread count.
func (e *Env) StaticFor(n int, body func(i, tid int)) {
	if n <= 0 {
		return
	}
	t := e.MaxThreads()
	size := (n + t - 1) / t
	blocks := (n + size - 1) / size

	e.run(int64(blocks), func(c int64) {
		tid := int(c)
		end := min(n, (tid+1)*size)
		for i := tid * size; i < end; i++ {
			body(i, tid)
		}
	})
}

// ForOptional is For, except that inside a parallel region it runs the whole
// range in the calling goroutine instead of nesting.
func (e *Env) ForOptional(n int, body func(i int)) {
	if e.IsInParallel() {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}
	e.For(n, body)
}

// ForBreak is For with cooperative cancellation. Any iteration may call stop;
// after that no iteration that has not yet started will start. Iterations
// already running finish normally.
func (e *Env) ForBreak(n int, body func(i int, stop func())) {
	if n <= 0 {
		return
	}
	var stopped atomic.Bool
	stop := func() { stopped.Store(true) }

	k := e.autoChunks(int64(n))
	e.run(k, func(c int64) {
		begin, end := span(int64(n), k, c)
		for i := begin; i < end; i++ {
			if stopped.Load() {
				return
			}
			body(int(i), stop)
		}
	})
}

// ForEachPtr calls body with a pointer to every element of s.
//
// Example:
//
//	ids := []int32{4, 8, 15, 16, 23, 42}
//	threadkit.ForEachPtr(env, ids, func(id *int32) { *id *= 2 })
func ForEachPtr[T any](e *Env, s []T, body func(p *T)) {
	e.For(len(s), func(i int) { body(&s[i]) })
}
