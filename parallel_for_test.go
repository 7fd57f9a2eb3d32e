package threadkit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testThreadCounts = []int{1, 2, 8}
	testSizes        = []int{0, 1, 7, 1000, 100000}
)

// forEachConfig runs fn for every thread count and size combination.
func forEachConfig(t *testing.T, fn func(t *testing.T, e *Env, n int)) {
	for _, threads := range testThreadCounts {
		e := newTestEnv(t, threads)
		for _, n := range testSizes {
			t.Run(fmt.Sprintf("t=%d/n=%d", threads, n), func(t *testing.T) {
				fn(t, e, n)
			})
		}
	}
}

func sequentialSum(n int) int64 {
	return int64(n) * int64(n-1) / 2
}

func TestFor_SumMatchesSequential(t *testing.T) {
	variants := map[string]func(e *Env, n int, add func(i int)){
		"For":       func(e *Env, n int, add func(int)) { e.For(n, add) },
		"ForSimple": func(e *Env, n int, add func(int)) { e.ForSimple(n, add) },
		"ForInt64": func(e *Env, n int, add func(int)) {
			e.ForInt64(int64(n), func(i int64) { add(int(i)) })
		},
		"ForOptional": func(e *Env, n int, add func(int)) { e.ForOptional(n, add) },
		"ForBlocked": func(e *Env, n int, add func(int)) {
			e.ForBlocked(n, func(begin, count int) {
				for i := begin; i < begin+count; i++ {
					add(i)
				}
			})
		},
		"StaticFor": func(e *Env, n int, add func(int)) {
			e.StaticFor(n, func(i, _ int) { add(i) })
		},
		"ForBreak": func(e *Env, n int, add func(int)) {
			e.ForBreak(n, func(i int, _ func()) { add(i) })
		},
	}

	for name, run := range variants {
		t.Run(name, func(t *testing.T) {
			forEachConfig(t, func(t *testing.T, e *Env, n int) {
				var sum, calls atomic.Int64
				run(e, n, func(i int) {
					sum.Add(int64(i))
					calls.Add(1)
				})
				assert.Equal(t, sequentialSum(n), sum.Load())
				assert.Equal(t, int64(n), calls.Load())
			})
		})
	}
}

func TestFor_EachIndexOnce(t *testing.T) {
	e := newTestEnv(t, 8)
	const n = 10000

	hits := make([]int32, n)
	e.For(n, func(i int) { atomic.AddInt32(&hits[i], 1) })

	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestForBlocked_ContiguousCover(t *testing.T) {
	e := newTestEnv(t, 4)
	const n = 1003

	var mu sync.Mutex
	covered := make([]bool, n)
	e.ForBlocked(n, func(begin, count int) {
		assert.Positive(t, count)
		mu.Lock()
		defer mu.Unlock()
		for i := begin; i < begin+count; i++ {
			assert.False(t, covered[i], "index %d covered twice", i)
			covered[i] = true
		}
	})

	for i, c := range covered {
		assert.True(t, c, "index %d not covered", i)
	}
}

func TestStaticFor_DeterministicMapping(t *testing.T) {
	for _, threads := range testThreadCounts {
		e := newTestEnv(t, threads)
		for _, n := range testSizes {
			t.Run(fmt.Sprintf("t=%d/n=%d", threads, n), func(t *testing.T) {
				mapping := func() []int {
					tids := make([]int, n)
					e.StaticFor(n, func(i, tid int) { tids[i] = tid })
					return tids
				}

				first, second := mapping(), mapping()
				assert.Equal(t, first, second)

				if n == 0 {
					return
				}
				size := (n + threads - 1) / threads
				for i, tid := range first {
					require.Equal(t, i/size, tid, "index %d", i)
					require.Less(t, tid, threads)
				}
			})
		}
	}
}

func TestForBreak_StopAtFirstIteration(t *testing.T) {
	forEachConfig(t, func(t *testing.T, e *Env, n int) {
		var count atomic.Int64
		e.ForBreak(n, func(i int, stop func()) {
			count.Add(1)
			if i == 0 {
				stop()
			}
		})

		if n == 0 {
			assert.Zero(t, count.Load())
			return
		}
		assert.GreaterOrEqual(t, count.Load(), int64(1))
		assert.LessOrEqual(t, count.Load(), int64(n))
	})
}

func TestForBreak_SequentialStopsImmediately(t *testing.T) {
	e := newTestEnv(t, 1)

	var count int
	e.ForBreak(100, func(i int, stop func()) {
		count++
		if i == 9 {
			stop()
		}
	})
	assert.Equal(t, 10, count)
}

func TestForOptional_NestedRunsInCaller(t *testing.T) {
	e := newTestEnv(t, 4)
	assert.False(t, e.IsInParallel())

	var inner atomic.Int64
	e.ForSimple(8, func(int) {
		assert.True(t, e.IsInParallel())
		e.ForOptional(100, func(int) { inner.Add(1) })
	})

	assert.Equal(t, int64(800), inner.Load())
	assert.False(t, e.IsInParallel())
}

func TestForOptional_InsideSingleChunkRegion(t *testing.T) {
	e := newTestEnv(t, 4)

	for name, outer := range map[string]func(body func()){
		"For":       func(body func()) { e.For(1, func(int) { body() }) },
		"StaticFor": func(body func()) { e.StaticFor(1, func(int, int) { body() }) },
		"ForSimple": func(body func()) { e.ForSimple(1, func(int) { body() }) },
	} {
		t.Run(name, func(t *testing.T) {
			before := e.Stats().Submitted

			var inner atomic.Int64
			var inParallel bool
			outer(func() {
				inParallel = e.IsInParallel()
				e.ForOptional(1000, func(int) { inner.Add(1) })
			})

			assert.True(t, inParallel)
			assert.Equal(t, int64(1000), inner.Load())
			assert.Equal(t, before, e.Stats().Submitted, "nested optional loop reached the scheduler")
			assert.False(t, e.IsInParallel())
		})
	}
}

func TestFor_NestedRegionsComplete(t *testing.T) {
	e := newTestEnv(t, 4)

	var total atomic.Int64
	e.For(16, func(int) {
		e.For(16, func(int) {
			e.For(16, func(int) { total.Add(1) })
		})
	})
	assert.Equal(t, int64(16*16*16), total.Load())
}

func TestFor_PanicPropagates(t *testing.T) {
	for _, threads := range testThreadCounts {
		t.Run(fmt.Sprintf("t=%d", threads), func(t *testing.T) {
			e := newTestEnv(t, threads)

			defer func() {
				r := recover()
				require.NotNil(t, r)
				pe, ok := r.(*PanicError)
				require.True(t, ok, "expected *PanicError, got %T", r)
				assert.Equal(t, "boom", pe.Value)
				assert.NotEmpty(t, pe.Stack)
			}()

			e.For(1000, func(i int) {
				if i == 500 {
					panic("boom")
				}
			})
			t.Fatal("For should have panicked")
		})
	}
}

func TestFor_UsableAfterClose(t *testing.T) {
	e := newTestEnv(t, 4)
	e.Close()

	var sum atomic.Int64
	e.For(100, func(i int) { sum.Add(int64(i)) })
	assert.Equal(t, sequentialSum(100), sum.Load())
}

func TestForEachPtr(t *testing.T) {
	e := newTestEnv(t, 4)

	ids := make([]int32, 5000)
	for i := range ids {
		ids[i] = int32(i)
	}
	ForEachPtr(e, ids, func(p *int32) { *p *= 2 })

	for i, id := range ids {
		require.Equal(t, int32(2*i), id)
	}
}

func TestSpan_CoversRange(t *testing.T) {
	for _, n := range []int64{1, 7, 100, 1001} {
		for _, k := range []int64{1, 3, 7} {
			if k > n {
				continue
			}
			var next int64
			for c := int64(0); c < k; c++ {
				begin, end := span(n, k, c)
				require.Equal(t, next, begin)
				require.Greater(t, end, begin)
				next = end
			}
			require.Equal(t, n, next)
		}
	}
}
