package threadkit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLS_ReuseAfterRelease(t *testing.T) {
	e := newTestEnv(t, 2)

	var created atomic.Int32
	ls := NewLS(e, func() *scratch {
		created.Add(1)
		return &scratch{}
	})

	v := ls.Local()
	ls.Release(v)

	// A different goroutine picks up the free value.
	var got *scratch
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = ls.Local()
	}()
	wg.Wait()

	assert.Same(t, v, got)
	assert.Equal(t, int32(1), created.Load())
}

func TestLS_PrefersOwnFreeValue(t *testing.T) {
	e := newTestEnv(t, 2)
	ls := NewLS(e, func() *scratch { return &scratch{} })

	mine := ls.Local()

	other := make(chan *scratch)
	go func() {
		v := ls.Local()
		ls.Release(v)
		other <- v
	}()
	theirs := <-other

	ls.Release(mine)
	assert.Same(t, mine, ls.Local())
	assert.Same(t, theirs, ls.Local())
}

func TestLS_NeverHandsOutTwice(t *testing.T) {
	e := newTestEnv(t, 8)
	ls := NewLS(e, func() *scratch { return &scratch{} })

	var mu sync.Mutex
	inUse := make(map[*scratch]bool)

	e.ForSimple(10000, func(i int) {
		v := ls.Local()

		mu.Lock()
		dup := inUse[v]
		inUse[v] = true
		mu.Unlock()
		assert.False(t, dup, "value checked out twice")

		v.sum += int64(i)

		mu.Lock()
		delete(inUse, v)
		mu.Unlock()
		ls.Release(v)
	})

	var total int64
	ls.Reduce(func(s *scratch) { total += s.sum })
	assert.Equal(t, sequentialSum(10000), total)
	assert.Zero(t, ls.Len())
}

func TestLS_NestedRegionsGetDistinctValues(t *testing.T) {
	e := newTestEnv(t, 1)
	ls := NewLS(e, func() *scratch { return &scratch{} })

	e.For(3, func(int) {
		ls.With(func(outer *scratch) {
			e.For(3, func(int) {
				ls.With(func(inner *scratch) {
					require.NotSame(t, outer, inner)
				})
			})
		})
	})
	assert.Equal(t, 2, ls.Len())
}

func TestLS_LeaseReleaseIsIdempotent(t *testing.T) {
	e := newTestEnv(t, 2)
	ls := NewLS(e, func() *scratch { return &scratch{} })

	lease := ls.Acquire()
	v := lease.Value()
	lease.Release()
	lease.Release()

	assert.Same(t, v, ls.Local())
	ls.Release(&scratch{}) // unknown values are ignored
	assert.Equal(t, 1, ls.Len())
}

func TestLS_ReduceVisitsFreeAndUsedOnce(t *testing.T) {
	e := newTestEnv(t, 2)
	ls := NewLS(e, func() *scratch { return &scratch{} })

	a, b, c := ls.Local(), ls.Local(), ls.Local()
	ls.Release(b)

	seen := make(map[*scratch]int)
	ls.Reduce(func(s *scratch) { seen[s]++ })

	assert.Equal(t, map[*scratch]int{a: 1, b: 1, c: 1}, seen)
	assert.Zero(t, ls.Len())

	// Pool starts over after Reduce
	assert.NotSame(t, a, ls.Local())
}

func TestLS_TLSMode(t *testing.T) {
	e := newTestEnv(t, 2)

	var created atomic.Int32
	ls := NewLS(e, func() *scratch {
		created.Add(1)
		return &scratch{}
	}, WithTLSMode())

	v := ls.Local()
	ls.Release(v)
	assert.Same(t, v, ls.Local())
	assert.Equal(t, 1, ls.Len())

	var visited int
	ls.Reduce(func(*scratch) { visited++ })
	assert.Equal(t, 1, visited)
	assert.Zero(t, ls.Len())

	assert.NotSame(t, v, ls.Local())
	assert.Equal(t, int32(2), created.Load())
}
