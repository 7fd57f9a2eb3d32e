package threadkit

import (
	"runtime"
	"sync/atomic"
)

// ring is a bounded, lock-free MPSC queue of jobs. Any goroutine may push;
// only the owning worker pops.
type ring struct {
	_ cacheLinePad

	// head is only modified by the consumer
	head atomic.Uint64

	_ cacheLinePad

	// tail is claimed by producers via CAS
	tail atomic.Uint64

	_ cacheLinePad

	slots []atomic.Pointer[job]
	mask  uint64
}

// newRing creates a ring. capacity must be a power of two.
func newRing(capacity int) *ring {
	if !isPowerOfTwo(capacity) {
		panic("threadkit: ring capacity must be a power of two")
	}
	return &ring{
		slots: make([]atomic.Pointer[job], capacity),
		mask:  uint64(capacity - 1),
	}
}

// tryPush claims a slot and publishes j. It returns false if the ring is
// full or stays contended past the retry budget.
func (q *ring) tryPush(j *job) bool {
	if j == nil {
		return false
	}

	const maxAttempts = 64
	size := q.mask + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		tail := q.tail.Load()
		head := q.head.Load()

		// Leave one slot empty to distinguish full from empty
		if tail-head >= size-1 {
			return false
		}

		if q.tail.CompareAndSwap(tail, tail+1) {
			q.slots[tail&q.mask].Store(j)
			return true
		}

		// Lost the race: back off harder the longer it lasts
		spins := 1
		if attempt >= 4 {
			spins = 1 << min(attempt-4, 4)
		}
		for i := 0; i < spins; i++ {
			runtime.Gosched()
		}
	}

	return false
}

// pop removes one job. Consumer only.
//
// A producer may have claimed the head slot without storing into it yet; pop
// then reports empty and the job is picked up on a later call.
func (q *ring) pop() *job {
	head := q.head.Load()
	if head >= q.tail.Load() {
		return nil
	}

	slot := &q.slots[head&q.mask]
	j := slot.Load()
	if j == nil {
		return nil
	}

	slot.Store(nil)
	q.head.Store(head + 1)
	return j
}

// size returns the approximate number of queued jobs
func (q *ring) size() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

func (q *ring) isEmpty() bool {
	return q.head.Load() >= q.tail.Load()
}
