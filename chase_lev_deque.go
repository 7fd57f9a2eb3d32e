package threadkit

import (
	"sync/atomic"
)

// cacheLinePad prevents false sharing by padding to cache line size (64 bytes)
type cacheLinePad struct {
	_ [64]byte
}

// chaseLevDeque is a lock-free work-stealing deque
//
// Properties:
// - Owner can push/pop at bottom (LIFO - newest jobs first)
// - Thieves steal from top (FIFO - oldest jobs first)
// - Lock-free coordination between owner and thieves
// - Dynamically resizable
//
// Go's sync/atomic operations are sequentially consistent, which provides the
// fences the original algorithm needs between the bottom store and top load.
type chaseLevDeque struct {
	_ cacheLinePad

	// top is the steal end (incremented by thieves via CAS)
	top atomic.Int64

	_ cacheLinePad

	// bottom is the owner end (modified only by owner)
	bottom atomic.Int64

	_ cacheLinePad

	// array is replaced by a larger one when full
	array atomic.Pointer[circularArray]
}

// circularArray is the underlying storage for the deque.
// Slots are atomic because a thief can read a slot the owner is rewriting
// after a wrap; the thief's CAS on top then fails and the value is discarded.
type circularArray struct {
	capacity int64
	buffer   []atomic.Pointer[job]
}

const minDequeCapacity = 16

// newChaseLevDeque creates a new work-stealing deque
func newChaseLevDeque(initialCapacity int64) *chaseLevDeque {
	if initialCapacity <= 0 {
		initialCapacity = minDequeCapacity
	}

	d := &chaseLevDeque{}
	d.array.Store(newCircularArray(initialCapacity))
	return d
}

func newCircularArray(capacity int64) *circularArray {
	return &circularArray{
		capacity: capacity,
		buffer:   make([]atomic.Pointer[job], capacity),
	}
}

func (a *circularArray) get(index int64) *job {
	return a.buffer[index%a.capacity].Load()
}

func (a *circularArray) put(index int64, j *job) {
	a.buffer[index%a.capacity].Store(j)
}

// push adds a job to the bottom (owner only, LIFO end)
//
// Algorithm:
// 1. Load bottom and top
// 2. Grow if needed
// 3. Store job at bottom
// 4. Publish by incrementing bottom
func (d *chaseLevDeque) push(j *job) {
	if j == nil {
		return
	}

	bottom := d.bottom.Load()
	top := d.top.Load()
	array := d.array.Load()

	// Leave one slot empty to avoid ambiguity
	if bottom-top >= array.capacity-1 {
		array = d.resize(bottom, top, array)
		d.array.Store(array)
	}

	array.put(bottom, j)
	d.bottom.Store(bottom + 1)
}

// pop removes and returns a job from the bottom (owner only, LIFO)
// Returns nil if empty
//
// Algorithm:
// 1. Decrement bottom
// 2. Load top
// 3. If deque is empty (top > bottom), restore bottom and return nil
// 4. Load job at bottom
// 5. If this is the last element (top == bottom), CAS top to beat a thief
func (d *chaseLevDeque) pop() *job {
	bottom := d.bottom.Load() - 1
	array := d.array.Load()
	d.bottom.Store(bottom)

	top := d.top.Load()

	if top > bottom {
		d.bottom.Store(bottom + 1)
		return nil
	}

	j := array.get(bottom)

	if top == bottom {
		// Last element: race with steal, CAS decides the winner
		if !d.top.CompareAndSwap(top, top+1) {
			j = nil
		}
		d.bottom.Store(bottom + 1)
		return j
	}

	return j
}

// steal attempts to steal a job from the top (thieves, FIFO)
// Returns nil if empty or if lost race with another thief/owner
// Safe for concurrent use by any number of thieves
func (d *chaseLevDeque) steal() *job {
	top := d.top.Load()
	bottom := d.bottom.Load()

	if top >= bottom {
		return nil
	}

	array := d.array.Load()
	j := array.get(top)

	// Claim by incrementing top; losing the CAS means someone else took it
	if !d.top.CompareAndSwap(top, top+1) {
		return nil
	}

	return j
}

// resize creates a new array of twice the capacity holding [top, bottom)
func (d *chaseLevDeque) resize(bottom, top int64, oldArray *circularArray) *circularArray {
	newArray := newCircularArray(oldArray.capacity * 2)
	for i := top; i < bottom; i++ {
		newArray.put(i, oldArray.get(i))
	}
	return newArray
}

// size returns an estimate of the current size
func (d *chaseLevDeque) size() int64 {
	size := d.bottom.Load() - d.top.Load()
	if size < 0 {
		return 0
	}
	return size
}

func (d *chaseLevDeque) isEmpty() bool {
	return d.size() == 0
}

func (d *chaseLevDeque) capacity() int64 {
	return d.array.Load().capacity
}

// shrink swaps an empty deque's array for a minimum-capacity one. Owner
// only. top and bottom are left alone so a thief holding a stale view still
// loses its CAS on top.
func (d *chaseLevDeque) shrink() bool {
	if !d.isEmpty() || d.capacity() <= 2*minDequeCapacity {
		return false
	}
	d.array.Store(newCircularArray(minDequeCapacity))
	return true
}
