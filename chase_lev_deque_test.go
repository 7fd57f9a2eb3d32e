package threadkit

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func counterJob(n *int) *job {
	return &job{fn: func() { *n++ }}
}

// ============================================================================
// BASIC FUNCTIONALITY TESTS
// ============================================================================

func TestChaseLevDeque_PushPop(t *testing.T) {
	d := newChaseLevDeque(16)

	executed := 0
	d.push(counterJob(&executed))

	if d.size() != 1 {
		t.Errorf("Expected size 1, got %d", d.size())
	}

	j := d.pop()
	if j == nil {
		t.Fatal("Failed to pop from deque")
	}

	j.fn()
	if executed != 1 {
		t.Error("Job was not executed")
	}

	if !d.isEmpty() {
		t.Errorf("Expected empty deque after pop, got size %d", d.size())
	}
}

func TestChaseLevDeque_Empty(t *testing.T) {
	d := newChaseLevDeque(16)

	if d.pop() != nil {
		t.Error("Expected nil from pop on empty deque")
	}
	if d.steal() != nil {
		t.Error("Expected nil from steal on empty deque")
	}

	d.push(nil)
	if d.size() != 0 {
		t.Error("Pushing nil should not add to size")
	}
}

func TestChaseLevDeque_Order(t *testing.T) {
	tests := []struct {
		name string
		take func(d *chaseLevDeque) *job
		want []int
	}{
		{"pop is LIFO", (*chaseLevDeque).pop, []int{4, 3, 2, 1, 0}},
		{"steal is FIFO", (*chaseLevDeque).steal, []int{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newChaseLevDeque(16)
			var ids []int
			for i := 0; i < 5; i++ {
				id := i
				d.push(&job{fn: func() { ids = append(ids, id) }})
			}

			for i := 0; i < 5; i++ {
				j := tt.take(d)
				if j == nil {
					t.Fatalf("Failed to take job at position %d", i)
				}
				j.fn()
			}

			for i, id := range ids {
				if id != tt.want[i] {
					t.Errorf("Expected id %d at position %d, got %d", tt.want[i], i, id)
				}
			}
		})
	}
}

func TestChaseLevDeque_Resize(t *testing.T) {
	d := newChaseLevDeque(4)

	if d.capacity() != 4 {
		t.Errorf("Expected initial capacity 4, got %d", d.capacity())
	}

	n := 0
	for i := 0; i < 10; i++ {
		d.push(counterJob(&n))
	}

	if d.capacity() <= 4 {
		t.Errorf("Expected capacity to grow past 4, got %d", d.capacity())
	}

	for i := 0; i < 10; i++ {
		if d.pop() == nil {
			t.Fatalf("Failed to pop after resize at index %d", i)
		}
	}

}

func TestChaseLevDeque_Shrink(t *testing.T) {
	d := newChaseLevDeque(minDequeCapacity)

	n := 0
	for i := 0; i < 10*minDequeCapacity; i++ {
		d.push(counterJob(&n))
	}

	if d.shrink() {
		t.Fatal("Expected shrink to refuse a non-empty deque")
	}

	for d.pop() != nil {
	}

	grown := d.capacity()
	if !d.shrink() {
		t.Fatalf("Expected shrink of empty deque with capacity %d", grown)
	}
	if d.capacity() != minDequeCapacity {
		t.Errorf("Expected capacity %d after shrink, got %d", minDequeCapacity, d.capacity())
	}
	if d.shrink() {
		t.Error("Expected second shrink to be a no-op")
	}

	// Indices keep counting from where they were.
	d.push(counterJob(&n))
	if d.steal() == nil || !d.isEmpty() {
		t.Error("Expected the deque to work after shrink")
	}
}

func TestChaseLevDeque_ShrinkWithThieves(t *testing.T) {
	d := newChaseLevDeque(minDequeCapacity)
	const rounds = 200
	const perRound = 8 * minDequeCapacity

	var executed atomic.Int64
	var stop atomic.Bool
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				if j := d.steal(); j != nil {
					j.fn()
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	for r := 0; r < rounds; r++ {
		for i := 0; i < perRound; i++ {
			d.push(&job{fn: func() { executed.Add(1) }})
		}
		for {
			j := d.pop()
			if j == nil {
				break
			}
			j.fn()
		}
		for !d.isEmpty() {
			runtime.Gosched()
		}
		d.shrink()
	}

	stop.Store(true)
	wg.Wait()

	if got := executed.Load(); got != rounds*perRound {
		t.Errorf("Expected %d executions, got %d", rounds*perRound, got)
	}
}

// ============================================================================
// CONCURRENT TESTS - Owner vs Thieves
// ============================================================================

func TestChaseLevDeque_PopAndStealLastElement(t *testing.T) {
	// Only one of pop and steal may get the single element
	const iterations = 5000

	for iter := 0; iter < iterations; iter++ {
		d := newChaseLevDeque(16)
		n := 0
		d.push(counterJob(&n))

		var got atomic.Int32
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			if d.pop() != nil {
				got.Add(1)
			}
		}()

		go func() {
			defer wg.Done()
			if d.steal() != nil {
				got.Add(1)
			}
		}()

		wg.Wait()

		// A steal can lose its CAS to the pop, so the job may also still be
		// there, never taken twice.
		if g := got.Load(); g > 1 {
			t.Fatalf("Iteration %d: job taken %d times", iter, g)
		} else if g == 0 && d.pop() == nil {
			t.Fatalf("Iteration %d: job lost", iter)
		}
	}
}

func TestChaseLevDeque_NoDuplicates(t *testing.T) {
	d := newChaseLevDeque(32)
	const numJobs = 10000

	counts := make([]int32, numJobs)
	var remaining atomic.Int64
	remaining.Store(numJobs)

	// Owner pushes while thieves steal; the owner pops what is left.
	var wg sync.WaitGroup
	const numThieves = 4
	for i := 0; i < numThieves; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for remaining.Load() > 0 {
				if j := d.steal(); j != nil {
					j.fn()
					remaining.Add(-1)
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	for i := 0; i < numJobs; i++ {
		id := i
		d.push(&job{fn: func() { atomic.AddInt32(&counts[id], 1) }})
		if i%3 == 0 {
			if j := d.pop(); j != nil {
				j.fn()
				remaining.Add(-1)
			}
		}
	}

	for remaining.Load() > 0 {
		if j := d.pop(); j != nil {
			j.fn()
			remaining.Add(-1)
		} else {
			runtime.Gosched()
		}
	}
	wg.Wait()

	for id, c := range counts {
		if c != 1 {
			t.Errorf("Job %d executed %d times (expected 1)", id, c)
		}
	}
}
