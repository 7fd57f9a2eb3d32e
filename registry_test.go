package threadkit

import (
	"sync"
	"testing"
)

func TestRegistry_EnterExitDepth(t *testing.T) {
	var r registry

	if r.inParallel() {
		t.Fatal("Expected fresh registry to report not in parallel")
	}

	outer := r.enter()
	inner := r.enter()
	if inner != outer {
		t.Errorf("Expected same id on one goroutine, got %d and %d", outer, inner)
	}
	if !r.inParallel() {
		t.Error("Expected inParallel after enter")
	}

	r.exit(inner)
	if !r.inParallel() {
		t.Error("Expected inParallel after leaving only the nested region")
	}

	r.exit(outer)
	if r.inParallel() {
		t.Error("Expected not in parallel after the last exit")
	}
	if r.lookup() != nil {
		t.Error("Expected state to be dropped after the last exit")
	}
}

func TestRegistry_PerGoroutineState(t *testing.T) {
	var r registry
	const n = 16

	id := r.enter()
	defer r.exit(id)

	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)

	ids := make([]int64, n)
	seen := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			seen[i] = r.inParallel()
			ids[i] = r.enter()
			r.exit(ids[i])
		}(i)
	}
	start.Done()
	wg.Wait()

	unique := map[int64]bool{id: true}
	for i := 0; i < n; i++ {
		if seen[i] {
			t.Errorf("Goroutine %d saw the caller's region", i)
		}
		if unique[ids[i]] {
			t.Errorf("Duplicate goroutine id %d", ids[i])
		}
		unique[ids[i]] = true
	}
}

func TestRegistry_Worker(t *testing.T) {
	var r registry
	w := &worker{id: 3}

	id := r.registerWorker(w)
	if r.currentWorker() != w {
		t.Error("Expected registered worker to be current")
	}
	if !r.inParallel() {
		t.Error("Expected a worker goroutine to be in parallel")
	}

	// A region entered and left by a worker keeps its registration.
	r.exit(r.enter())
	if r.currentWorker() != w {
		t.Error("Expected worker to survive a region exit")
	}

	r.unregister(id)
	if r.currentWorker() != nil {
		t.Error("Expected no worker after unregister")
	}
}
