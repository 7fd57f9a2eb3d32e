package threadkit

import (
	"sync"

	"github.com/petermattis/goid"
)

// gstate records what a goroutine is doing inside one Env.
type gstate struct {
	// depth counts the parallel regions the goroutine is currently running
	// on behalf of this Env, nested ones included.
	depth int

	// worker is set while the goroutine is a scheduler worker.
	worker *worker
}

// registry maps goroutine ids to their state. Entries are only touched by the
// goroutine they describe, so a gstate needs no lock of its own.
type registry struct {
	m sync.Map // int64 -> *gstate
}

func (r *registry) state(id int64) *gstate {
	if v, ok := r.m.Load(id); ok {
		return v.(*gstate)
	}
	st := &gstate{}
	r.m.Store(id, st)
	return st
}

// enter marks the current goroutine as running a region and returns its id
// for the matching exit.
func (r *registry) enter() int64 {
	id := goid.Get()
	r.state(id).depth++
	return id
}

func (r *registry) exit(id int64) {
	v, ok := r.m.Load(id)
	if !ok {
		return
	}
	st := v.(*gstate)
	st.depth--
	if st.depth <= 0 && st.worker == nil {
		r.m.Delete(id)
	}
}

func (r *registry) registerWorker(w *worker) int64 {
	id := goid.Get()
	r.state(id).worker = w
	return id
}

func (r *registry) unregister(id int64) {
	r.m.Delete(id)
}

// lookup returns the current goroutine's state, or nil if it has none.
func (r *registry) lookup() *gstate {
	if v, ok := r.m.Load(goid.Get()); ok {
		return v.(*gstate)
	}
	return nil
}

// inParallel reports whether the current goroutine is a worker or is inside
// a region.
func (r *registry) inParallel() bool {
	st := r.lookup()
	return st != nil && (st.depth > 0 || st.worker != nil)
}

// currentWorker returns the worker running on this goroutine, if any.
func (r *registry) currentWorker() *worker {
	if st := r.lookup(); st != nil {
		return st.worker
	}
	return nil
}
