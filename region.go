package threadkit

import (
	"runtime/debug"
	"sync/atomic"
)

// region is one parallel loop in flight. Chunks are claimed from a shared
// cursor by the calling goroutine and by helper jobs on the scheduler, so the
// region completes even if no helper ever gets to run.
type region struct {
	reg    *registry
	chunks int64
	body   func(chunk int64)

	next     atomic.Int64
	done     atomic.Int64
	finished chan struct{}
	panicked atomic.Pointer[PanicError]
}

// run executes body for every chunk in [0, chunks) and returns when all of
// them have finished. The first panic from body is re-raised here as a
// *PanicError once the others are done.
func (e *Env) run(chunks int64, body func(chunk int64)) {
	if chunks <= 0 {
		return
	}

	r := &region{
		reg:      &e.reg,
		chunks:   chunks,
		body:     body,
		finished: make(chan struct{}),
	}

	// With a scheduler the caller is inside the region even when no helper
	// joins it, so nested optional loops stay in this goroutine.
	if e.sched.Load() != nil {
		id := e.reg.enter()
		for i := e.helpers(chunks); i > 0; i-- {
			if err := e.submit(r.help); err != nil {
				break
			}
		}
		r.work()
		e.reg.exit(id)
	} else {
		r.work()
	}

	<-r.finished
	if p := r.panicked.Load(); p != nil {
		panic(p)
	}
}

// help is the job a region submits to the scheduler.
func (r *region) help() {
	id := r.reg.enter()
	defer r.reg.exit(id)
	r.work()
}

// work claims chunks until none are left.
func (r *region) work() {
	for {
		c := r.next.Add(1) - 1
		if c >= r.chunks {
			return
		}
		r.runChunk(c)
	}
}

func (r *region) runChunk(c int64) {
	defer func() {
		if v := recover(); v != nil {
			r.panicked.CompareAndSwap(nil, &PanicError{Value: v, Stack: string(debug.Stack())})
		}
		if r.done.Add(1) == r.chunks {
			close(r.finished)
		}
	}()

	// Once a chunk has panicked, the rest are only counted.
	if r.panicked.Load() != nil {
		return
	}
	r.body(c)
}

// span returns chunk c of [0, n) cut into k nearly equal contiguous pieces.
func span(n, k, c int64) (begin, end int64) {
	q, rem := n/k, n%k
	begin = c*q + min(c, rem)
	end = begin + q
	if c < rem {
		end++
	}
	return begin, end
}

// autoChunks is the number of chunks the default partitioner uses for n
// iterations.
func (e *Env) autoChunks(n int64) int64 {
	t := int64(e.MaxThreads())
	if t <= 1 {
		return 1
	}
	return min(n, t*int64(e.cfg.ChunksPerThread))
}
