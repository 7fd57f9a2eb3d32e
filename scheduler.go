package threadkit

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// schedulerState represents scheduler lifecycle states
type schedulerState int32

const (
	schedulerRunning schedulerState = iota
	schedulerDraining
	schedulerStopped
)

// counters are cumulative across the schedulers an Env builds, so the
// exported totals never go backwards when the thread count changes.
type counters struct {
	submitted  atomic.Uint64
	completed  atomic.Uint64
	stolen     atomic.Uint64
	overflowed atomic.Uint64
	inline     atomic.Uint64
	panicked   atomic.Uint64

	// Latency, in microseconds
	latencySum   atomic.Uint64
	latencyCount atomic.Uint64
	latencyMax   atomic.Uint64
}

// recordLatency records submission-to-completion latency
func (c *counters) recordLatency(d time.Duration) {
	micros := uint64(d.Microseconds())

	c.latencySum.Add(micros)
	c.latencyCount.Add(1)

	for {
		current := c.latencyMax.Load()
		if micros <= current {
			return
		}
		if c.latencyMax.CompareAndSwap(current, micros) {
			return
		}
	}
}

// scheduler is the work-stealing backend behind an Env. It owns the worker
// goroutines; the goroutine that opens a parallel region is not one of them.
type scheduler struct {
	cfg     *Config
	reg     *registry
	stats   *counters
	workers []*worker

	state atomic.Int32 // schedulerState
	wg    sync.WaitGroup

	// pending counts jobs accepted but not yet finished. Workers exit once
	// the scheduler is draining and pending reaches zero.
	pending atomic.Int64

	// next worker for round-robin distribution of external jobs
	next atomic.Uint64

	// overflow holds jobs that found every ring full (SpillToShared)
	overflowMu  sync.Mutex
	overflow    *queue.Queue
	overflowLen atomic.Int64
}

// newScheduler starts numWorkers workers.
func newScheduler(cfg *Config, reg *registry, stats *counters, numWorkers int) *scheduler {
	s := &scheduler{
		cfg:      cfg,
		reg:      reg,
		stats:    stats,
		workers:  make([]*worker, numWorkers),
		overflow: queue.New(),
	}
	s.state.Store(int32(schedulerRunning))

	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(wk *worker) {
			defer s.wg.Done()
			wk.run()
		}(w)
	}

	return s
}

func (s *scheduler) numWorkers() int {
	return len(s.workers)
}

func (s *scheduler) running() bool {
	return schedulerState(s.state.Load()) == schedulerRunning
}

// submit queues fn. A worker of this scheduler pushes onto its own deque;
// anyone else goes round-robin over the submission rings, and when every ring
// is full the overflow strategy decides.
//
// Returns ErrNilTask if fn is nil.
// Returns ErrSchedulerClosed once shutdown has started.
func (s *scheduler) submit(fn func()) error {
	if fn == nil {
		return ErrNilTask
	}

	// Count the job before checking state so a draining worker cannot see
	// zero pending and exit while this job is being queued.
	s.pending.Add(1)
	if !s.running() {
		s.pending.Add(-1)
		return ErrSchedulerClosed
	}

	s.stats.submitted.Add(1)
	j := &job{fn: fn, enqueued: time.Now().UnixNano()}

	if w := s.reg.currentWorker(); w != nil && w.sched == s {
		w.deque.push(j)
		s.wakeIdle(w)
		return nil
	}

	if s.tryFastSubmit(j) {
		return nil
	}

	switch s.cfg.OverflowStrategy {
	case ExecuteCaller:
		s.stats.inline.Add(1)
		s.execute(j, nil)
	default:
		s.overflowMu.Lock()
		s.overflow.Add(j)
		s.overflowLen.Add(1)
		s.overflowMu.Unlock()
		s.stats.overflowed.Add(1)
		s.wakeIdle(nil)
	}

	return nil
}

// tryFastSubmit attempts to submit to worker rings via MPSC
func (s *scheduler) tryFastSubmit(j *job) bool {
	numWorkers := len(s.workers)

	// Round-robin start index
	next := s.next.Add(1)
	startIdx := int(next % uint64(numWorkers))

	for i := 0; i < numWorkers; i++ {
		wk := s.workers[(startIdx+i)%numWorkers]
		if wk.ring.tryPush(j) {
			wk.signal()
			return true
		}
	}

	return false
}

// popOverflow takes the oldest job from the shared FIFO
func (s *scheduler) popOverflow() *job {
	if s.overflowLen.Load() == 0 {
		return nil
	}

	s.overflowMu.Lock()
	defer s.overflowMu.Unlock()

	if s.overflow.Length() == 0 {
		return nil
	}
	s.overflowLen.Add(-1)
	return s.overflow.Remove().(*job)
}

// wakeIdle signals one parked worker other than except.
func (s *scheduler) wakeIdle(except *worker) {
	for _, w := range s.workers {
		if w != except && w.getState() == workerParked {
			w.signal()
			return
		}
	}
}

// execute runs a job with panic recovery and bookkeeping. w is nil when the
// submitting goroutine runs the job itself.
func (s *scheduler) execute(j *job, w *worker) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.panicked.Add(1)
			if w != nil {
				w.tasksFailed.Add(1)
			}
			if s.cfg.PanicHandler != nil {
				s.cfg.PanicHandler(r)
			} else {
				s.cfg.Logger.Printf("job panicked: %v\n%s", r, debug.Stack())
			}
		}

		if w != nil {
			w.tasksExecuted.Add(1)
		}
		s.stats.completed.Add(1)
		s.stats.recordLatency(time.Since(time.Unix(0, j.enqueued)))
		s.pending.Add(-1)
	}()

	j.fn()
}

// shutdown stops accepting jobs, waits for every accepted job to finish and
// for all workers to exit. Safe to call more than once.
func (s *scheduler) shutdown() {
	if !s.state.CompareAndSwap(int32(schedulerRunning), int32(schedulerDraining)) {
		s.wg.Wait()
		return
	}

	for _, w := range s.workers {
		w.signal()
	}

	s.wg.Wait()
	s.state.Store(int32(schedulerStopped))
}

// snapshot fills the scheduler-dependent part of Stats.
func (s *scheduler) snapshot(st *Stats) {
	st.NumWorkers = len(s.workers)
	st.WorkerStats = make([]WorkerStats, len(s.workers))

	depth := int(s.overflowLen.Load())
	for i, w := range s.workers {
		wd := w.ring.size() + int(w.deque.size())
		depth += wd
		st.WorkerStats[i] = WorkerStats{
			WorkerID:      i,
			TasksExecuted: w.tasksExecuted.Load(),
			TasksStolen:   w.tasksStolen.Load(),
			TasksFailed:   w.tasksFailed.Load(),
			QueueDepth:    wd,
			State:         w.getState().String(),
		}
	}
	st.QueueDepth = depth
}
