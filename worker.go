package threadkit

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tahsin716/threadkit/internal/affinity"
)

// workerState represents the current state of a worker
type workerState int32

const (
	workerRunning workerState = iota
	workerSpinning
	workerParked
	workerShutdown
)

func (s workerState) String() string {
	switch s {
	case workerRunning:
		return "RUNNING"
	case workerSpinning:
		return "SPINNING"
	case workerParked:
		return "PARKED"
	case workerShutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// worker is a single scheduler goroutine
type worker struct {
	id    int
	sched *scheduler

	// External submissions: MPSC, drained by this worker only
	ring *ring

	// Local work: Chase-Lev deque (jobs this worker spawns, plus promoted
	// ring jobs, so that others can steal them)
	deque *chaseLevDeque

	state atomic.Int32 // workerState

	// Metrics
	tasksExecuted atomic.Uint64
	tasksStolen   atomic.Uint64
	tasksFailed   atomic.Uint64

	// XorShift PRNG seed for victim selection
	seed uint32

	// Unix nanoseconds of the last job this worker ran
	lastActive atomic.Int64

	// Parking mechanism
	parkMu   sync.Mutex
	parkCond *sync.Cond
	wakeup   atomic.Uint32 // 1 = wakeup requested
}

// newWorker creates a new worker
func newWorker(id int, s *scheduler) *worker {
	w := &worker{
		id:    id,
		sched: s,
		ring:  newRing(s.cfg.QueueSizePerWorker),
		deque: newChaseLevDeque(minDequeCapacity),
		seed:  uint32(time.Now().UnixNano()+int64(id)*1000) | 1,
	}
	w.parkCond = sync.NewCond(&w.parkMu)
	w.state.Store(int32(workerRunning))
	w.lastActive.Store(time.Now().UnixNano())
	return w
}

func (w *worker) getState() workerState {
	return workerState(w.state.Load())
}

// run is the main worker loop
func (w *worker) run() {
	s := w.sched

	gid := s.reg.registerWorker(w)
	defer s.reg.unregister(gid)

	if s.cfg.PinWorkerThreads {
		// Never unlocked: the pinned thread exits with this goroutine.
		runtime.LockOSThread()
		if err := affinity.Pin(w.id % runtime.NumCPU()); err != nil {
			s.cfg.Logger.Printf("worker %d: pin to cpu failed: %v", w.id, err)
		}
	}

	if s.cfg.OnWorkerStart != nil {
		s.cfg.OnWorkerStart(w.id)
	}

	idleIterations := 0

	for {
		j := w.findJob()
		if j == nil {
			if !s.running() && s.pending.Load() == 0 {
				break
			}

			idleIterations++
			if idleIterations%idleCheckInterval == 0 {
				w.shrinkIfIdle(time.Now())
			}
			continue
		}

		idleIterations = 0
		w.lastActive.Store(time.Now().UnixNano())
		s.execute(j, w)
	}

	w.state.Store(int32(workerShutdown))

	if s.cfg.OnWorkerStop != nil {
		s.cfg.OnWorkerStop(w.id)
	}
}

// Periodic memory cleanup: a worker that has found nothing for
// idleCheckInterval loops and has not run a job for idleShrinkAfter gives back
// a deque grown by an earlier burst.
const (
	idleCheckInterval = 64
	idleShrinkAfter   = 5 * time.Second
)

// shrinkIfIdle releases the deque's grown array when both local queues are
// empty and the worker has been idle long enough. Owner only.
func (w *worker) shrinkIfIdle(now time.Time) bool {
	if !w.ring.isEmpty() {
		return false
	}
	if now.Sub(time.Unix(0, w.lastActive.Load())) < idleShrinkAfter {
		return false
	}
	return w.deque.shrink()
}

// findJob looks for work in priority order: own deque, own ring, the shared
// overflow FIFO, other workers' deques. It parks when all are empty.
func (w *worker) findJob() *job {
	if j := w.findLocal(); j != nil {
		return j
	}

	if j := w.trySteal(); j != nil {
		return j
	}

	return w.parkAndWait()
}

// findLocal checks the queues this worker may pop from.
func (w *worker) findLocal() *job {
	if j := w.deque.pop(); j != nil {
		return j
	}

	w.promoteRing()
	if j := w.deque.pop(); j != nil {
		return j
	}

	return w.sched.popOverflow()
}

// promoteRing moves a batch of external jobs onto the local deque, where
// idle workers can steal them. Owner only.
func (w *worker) promoteRing() {
	const batchSize = 8
	for i := 0; i < batchSize; i++ {
		j := w.ring.pop()
		if j == nil {
			return
		}
		w.deque.push(j)
	}
}

// trySteal makes a bounded number of attempts at random victims
func (w *worker) trySteal() *job {
	workers := w.sched.workers
	if len(workers) <= 1 {
		return nil
	}

	attempts := 2 * len(workers)
	for i := 0; i < attempts; i++ {
		victim := workers[w.randomVictim(len(workers))]
		if victim == w {
			continue
		}

		if j := victim.deque.steal(); j != nil {
			w.tasksStolen.Add(1)
			w.sched.stats.stolen.Add(1)
			return j
		}

		if i > 4 {
			runtime.Gosched()
		}
	}

	return nil
}

// randomVictim selects a random worker index using XorShift
func (w *worker) randomVictim(n int) int {
	w.seed ^= w.seed << 13
	w.seed ^= w.seed >> 17
	w.seed ^= w.seed << 5
	return int(w.seed % uint32(n))
}

// parkAndWait spins briefly, then sleeps until signalled or MaxParkTime
// passes. It returns a job if one turned up, nil otherwise.
func (w *worker) parkAndWait() *job {
	cfg := w.sched.cfg

	// Phase 1: spin
	w.state.Store(int32(workerSpinning))
	for i := 0; i < cfg.SpinCount; i++ {
		if j := w.findLocal(); j != nil {
			w.state.Store(int32(workerRunning))
			return j
		}
		runtime.Gosched()
	}

	if !w.sched.running() {
		w.state.Store(int32(workerRunning))
		return nil
	}

	// Phase 2: park. The state is published before the wakeup flag is read,
	// and signal sets the flag before it reads the state, so one of the two
	// always sees the other.
	w.parkMu.Lock()
	w.state.Store(int32(workerParked))

	if w.wakeup.Swap(0) == 1 || !w.ring.isEmpty() || w.sched.overflowLen.Load() > 0 || w.stealable() {
		w.parkMu.Unlock()
		w.state.Store(int32(workerRunning))
		return w.findLocal()
	}

	timer := time.AfterFunc(cfg.MaxParkTime, func() {
		w.parkMu.Lock()
		w.parkCond.Signal()
		w.parkMu.Unlock()
	})

	w.parkCond.Wait()
	w.parkMu.Unlock()
	timer.Stop()

	w.wakeup.Store(0)
	w.state.Store(int32(workerRunning))

	return w.findLocal()
}

// stealable reports whether another worker's deque has jobs.
func (w *worker) stealable() bool {
	for _, other := range w.sched.workers {
		if other != w && !other.deque.isEmpty() {
			return true
		}
	}
	return false
}

// signal wakes the worker if it is parked
func (w *worker) signal() {
	w.wakeup.Store(1)
	if w.getState() == workerParked {
		w.parkMu.Lock()
		w.parkCond.Signal()
		w.parkMu.Unlock()
	}
}
