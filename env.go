package threadkit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tahsin716/threadkit/dispatch"
)

// Env is the execution environment every primitive runs in: the thread count,
// the work-stealing scheduler behind it and the CPU level kernels dispatch on.
// The process entry point creates one with New and tears it down with Close.
//
// An Env is safe for concurrent use. SetThreadCount and Close must not be
// called from inside a parallel region of the same Env.
type Env struct {
	cfg   Config
	reg   registry
	stats counters
	level dispatch.Level

	// mu serializes reconfiguration
	mu      sync.Mutex
	threads atomic.Int32
	sched   atomic.Pointer[scheduler]
}

// New creates an Env with the given options.
// It returns an error if the configuration is invalid.
//
// Example:
//
//	env, err := threadkit.New(
//	    threadkit.WithNumThreads(8),
//	    threadkit.WithEnvOverrides(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
func New(opts ...Option) (*Env, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.envOverrides {
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.finalize()

	e := &Env{cfg: cfg}

	e.level = dispatch.Detect()
	if cfg.capCPULevel {
		e.level = e.level.Cap(cfg.MaxCPULevel)
	}

	e.setThreads(cfg.NumThreads)
	return e, nil
}

// MaxThreads returns the number of goroutines a parallel region may use,
// the calling goroutine included. It is always at least 1.
func (e *Env) MaxThreads() int {
	return int(e.threads.Load())
}

// SetThreadCount reconfigures the scheduler for n threads. n <= 1 switches
// to strict sequential execution. Jobs already queued on the old scheduler
// finish before SetThreadCount returns.
func (e *Env) SetThreadCount(n int) {
	e.mu.Lock()
	old := e.setThreads(n)
	e.mu.Unlock()

	if old != nil {
		old.shutdown()
	}
	e.cfg.Logger.Printf("thread count set to %d", e.MaxThreads())
}

// setThreads installs a scheduler for n threads and returns the replaced one.
func (e *Env) setThreads(n int) *scheduler {
	if n < 1 {
		n = 1
	}

	var s *scheduler
	if n > 1 {
		s = newScheduler(&e.cfg, &e.reg, &e.stats, n-1)
	}

	e.threads.Store(int32(n))
	return e.sched.Swap(s)
}

// IsInParallel reports whether the calling goroutine is a scheduler worker
// or is currently running a parallel region of this Env.
func (e *Env) IsInParallel() bool {
	return e.reg.inParallel()
}

// CPULevel returns the instruction-set level resolved when the Env was created.
func (e *Env) CPULevel() dispatch.Level {
	return e.level
}

// Stats returns a snapshot of scheduler statistics. Totals are cumulative
// across thread count changes; per-worker entries describe the current
// scheduler only.
func (e *Env) Stats() Stats {
	st := Stats{
		MaxThreads:     e.MaxThreads(),
		Submitted:      e.stats.submitted.Load(),
		Completed:      e.stats.completed.Load(),
		Stolen:         e.stats.stolen.Load(),
		Overflowed:     e.stats.overflowed.Load(),
		InlineExecuted: e.stats.inline.Load(),
		Panicked:       e.stats.panicked.Load(),
	}
	if st.Submitted > st.Completed {
		st.InFlight = st.Submitted - st.Completed
	}

	if count := e.stats.latencyCount.Load(); count > 0 {
		st.LatencyAvg = time.Duration(e.stats.latencySum.Load()/count) * time.Microsecond
		st.LatencyMax = time.Duration(e.stats.latencyMax.Load()) * time.Microsecond
	}

	if s := e.sched.Load(); s != nil {
		s.snapshot(&st)
	}
	return st
}

// Close shuts the scheduler down gracefully. The Env stays usable afterwards
// and runs everything sequentially.
func (e *Env) Close() {
	e.mu.Lock()
	old := e.setThreads(1)
	e.mu.Unlock()

	if old != nil {
		old.shutdown()
	}
}

// submit hands fn to the current scheduler.
func (e *Env) submit(fn func()) error {
	s := e.sched.Load()
	if s == nil {
		return ErrSchedulerClosed
	}
	return s.submit(fn)
}

// helpers returns how many scheduler jobs a region of n chunks may use.
func (e *Env) helpers(chunks int64) int {
	s := e.sched.Load()
	if s == nil || chunks <= 1 {
		return 0
	}
	h := s.numWorkers()
	if int64(h) > chunks-1 {
		h = int(chunks - 1)
	}
	return h
}
