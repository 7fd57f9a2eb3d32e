package threadkit

import "time"

// Stats is a snapshot of scheduler counters. Counters are read without locks
// and may be slightly inconsistent while jobs are running.
//
// Example:
//
//	st := env.Stats()
//	log.Printf("stolen %d of %d jobs", st.Stolen, st.Submitted)
type Stats struct {
	// MaxThreads is the environment's thread count, caller included.
	MaxThreads int

	// NumWorkers is the number of scheduler goroutines (MaxThreads-1, or 0
	// when sequential).
	NumWorkers int

	// Submitted is the total number of jobs handed to the scheduler.
	Submitted uint64

	// Completed is the total number of jobs that finished, panicked or not.
	Completed uint64

	// Stolen is the number of jobs a worker took from another worker's deque.
	Stolen uint64

	// Overflowed is the number of jobs that spilled to the shared FIFO
	// because every submission ring was full.
	Overflowed uint64

	// InlineExecuted is the number of jobs run by the submitting goroutine
	// under the ExecuteCaller overflow strategy.
	InlineExecuted uint64

	// Panicked is the number of raw jobs whose panic reached the scheduler.
	Panicked uint64

	// InFlight is Submitted - Completed.
	InFlight uint64

	// QueueDepth is the number of jobs waiting in rings, deques and the
	// shared FIFO.
	QueueDepth int

	// LatencyAvg and LatencyMax measure submission to completion.
	LatencyAvg time.Duration
	LatencyMax time.Duration

	// WorkerStats holds one entry per worker.
	WorkerStats []WorkerStats
}

// WorkerStats contains counters for one worker goroutine. Each worker owns
// its counters, so updating them is uncontended.
type WorkerStats struct {
	// WorkerID is the worker's index (0-based).
	WorkerID int

	// TasksExecuted counts jobs this worker ran, panicked or not.
	TasksExecuted uint64

	// TasksStolen counts jobs this worker stole from others.
	TasksStolen uint64

	// TasksFailed counts jobs that panicked on this worker.
	TasksFailed uint64

	// QueueDepth is the current length of the ring plus the deque.
	QueueDepth int

	// State is one of RUNNING, SPINNING, PARKED or SHUTDOWN.
	State string
}
