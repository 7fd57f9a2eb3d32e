package threadkit

import (
	"log"
	"time"

	"github.com/tahsin716/threadkit/dispatch"
)

// Option configures an Env.
type Option func(*Config)

// WithNumThreads sets the number of goroutines a region may use, caller included.
// 0 means runtime.GOMAXPROCS(0).
func WithNumThreads(n int) Option {
	return func(c *Config) { c.NumThreads = n }
}

// WithQueueSizePerWorker sets each worker's submission ring size (power of 2).
func WithQueueSizePerWorker(n int) Option {
	return func(c *Config) { c.QueueSizePerWorker = n }
}

// WithOverflowStrategy sets what happens when every ring is full.
func WithOverflowStrategy(s OverflowStrategy) Option {
	return func(c *Config) { c.OverflowStrategy = s }
}

// WithPanicHandler sets the handler for panics in raw scheduler jobs.
func WithPanicHandler(h func(interface{})) Option {
	return func(c *Config) { c.PanicHandler = h }
}

// WithWorkerHooks sets worker lifecycle callbacks.
func WithWorkerHooks(onStart, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithPinWorkerThreads pins workers to OS threads and CPUs.
func WithPinWorkerThreads(pin bool) Option {
	return func(c *Config) { c.PinWorkerThreads = pin }
}

// WithMaxParkTime sets the longest a worker sleeps before rechecking for work.
func WithMaxParkTime(d time.Duration) Option {
	return func(c *Config) { c.MaxParkTime = d }
}

// WithSpinCount sets how many times an idle worker spins before parking.
func WithSpinCount(n int) Option {
	return func(c *Config) { c.SpinCount = n }
}

// WithChunksPerThread sets the auto partitioner's chunks per thread.
func WithChunksPerThread(n int) Option {
	return func(c *Config) { c.ChunksPerThread = n }
}

// WithMaxCPULevel caps the dispatch level reported by Env.CPULevel.
func WithMaxCPULevel(l dispatch.Level) Option {
	return func(c *Config) {
		c.MaxCPULevel = l
		c.capCPULevel = true
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithEnvOverrides makes New read THREADKIT_NUM_THREADS and
// THREADKIT_MAX_CPU_LEVEL after the other options are applied.
func WithEnvOverrides() Option {
	return func(c *Config) { c.envOverrides = true }
}
