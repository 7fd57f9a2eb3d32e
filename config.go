package threadkit

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/tahsin716/threadkit/dispatch"
)

// OverflowStrategy defines what the scheduler does when every worker's
// submission ring is full.
type OverflowStrategy int

const (
	// SpillToShared queues the job on a shared FIFO that idle workers drain.
	SpillToShared OverflowStrategy = iota
	// ExecuteCaller runs the job in the submitting goroutine.
	ExecuteCaller
)

// Environment variables read when WithEnvOverrides is set.
const (
	EnvNumThreads  = "THREADKIT_NUM_THREADS"
	EnvMaxCPULevel = "THREADKIT_MAX_CPU_LEVEL"
)

// Config contains all configuration options for an Env
type Config struct {
	// NumThreads is the number of goroutines a parallel region may use,
	// counting the caller. The scheduler runs NumThreads-1 workers.
	// If 0, defaults to runtime.GOMAXPROCS(0)
	NumThreads int

	// QueueSizePerWorker is the size of each worker's submission ring
	// Must be a power of 2. Defaults to 256
	QueueSizePerWorker int

	// OverflowStrategy determines behavior when every ring is full
	// Defaults to SpillToShared
	OverflowStrategy OverflowStrategy

	// PanicHandler is called when a raw scheduler job panics.
	// Loop bodies and group tasks never reach it; their panics are re-raised
	// in the waiting goroutine. If nil, panics are logged
	PanicHandler func(interface{})

	// OnWorkerStart is called when a worker starts
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops
	OnWorkerStop func(workerID int)

	// PinWorkerThreads locks each worker to an OS thread and pins that thread
	// to CPU workerID % NumCPU. Only effective on Linux
	PinWorkerThreads bool

	// MaxParkTime is the maximum time a worker will sleep when idle
	// Defaults to 10ms
	MaxParkTime time.Duration

	// SpinCount is the number of iterations to spin before parking
	// Defaults to 30
	SpinCount int

	// ChunksPerThread controls the auto partitioner: a region over n
	// iterations is cut into min(n, NumThreads*ChunksPerThread) chunks.
	// Defaults to 4
	ChunksPerThread int

	// MaxCPULevel caps the detected instruction-set level used for kernel
	// dispatch. Defaults to no cap
	MaxCPULevel dispatch.Level
	capCPULevel bool

	// Logger receives diagnostics. Defaults to stderr with a "threadkit: " prefix
	Logger *log.Logger

	envOverrides bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		NumThreads:         0, // will be set to runtime.GOMAXPROCS(0)
		QueueSizePerWorker: 256,
		OverflowStrategy:   SpillToShared,
		MaxParkTime:        10 * time.Millisecond,
		SpinCount:          30,
		ChunksPerThread:    4,
	}
}

// Validate checks the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.NumThreads < 0 {
		return errInvalidConfig("NumThreads must be >= 0")
	}

	if c.QueueSizePerWorker <= 0 {
		return errInvalidConfig("QueueSizePerWorker must be > 0")
	}

	if !isPowerOfTwo(c.QueueSizePerWorker) {
		return errInvalidConfig("QueueSizePerWorker must be a power of 2")
	}

	if c.OverflowStrategy != SpillToShared && c.OverflowStrategy != ExecuteCaller {
		return errInvalidConfig("unknown OverflowStrategy")
	}

	if c.MaxParkTime <= 0 {
		return errInvalidConfig("MaxParkTime must be > 0")
	}

	if c.SpinCount < 0 {
		return errInvalidConfig("SpinCount must be >= 0")
	}

	if c.ChunksPerThread <= 0 {
		return errInvalidConfig("ChunksPerThread must be > 0")
	}

	return nil
}

// applyEnv overlays the THREADKIT_* environment variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvNumThreads); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errInvalidConfig(EnvNumThreads + " must be a non-negative integer, got " + strconv.Quote(v))
		}
		c.NumThreads = n
	}
	if v, ok := os.LookupEnv(EnvMaxCPULevel); ok && v != "" {
		l, err := dispatch.ParseLevel(v)
		if err != nil {
			return &Error{msg: EnvMaxCPULevel, err: errInvalidConfig(err.Error())}
		}
		c.MaxCPULevel = l
		c.capCPULevel = true
	}
	return nil
}

// finalize fills the zero-valued defaults that depend on the host.
func (c *Config) finalize() {
	if c.NumThreads == 0 {
		c.NumThreads = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stderr, "threadkit: ", log.LstdFlags)
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
