package threadkit

// job is one unit of work queued on the scheduler.
type job struct {
	fn func()

	// enqueued is the submission time in unix nanoseconds, used for
	// queue-to-completion latency stats.
	enqueued int64
}
