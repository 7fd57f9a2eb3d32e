package threadkit

import "fmt"

// Errors surfaced by New and by the internal scheduler. Parallel primitives
// never return them: a scheduler that cannot take work means the calling
// goroutine runs it instead.
var (
	// ErrSchedulerClosed is returned when submitting to a scheduler that has
	// been shut down, either by Env.Close or by a SetThreadCount that replaced it.
	ErrSchedulerClosed = &Error{msg: "scheduler is closed"}

	// ErrNilTask is returned when submitting a nil job.
	ErrNilTask = &Error{msg: "task is nil"}

	// ErrInvalidConfig is wrapped by every configuration validation failure.
	//
	// Example:
	//  _, err := threadkit.New(threadkit.WithQueueSizePerWorker(100))
	//  if errors.Is(err, threadkit.ErrInvalidConfig) {
	//      log.Println("queue size must be a power of two")
	//  }
	ErrInvalidConfig = &Error{msg: "invalid config"}
)

// Error is an error raised by threadkit. It wraps an underlying error and
// supports errors.Is and errors.As.
type Error struct {
	msg string // Human-readable error message
	err error  // Underlying error (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("threadkit: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("threadkit: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// errInvalidConfig creates an error for an invalid configuration.
func errInvalidConfig(msg string) error {
	return &Error{msg: msg, err: ErrInvalidConfig}
}

// PanicError wraps a panic recovered from a loop body, reduce function or task.
// The primitive that ran the work re-panics with it in the calling goroutine
// once every other piece of the region has finished.
type PanicError struct {
	Value interface{}
	Stack string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
