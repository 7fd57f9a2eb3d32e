package threadkit

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Task is a unit of work for a TaskGroup. Run is called once, then Destroy
// is called once, by the same goroutine.
type Task interface {
	Run()
	Destroy()
}

// TaskFunc adapts a plain function to Task. Destroy does nothing.
type TaskFunc func()

func (f TaskFunc) Run()   { f() }
func (TaskFunc) Destroy() {}

// shim is shared by the group's pending FIFO and the scheduler job. The
// holder that claims it first runs and destroys the task; the other drops it.
type shim struct {
	task    Task
	claimed atomic.Bool
}

// TaskGroup is a joinable set of tasks. It may be reused after Wait.
//
// Example:
//
//	g := threadkit.NewTaskGroup(env)
//	g.Go(func() { checksum(a) })
//	g.Go(func() { checksum(b) })
//	g.Wait()
type TaskGroup struct {
	env *Env

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue // *shim, in submission order
	active  int          // submitted tasks not yet destroyed
	failure *PanicError  // first task panic since the last Wait
}

// NewTaskGroup creates an empty group.
func NewTaskGroup(e *Env) *TaskGroup {
	g := &TaskGroup{
		env:     e,
		pending: queue.New(),
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Run submits task. Without a scheduler the task runs inline.
func (g *TaskGroup) Run(task Task) {
	if task == nil {
		return
	}
	sh := &shim{task: task}

	g.mu.Lock()
	g.prune()
	g.pending.Add(sh)
	g.active++
	g.cond.Broadcast()
	g.mu.Unlock()

	if err := g.env.submit(func() { g.runShim(sh) }); err != nil {
		g.runShim(sh)
	}
}

// Go submits fn as a task.
func (g *TaskGroup) Go(fn func()) {
	g.Run(TaskFunc(fn))
}

// Wait runs queued tasks in the calling goroutine and blocks until every
// submitted task has finished, including tasks submitted while waiting. If a
// task panicked, Wait re-panics with the first *PanicError.
func (g *TaskGroup) Wait() {
	g.mu.Lock()
	for {
		if g.pending.Length() > 0 {
			sh := g.pending.Remove().(*shim)
			g.mu.Unlock()
			id := g.env.reg.enter()
			g.runShim(sh)
			g.env.reg.exit(id)
			g.mu.Lock()
			continue
		}
		if g.active == 0 {
			break
		}
		g.cond.Wait()
	}

	p := g.failure
	g.failure = nil
	g.mu.Unlock()

	if p != nil {
		panic(p)
	}
}

// prune drops claimed shims from the head of the FIFO. Caller holds mu.
func (g *TaskGroup) prune() {
	for g.pending.Length() > 0 && g.pending.Peek().(*shim).claimed.Load() {
		g.pending.Remove()
	}
}

func (g *TaskGroup) runShim(sh *shim) {
	if !sh.claimed.CompareAndSwap(false, true) {
		return
	}

	defer g.finish()
	defer func() {
		if v := recover(); v != nil {
			g.mu.Lock()
			if g.failure == nil {
				g.failure = &PanicError{Value: v, Stack: string(debug.Stack())}
			}
			g.mu.Unlock()
		}
	}()
	defer sh.task.Destroy()

	sh.task.Run()
}

func (g *TaskGroup) finish() {
	g.mu.Lock()
	g.active--
	if g.active == 0 {
		g.cond.Broadcast()
	}
	g.mu.Unlock()
}
