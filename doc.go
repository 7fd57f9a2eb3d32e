// Package threadkit is the concurrency layer numeric kernels are built on:
// parallel loops, parallel reductions, per-goroutine and pooled scratch
// storage, task groups and a mutex, on top of a work-stealing scheduler.
//
// Every primitive takes an *Env. The Env owns the scheduler, which is built
// from Chase-Lev deques (owner pops newest, thieves steal oldest), lock-free
// MPSC submission rings and a shared overflow FIFO. A goroutine that calls a
// blocking primitive runs work itself while it waits.
//
// # Quick Start
//
//	env, err := threadkit.New(threadkit.WithNumThreads(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	env.For(len(xs), func(i int) {
//	    ys[i] = math.Sqrt(xs[i])
//	})
//
// MaxThreads counts the calling goroutine, so an Env with 8 threads runs 7
// workers. With one thread, or after Close, everything runs sequentially in
// the caller.
//
// # Parallel Loops
//
//   - For, ForInt64: default chunking
//   - ForSimple: one iteration per chunk, for irregular iteration cost
//   - ForBlocked: the body receives contiguous (begin, count) ranges
//   - StaticFor: block k of ceil(n/t) iterations always runs with tid k
//   - ForOptional: runs sequentially when already inside a region
//   - ForBreak: cooperative cancellation through a stop func
//   - ForEachPtr: pointer range over a slice
//
// Regions nest. The caller of a region claims chunks alongside the helper
// jobs it submitted, so a region completes even when every worker is busy.
//
// # Reductions
//
//	sum := threadkit.Reduce(env, n, 0.0,
//	    func(begin, end int, acc float64) float64 { ... },
//	    func(a, b float64) float64 { return a + b })
//
// Partials are combined in chunk order, so the result is deterministic for a
// fixed thread count.
//
// # Scratch Storage
//
// TLS keeps one value per goroutine, created lazily and kept for the life of
// the TLS. A nested region running on the same goroutine sees the same value,
// so use LS when regions nest: its values are checked out and released, and
// never handed to two holders at once.
//
//	scratch := threadkit.NewLS(env, func() *[]float64 { ... })
//	env.For(n, func(i int) {
//	    scratch.With(func(buf *[]float64) { ... })
//	})
//	scratch.Reduce(func(buf *[]float64) { ... })
//
// # Task Groups
//
//	g := threadkit.NewTaskGroup(env)
//	g.Go(func() { ... })
//	g.Run(myTask) // Run then Destroy, exactly once each
//	g.Wait()
//
// # Error Handling
//
// Primitives do not return errors. A panic in a loop body, reduce function or
// task is recovered where it happened and re-raised in the goroutine that
// called the primitive as a *PanicError. Panics in raw scheduler jobs go to
// the PanicHandler, or to the Logger if none is set.
//
// # Configuration
//
//	env, _ := threadkit.New(
//	    threadkit.WithNumThreads(0),              // GOMAXPROCS
//	    threadkit.WithQueueSizePerWorker(512),
//	    threadkit.WithOverflowStrategy(threadkit.ExecuteCaller),
//	    threadkit.WithPinWorkerThreads(true),
//	    threadkit.WithEnvOverrides(),             // THREADKIT_NUM_THREADS, THREADKIT_MAX_CPU_LEVEL
//	)
//
// Workers spin SpinCount times before parking for at most MaxParkTime.
// Lower values save CPU, higher values cut wake-up latency.
package threadkit
