// Command kernelbench runs a set of matrix kernels on a threadkit Env and
// logs how long each takes. With -metrics-addr it keeps serving scheduler
// metrics on /metrics until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tahsin716/threadkit"
	"github.com/tahsin716/threadkit/alloc"
	"github.com/tahsin716/threadkit/metrics"
)

func main() {
	threads := flag.Int("threads", 0, "threads per region, caller included; 0 for GOMAXPROCS")
	rows := flag.Int("rows", 20000, "matrix rows")
	cols := flag.Int("cols", 256, "matrix columns")
	topk := flag.Int("topk", 10, "rows with the largest norms to report")
	seed := flag.Int64("seed", 1, "random seed")
	pin := flag.Bool("pin", false, "pin worker threads to CPUs")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9090")
	flag.Parse()

	env, err := threadkit.New(
		threadkit.WithNumThreads(*threads),
		threadkit.WithPinWorkerThreads(*pin),
		threadkit.WithEnvOverrides(),
	)
	if err != nil {
		log.Fatalf("threadkit: %v", err)
	}
	defer env.Close()

	prometheus.MustRegister(metrics.NewCollector(env))

	log.Printf("threads=%d cpu=%s rows=%d cols=%d", env.MaxThreads(), env.CPULevel(), *rows, *cols)

	m := randomMatrix(env, *rows, *cols, *seed)
	scratch := alloc.NewScalable[float64]()

	var processed int
	var mu threadkit.Mutex

	timed := func(name string, fn func()) {
		start := time.Now()
		fn()
		mu.Do(func() { processed++ })
		log.Printf("%-14s %v", name, time.Since(start))
	}

	var (
		means []float64
		norms []float64
	)
	timed("column-means", func() { means = columnMeans(env, m, scratch) })
	timed("sum-of-squares", func() { log.Printf("sum of squares = %.6g", sumOfSquares(env, m)) })
	timed("row-norms", func() { norms = rowNorms(env, m, means) })
	timed("top-k", func() {
		for i, s := range topRows(env, norms, *topk) {
			log.Printf("  #%d row %d norm %.4f", i+1, s.row, s.norm)
		}
	})
	timed("argsort", func() {
		order := rankRows(env, norms)
		if len(order) > 0 {
			log.Printf("smallest norm row %d, largest norm row %d", order[0], order[len(order)-1])
		}
	})
	timed("checksums", func() { log.Printf("checksum %016x", checksums(env, m, 4*env.MaxThreads(), scratch)) })

	st := env.Stats()
	as := scratch.Stats()
	log.Printf("kernels=%d jobs=%d stolen=%d overflowed=%d latency(avg=%v max=%v) alloc(hits=%d misses=%d)",
		processed, st.Submitted, st.Stolen, st.Overflowed, st.LatencyAvg, st.LatencyMax, as.Hits, as.Misses)

	if *metricsAddr == "" {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("serving metrics on %s/metrics", *metricsAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server: %v", err)
	}
}

// randomMatrix fills rows in parallel, one generator per row so the content
// depends only on the seed.
func randomMatrix(e *threadkit.Env, rows, cols int, seed int64) *matrix {
	m := &matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
	e.For(rows, func(i int) {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		for j := range m.row(i) {
			m.row(i)[j] = rng.NormFloat64()
		}
	})
	return m
}
