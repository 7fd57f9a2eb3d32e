package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahsin716/threadkit"
)

type fakeSource struct {
	st threadkit.Stats
}

func (f fakeSource) Stats() threadkit.Stats { return f.st }
func (f fakeSource) MaxThreads() int        { return f.st.MaxThreads }

func TestCollector_Values(t *testing.T) {
	src := fakeSource{st: threadkit.Stats{
		MaxThreads:     4,
		NumWorkers:     3,
		Submitted:      10,
		Completed:      8,
		Stolen:         2,
		Overflowed:     1,
		InlineExecuted: 0,
		Panicked:       1,
		InFlight:       2,
		QueueDepth:     5,
		LatencyMax:     1500 * time.Millisecond,
		WorkerStats: []threadkit.WorkerStats{
			{WorkerID: 0, TasksExecuted: 5},
			{WorkerID: 1, TasksExecuted: 3},
			{WorkerID: 2},
		},
	}}

	c := NewCollector(src)

	expected := `
# HELP threadkit_jobs_submitted_total Jobs handed to the scheduler
# TYPE threadkit_jobs_submitted_total counter
threadkit_jobs_submitted_total 10
# HELP threadkit_jobs_stolen_total Jobs taken from another worker's deque
# TYPE threadkit_jobs_stolen_total counter
threadkit_jobs_stolen_total 2
# HELP threadkit_max_threads Goroutines a parallel region may use, caller included
# TYPE threadkit_max_threads gauge
threadkit_max_threads 4
# HELP threadkit_job_latency_max_seconds Longest submission-to-completion time seen
# TYPE threadkit_job_latency_max_seconds gauge
threadkit_job_latency_max_seconds 1.5
# HELP threadkit_worker_jobs_executed_total Jobs executed per worker of the current scheduler
# TYPE threadkit_worker_jobs_executed_total counter
threadkit_worker_jobs_executed_total{worker="0"} 5
threadkit_worker_jobs_executed_total{worker="1"} 3
threadkit_worker_jobs_executed_total{worker="2"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"threadkit_jobs_submitted_total",
		"threadkit_jobs_stolen_total",
		"threadkit_max_threads",
		"threadkit_job_latency_max_seconds",
		"threadkit_worker_jobs_executed_total",
	)
	require.NoError(t, err)

	// 11 scalar series plus one per worker
	assert.Equal(t, 14, testutil.CollectAndCount(c))
}

func TestCollector_LiveEnv(t *testing.T) {
	env, err := threadkit.New(threadkit.WithNumThreads(3))
	require.NoError(t, err)
	defer env.Close()

	g := threadkit.NewTaskGroup(env)
	for i := 0; i < 100; i++ {
		g.Go(func() {})
	}
	g.Wait()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(env, WithConstLabels(prometheus.Labels{"env": "test"}))))

	n, err := testutil.GatherAndCount(reg, "threadkit_workers", "threadkit_worker_jobs_executed_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.GreaterOrEqual(t, env.Stats().Submitted, uint64(100))
}

func TestCollector_Namespace(t *testing.T) {
	c := NewCollector(fakeSource{st: threadkit.Stats{MaxThreads: 1}}, WithNamespace("kernels"))
	n := testutil.CollectAndCount(c, "kernels_max_threads")
	assert.Equal(t, 1, n)
}
