package main

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/tahsin716/threadkit"
	"github.com/tahsin716/threadkit/alloc"
	"github.com/tahsin716/threadkit/dispatch"
	"github.com/tahsin716/threadkit/maxheap"
	"github.com/tahsin716/threadkit/psort"
)

// matrix is a dense row-major matrix.
type matrix struct {
	rows, cols int
	data       []float64
}

func (m *matrix) row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// dotKernels holds the dot-product variants by CPU level.
var dotKernels dispatch.Table[func(a, b []float64) float64]

func init() {
	dotKernels.Register(dispatch.Generic, dotGeneric)
	// Wider accumulators for CPUs with more floating point ports; the
	// compiler keeps the four sums in registers.
	dotKernels.Register(dispatch.AVX2, dotUnrolled)
	dotKernels.Register(dispatch.NEON, dotUnrolled)
}

func dotGeneric(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func dotUnrolled(a, b []float64) float64 {
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// columnMeans accumulates per-goroutine column sums with StaticFor and TLS,
// then folds them. Accumulators come from the scalable allocator and go back
// to it afterwards.
func columnMeans(e *threadkit.Env, m *matrix, a *alloc.Scalable[float64]) []float64 {
	tls := threadkit.NewTLS(e, func() []float64 { return a.AllocateZeroed(m.cols) })

	e.StaticFor(m.rows, func(i, _ int) {
		acc := tls.Local()
		for j, v := range m.row(i) {
			acc[j] += v
		}
	})

	means := make([]float64, m.cols)
	tls.Reduce(func(acc []float64) {
		for j, v := range acc {
			means[j] += v
		}
		a.Deallocate(acc)
	})
	if m.rows > 0 {
		for j := range means {
			means[j] /= float64(m.rows)
		}
	}
	return means
}

// sumOfSquares reduces over rows.
func sumOfSquares(e *threadkit.Env, m *matrix) float64 {
	return threadkit.Reduce(e, m.rows, 0.0,
		func(begin, end int, acc float64) float64 {
			for i := begin; i < end; i++ {
				r := m.row(i)
				acc += dotGeneric(r, r)
			}
			return acc
		},
		func(a, b float64) float64 { return a + b },
	)
}

// rowNorms computes the L2 norm of every row through the dispatched dot
// kernel. Each block borrows a scratch buffer from an LS pool to hold the
// centered row.
func rowNorms(e *threadkit.Env, m *matrix, means []float64) []float64 {
	dot := dotKernels.MustResolve(e.CPULevel())
	scratch := threadkit.NewLS(e, func() *[]float64 {
		buf := make([]float64, m.cols)
		return &buf
	})

	norms := make([]float64, m.rows)
	e.ForBlocked(m.rows, func(begin, count int) {
		lease := scratch.Acquire()
		defer lease.Release()
		buf := *lease.Value()

		for i := begin; i < begin+count; i++ {
			for j, v := range m.row(i) {
				buf[j] = v - means[j]
			}
			norms[i] = math.Sqrt(dot(buf, buf))
		}
	})

	scratch.Reduce(func(*[]float64) {})
	return norms
}

// scored is a row index with its norm.
type scored struct {
	row  int
	norm float64
}

// topRows returns the k rows with the largest norms, largest first. Each
// block selects locally; the shared selector is merged under a mutex.
func topRows(e *threadkit.Env, norms []float64, k int) []scored {
	byNormDesc := func(a, b scored) bool {
		return a.norm > b.norm || (a.norm == b.norm && a.row < b.row)
	}

	var mu threadkit.Mutex
	best := maxheap.NewTopK(k, byNormDesc)

	e.ForBlocked(len(norms), func(begin, count int) {
		local := maxheap.NewTopK(k, byNormDesc)
		for i := begin; i < begin+count; i++ {
			local.Push(scored{row: i, norm: norms[i]})
		}
		defer threadkit.NewAutoLock(&mu).Unlock()
		best.Merge(local)
	})

	return best.Sorted()
}

// checksumTask hashes a copy of a row range. The copy is taken from the
// allocator on Run and returned on Destroy.
type checksumTask struct {
	m          *matrix
	begin, end int
	alloc      *alloc.Scalable[float64]
	buf        []float64
	out        *uint64
}

func (t *checksumTask) Run() {
	n := (t.end - t.begin) * t.m.cols
	t.buf = t.alloc.Allocate(n)
	copy(t.buf, t.m.data[t.begin*t.m.cols:t.end*t.m.cols])

	h := fnv.New64a()
	var b [8]byte
	for _, v := range t.buf {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		_, _ = h.Write(b[:])
	}
	*t.out = h.Sum64()
}

func (t *checksumTask) Destroy() {
	if t.buf != nil {
		t.alloc.Deallocate(t.buf)
		t.buf = nil
	}
}

// checksums hashes the matrix in parts as task group tasks and combines the
// part hashes in order.
func checksums(e *threadkit.Env, m *matrix, parts int, a *alloc.Scalable[float64]) uint64 {
	if parts < 1 {
		parts = 1
	}
	sums := make([]uint64, parts)
	g := threadkit.NewTaskGroup(e)

	step := (m.rows + parts - 1) / parts
	for p := 0; p < parts; p++ {
		begin, end := min(m.rows, p*step), min(m.rows, (p+1)*step)
		g.Run(&checksumTask{m: m, begin: begin, end: end, alloc: a, out: &sums[p]})
	}
	g.Wait()

	var total uint64
	for _, s := range sums {
		total = total*31 + s
	}
	return total
}

// rankRows returns row indices ordered by ascending norm.
func rankRows(e *threadkit.Env, norms []float64) []int {
	return psort.Argsort(e, norms)
}
