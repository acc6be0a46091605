package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder collects latencies in microseconds, up to one minute per call.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	ops       int64
	errors    int64
}

func NewRecorder() *Recorder {
	return &Recorder{histogram: hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)}
}

// Record counts one call started at start. Failed calls are counted but
// their latency is not.
func (r *Recorder) Record(start time.Time, err error) {
	elapsed := time.Since(start).Microseconds()
	if elapsed < 1 {
		elapsed = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errors++
		return
	}
	r.ops++
	_ = r.histogram.RecordValue(elapsed)
}

// Result summarizes what was recorded over total wall time.
func (r *Recorder) Result(total time.Duration) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &Result{
		Operations:     r.ops,
		Errors:         r.errors,
		TotalTime:      total,
		P95Latency:     time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99Latency:     time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond,
		AverageLatency: time.Duration(r.histogram.Mean()) * time.Microsecond,
	}
	if total > 0 {
		res.Throughput = float64(r.ops) / total.Seconds()
	}
	if n := r.ops + r.errors; n > 0 {
		res.ErrorRate = float64(r.errors) / float64(n)
	}
	return res
}
