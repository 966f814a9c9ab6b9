package storage

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are tracked in microseconds from 1µs to 10 minutes.
const (
	minLatencyMicros = 1
	maxLatencyMicros = int64(10 * time.Minute / time.Microsecond)
	sigFigs          = 3
)

// LatencySummary describes the operations recorded for one op.
type LatencySummary struct {
	Count int64
	P50   time.Duration
	P99   time.Duration
	Max   time.Duration
}

type latencyRecorder struct {
	mu   sync.Mutex
	byOp map[string]*hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{byOp: make(map[string]*hdrhistogram.Histogram)}
}

func (r *latencyRecorder) record(op string, d time.Duration) {
	v := d.Microseconds()
	if v < minLatencyMicros {
		v = minLatencyMicros
	}
	if v > maxLatencyMicros {
		v = maxLatencyMicros
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byOp[op]
	if !ok {
		h = hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)
		r.byOp[op] = h
	}
	_ = h.RecordValue(v)
}

func (r *latencyRecorder) summary(op string) LatencySummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byOp[op]
	if !ok {
		return LatencySummary{}
	}
	return LatencySummary{
		Count: h.TotalCount(),
		P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Max:   time.Duration(h.Max()) * time.Microsecond,
	}
}
