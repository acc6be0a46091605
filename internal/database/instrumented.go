package database

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts primitive calls per command.
type Metrics struct {
	Ops      *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialkv",
			Subsystem: "kv",
			Name:      "operations_total",
			Help:      "Number of key-value primitive calls.",
		}, []string{"command"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialkv",
			Subsystem: "kv",
			Name:      "errors_total",
			Help:      "Number of key-value primitive calls that failed.",
		}, []string{"command"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "socialkv",
			Subsystem: "kv",
			Name:      "operation_duration_seconds",
			Help:      "Latency of key-value primitive calls.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
		}, []string{"command"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Ops, m.Errors, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Instrumented decorates a KV with metrics.
type Instrumented struct {
	next    KV
	metrics *Metrics
}

func Instrument(next KV, metrics *Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

func (i *Instrumented) observe(command string, start time.Time, err error) {
	i.metrics.Ops.WithLabelValues(command).Inc()
	i.metrics.Duration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.Errors.WithLabelValues(command).Inc()
	}
}

func (i *Instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return v, ok, err
}

func (i *Instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *Instrumented) Del(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Del(ctx, key)
	i.observe("del", start, err)
	return err
}

func (i *Instrumented) SAdd(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := i.next.SAdd(ctx, key, members...)
	i.observe("sadd", start, err)
	return err
}

func (i *Instrumented) SRem(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := i.next.SRem(ctx, key, members...)
	i.observe("srem", start, err)
	return err
}

func (i *Instrumented) SMembers(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	members, err := i.next.SMembers(ctx, key)
	i.observe("smembers", start, err)
	return members, err
}

var _ KV = (*Instrumented)(nil)
