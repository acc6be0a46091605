package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"socialkv/internal/database"
	"socialkv/internal/store"
)

// Env is what a workload runs against: the raw backend and the stores
// built over it.
type Env struct {
	KV     database.KV
	Stores *store.Stores
	Log    logrus.FieldLogger
}

type Workload interface {
	Setup(ctx context.Context, env *Env) error
	Run(ctx context.Context, env *Env, concurrency int, duration time.Duration) (*Result, error)
	Teardown(ctx context.Context, env *Env) error
}

type Result struct {
	Operations     int64
	Errors         int64
	Throughput     float64
	P95Latency     time.Duration
	P99Latency     time.Duration
	AverageLatency time.Duration
	ErrorRate      float64
	TotalTime      time.Duration
	DataIntegrity  bool
}

// Run clears the backend and drives one workload through setup, run and
// teardown. Teardown runs even when the run fails.
func Run(ctx context.Context, db database.Driver, env *Env, workload Workload, concurrency int, duration time.Duration) (result *Result, err error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if err := db.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if err := workload.Setup(ctx, env); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	defer func() {
		if terr := workload.Teardown(ctx, env); terr != nil {
			env.Log.WithError(terr).Error("teardown failed")
			if err == nil {
				err = fmt.Errorf("teardown: %w", terr)
			}
		}
	}()

	env.Log.WithFields(logrus.Fields{"concurrency": concurrency, "duration": duration}).Info("workload started")
	result, err = workload.Run(ctx, env, concurrency, duration)
	if err != nil {
		return nil, err
	}
	env.Log.WithFields(logrus.Fields{
		"operations": result.Operations,
		"errors":     result.Errors,
		"integrity":  result.DataIntegrity,
	}).Info("workload finished")
	return result, nil
}

// Loop runs op from concurrency goroutines until duration elapses or ctx
// is done, recording every call. iter counts calls per worker. A call in
// flight at the deadline is allowed to finish.
func Loop(ctx context.Context, concurrency int, duration time.Duration, rec *Recorder, op func(ctx context.Context, worker, iter int) error) time.Duration {
	start := time.Now()
	deadline := start.Add(duration)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for iter := 0; time.Now().Before(deadline) && ctx.Err() == nil; iter++ {
				opStart := time.Now()
				rec.Record(opStart, op(ctx, worker, iter))
			}
		}(w)
	}
	wg.Wait()
	return time.Since(start)
}
