package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"socialkv/internal/database"
	"socialkv/internal/runner"
	"socialkv/internal/workloads/messaging"
	"socialkv/internal/workloads/socialmedia"
)

var workloads = map[string]map[string]func() runner.Workload{
	"socialmedia": {
		"feed":        func() runner.Workload { return &socialmedia.FeedTest{} },
		"like_toggle": func() runner.Workload { return &socialmedia.LikeToggleTest{} },
		"friendship":  func() runner.Workload { return &socialmedia.FriendshipTest{} },
	},
	"messaging": {
		"chat": func() runner.Workload { return &messaging.ChatTest{} },
	},
}

func workloadNames() []string {
	var names []string
	for w, tests := range workloads {
		for t := range tests {
			names = append(names, w+"/"+t)
		}
	}
	sort.Strings(names)
	return names
}

func (c *command) initBenchCmd() {
	var (
		workloadName string
		testName     string
		concurrency  int
		duration     time.Duration
		metricsAddr  string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a benchmark workload against the configured backend",
		Long:  fmt.Sprintf("Run a benchmark workload. Available: %v", workloadNames()),
		RunE: func(cmd *cobra.Command, args []string) error {
			newWorkload, ok := workloads[workloadName][testName]
			if !ok {
				return fmt.Errorf("unsupported workload/test: %s/%s", workloadName, testName)
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = c.cfg.BenchmarkSettings.DefaultConcurrency
			}
			if !cmd.Flags().Changed("duration") {
				duration = c.cfg.BenchmarkSettings.DefaultDuration
			}

			ctx := cmd.Context()
			driver, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()

			reg := prometheus.NewRegistry()
			metrics, err := database.NewMetrics(reg)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				stop := c.serveMetrics(metricsAddr, reg)
				defer stop()
			}

			kv := database.Instrument(driver, metrics)
			env := &runner.Env{
				KV:     kv,
				Stores: c.newStores(kv),
				Log:    c.log.WithField("workload", workloadName+"/"+testName),
			}
			c.log.Infof("Running benchmark for %s/%s on %s", workloadName, testName, c.cfg.Backend)
			result, err := runner.Run(ctx, driver, env, newWorkload(), concurrency, duration)
			if err != nil {
				return fmt.Errorf("benchmark failed: %w", err)
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&workloadName, "workload", "socialmedia", "workload to run (socialmedia or messaging)")
	cmd.Flags().StringVar(&testName, "test", "feed", "test to run")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "duration of the test")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	c.root.AddCommand(cmd)
}

func (c *command) serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.WithError(err).Error("metrics server failed")
		}
	}()
	c.log.WithField("addr", addr).Info("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
