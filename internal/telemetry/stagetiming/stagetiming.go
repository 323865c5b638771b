// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stagetiming provides opt-in, low-overhead Prometheus telemetry for
// pipeline stage timings and plugin load outcomes. Every recording function
// (the Observer callback, RecordPluginLoaded, RecordPluginRejected) is a
// no-op when the module is disabled, so it is safe to wire into a
// pipeline.Observer unconditionally.
package stagetiming

import (
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stackpack/pkg/pipeline"
)

// Config controls the behavior of this module.
type Config struct {
	Enabled     bool
	MetricsAddr string // e.g. ":9464". Empty disables the standalone /metrics endpoint.
}

var (
	enabled atomic.Bool

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackpack_stage_duration_seconds",
		Help:    "Wall-clock duration of one pipeline stage's Drive or Revert call",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"stage", "direction"})

	pluginLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stackpack_plugin_loaded_total",
		Help: "Total shared libraries successfully validated and registered as plugin mutators",
	})
	pluginRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackpack_plugin_rejected_total",
		Help: "Total candidate shared libraries rejected during plugin discovery, by reason",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(stageDuration, pluginLoaded, pluginRejected)
}

// Enable configures the module. Safe to call multiple times.
func Enable(cfg Config) {
	enabled.Store(cfg.Enabled)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// EnableFromEnv enables the module if STACKPACK_STAGE_TIMINGS is set to any
// value other than "0", "false" or the empty string, reading the optional metrics address from
// STACKPACK_METRICS_ADDR. Mirrors the env-var-gated bring-up the rest of the
// ambient stack uses (see pkg/plugin's STACKPACK_PLUGINS_ROOT).
func EnableFromEnv() {
	v, ok := os.LookupEnv("STACKPACK_STAGE_TIMINGS")
	if !ok {
		return
	}
	switch v {
	case "0", "false", "":
		return
	}
	Enable(Config{Enabled: true, MetricsAddr: os.Getenv("STACKPACK_METRICS_ADDR")})
}

// Enabled reports whether the module is active.
func Enabled() bool { return enabled.Load() }

// Observer returns a pipeline.Observer that records each stage's duration
// when the module is enabled, and does nothing otherwise. While enabled,
// every Drive stage's duration is also written as one line to stderr.
// Wire it in with Pipeline.WithObserver(stagetiming.Observer()).
func Observer() pipeline.Observer {
	return func(stageIndex int, name string, elapsed time.Duration, driving bool) {
		if !enabled.Load() {
			return
		}
		direction := "revert"
		if driving {
			direction = "drive"
			fmt.Fprintf(os.Stderr, "[TIMING] stage %d (%s): %s\n", stageIndex, name, elapsed)
		}
		stageDuration.WithLabelValues(name, direction).Observe(elapsed.Seconds())
	}
}

// RecordPluginLoaded increments the successful-load counter.
func RecordPluginLoaded() {
	if !enabled.Load() {
		return
	}
	pluginLoaded.Inc()
}

// RecordPluginRejected increments the rejected counter under the given
// reason label (e.g. "missing_drive_mutation").
func RecordPluginRejected(reason string) {
	if !enabled.Load() {
		return
	}
	pluginRejected.WithLabelValues(reason).Inc()
}

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
