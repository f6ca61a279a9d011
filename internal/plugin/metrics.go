// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for plugin invocation metrics.
const (
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusSetupError = "setup_error"
)

// Operation labels for environment mutation metrics.
const (
	MutationSet   = "set"
	MutationUnset = "unset"
)

// HookRuns is the counter for hook dispatch runs.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "svchook_hook_runs_total",
		Help: "Total number of hook dispatch runs",
	},
	[]string{"hook"},
)

// PluginInvocations is the counter for individual plugin worker invocations.
// Use RegisterMetrics to register this with a Prometheus registry.
var PluginInvocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "svchook_plugin_invocations_total",
		Help: "Total number of plugin worker invocations",
	},
	[]string{"plugin", "status"},
)

// InvocationDuration is the histogram for plugin worker wall time.
// Use RegisterMetrics to register this with a Prometheus registry.
var InvocationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "svchook_invocation_duration_seconds",
		Help:    "Plugin worker invocation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"plugin"},
)

// EnvMutations is the counter for environment mutations applied to the host.
// Use RegisterMetrics to register this with a Prometheus registry.
var EnvMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "svchook_env_mutations_total",
		Help: "Total number of environment mutations applied to the host",
	},
	[]string{"op"},
)

// RegisterMetrics registers plugin package metrics with the given Prometheus
// registry. This must be called at startup to make metrics available on
// /metrics. Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(HookRuns)
	reg.MustRegister(PluginInvocations)
	reg.MustRegister(InvocationDuration)
	reg.MustRegister(EnvMutations)
}

// RecordHookRun increments the hook run counter.
func RecordHookRun(hook string) {
	HookRuns.WithLabelValues(hook).Inc()
}

// RecordInvocation increments the invocation counter with the given status
// (use Status* constants) and records the worker's wall time.
func RecordInvocation(plugin, status string, duration time.Duration) {
	PluginInvocations.WithLabelValues(plugin, status).Inc()
	InvocationDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}

// RecordEnvMutation increments the mutation counter for one applied
// mutation (use Mutation* constants).
func RecordEnvMutation(op string) {
	EnvMutations.WithLabelValues(op).Inc()
}
