// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	FetchesTotal       = expvar.NewInt("fetches_total")
	FetchesDegraded    = expvar.NewInt("fetches_degraded")
	CollectorCalls     = expvar.NewInt("collector_calls")
	CollectorFailures  = expvar.NewInt("collector_failures")
	BreakerFastFails   = expvar.NewInt("breaker_fast_fails")
	SyncsTriggered     = expvar.NewInt("syncs_triggered")
	SyncsFailed        = expvar.NewInt("syncs_failed")
	RefresherRuns      = expvar.NewInt("refresher_runs")
	OptimizationsTotal = expvar.NewInt("optimizations_total")
	OptimizationsEmpty = expvar.NewInt("optimizations_empty")
)
