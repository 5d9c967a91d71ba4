// Package metrics registers the core's ambient Prometheus ops series:
// replay validation outcomes and orchestrator command outcomes. Scoped
// to operational counters, not trading-specific series — those stay
// local to whatever process wires up an exchange bot on top of this
// core. Registration style (package-level CounterVec, MustRegister in
// init()) is ported from the teacher's metrics.go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	replayRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "core_replay_records_total",
		Help: "Trade engine replay records by kind (orderbook|trade) and outcome (ok|error).",
	}, []string{"kind", "outcome"})

	orchestratorCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "core_orchestrator_commands_total",
		Help: "Orchestrator commands dispatched by type and outcome (ok|error).",
	}, []string{"type", "outcome"})

	pathResolverLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "core_pathresolver_lookups_total",
		Help: "Conversion path resolutions by outcome (found|no_path).",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(replayRecordsTotal, orchestratorCommandsTotal, pathResolverLookupsTotal)
}

// ReplayRecords returns the counter for one (kind, outcome) pair of
// trade-engine replay validation, e.g. ReplayRecords("orderbook", "ok").
func ReplayRecords(kind, outcome string) prometheus.Counter {
	return replayRecordsTotal.WithLabelValues(kind, outcome)
}

// OrchestratorCommands returns the counter for one (type, outcome) pair
// of dispatched orchestrator commands.
func OrchestratorCommands(cmdType, outcome string) prometheus.Counter {
	return orchestratorCommandsTotal.WithLabelValues(cmdType, outcome)
}

// PathResolverLookups returns the counter for one path-resolution
// outcome ("found" or "no_path").
func PathResolverLookups(outcome string) prometheus.Counter {
	return pathResolverLookupsTotal.WithLabelValues(outcome)
}
