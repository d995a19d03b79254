package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outletmesh_workflow_runs_total",
			Help: "Total number of question-resolution workflow runs by outcome.",
		},
		[]string{"outcome"},
	)
	workflowGenerations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outletmesh_workflow_generations",
			Help:    "Number of query-generation passes per workflow run.",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		},
	)
	workflowRunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outletmesh_workflow_run_duration_seconds",
			Help:    "Wall-clock duration of workflow runs in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	workflowQueryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outletmesh_workflow_query_failures_total",
			Help: "Total number of candidate queries that failed execution.",
		},
	)
	workflowProtocolViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outletmesh_workflow_protocol_violations_total",
			Help: "Total number of wrong-tool calls synthesized into error turns.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		workflowRunsTotal,
		workflowGenerations,
		workflowRunDurationSeconds,
		workflowQueryFailuresTotal,
		workflowProtocolViolationsTotal,
	)
}

func ObserveWorkflowRun(outcome string, generations int, elapsed time.Duration) {
	workflowRunsTotal.WithLabelValues(outcome).Inc()
	workflowGenerations.Observe(float64(generations))
	workflowRunDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementWorkflowQueryFailure() {
	workflowQueryFailuresTotal.Inc()
}

func IncrementWorkflowProtocolViolation() {
	workflowProtocolViolationsTotal.Inc()
}
