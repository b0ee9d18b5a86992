package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"territory-planner/internal/territory"
)

var (
	// Registry is the dedicated Prometheus registry for the planner
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizerRuns counts finished optimization runs by outcome
	OptimizerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "territory_optimizer_runs_total", Help: "Optimization runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizerIterations counts consumed iterations across runs
	OptimizerIterations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "territory_optimizer_iterations_total", Help: "Optimizer iterations consumed."},
	)
	// OptimizerMoves counts tentative moves by result: accepted or the reject reason
	OptimizerMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "territory_optimizer_moves_total", Help: "Tentative moves by result."},
		[]string{"result"},
	)
	// OptimizerCost holds the cost before and after the latest run
	OptimizerCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "territory_optimizer_cost", Help: "Imbalance cost of the latest run."},
		[]string{"stage"},
	)
	// OptimizerDuration records run durations in seconds
	OptimizerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "territory_optimizer_duration_seconds", Help: "Optimization run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
	)
	// Reassignments counts manual reassignments and undos
	Reassignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "territory_reassignments_total", Help: "Manual reassignments by action."},
		[]string{"action"},
	)
	// ScenarioOperations counts scenario store operations
	ScenarioOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "territory_scenario_operations_total", Help: "Scenario operations by kind and status."},
		[]string{"op", "status"},
	)
)

// Run outcomes
const (
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizerRuns)
		Registry.MustRegister(OptimizerIterations)
		Registry.MustRegister(OptimizerMoves)
		Registry.MustRegister(OptimizerCost)
		Registry.MustRegister(OptimizerDuration)
		Registry.MustRegister(Reassignments)
		Registry.MustRegister(ScenarioOperations)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// MoveObserver counts optimizer moves
type MoveObserver struct{}

var _ territory.Observer = MoveObserver{}

func (MoveObserver) MoveAccepted(_ *territory.State, _ territory.Move) {
	OptimizerMoves.WithLabelValues("accepted").Inc()
}

func (MoveObserver) MoveRejected(_ territory.Move, reason territory.RejectReason) {
	OptimizerMoves.WithLabelValues(string(reason)).Inc()
}

// ObserveRun records a finished run. res may be nil when err is a
// validation error.
func ObserveRun(res *territory.Result, err error) {
	outcome := OutcomeExhausted
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeFailed
	}
	OptimizerRuns.WithLabelValues(outcome).Inc()
	if res == nil {
		return
	}
	OptimizerIterations.Add(float64(res.Iterations))
	OptimizerCost.WithLabelValues("initial").Set(res.InitialCost)
	OptimizerCost.WithLabelValues("final").Set(res.FinalCost)
	OptimizerDuration.Observe(res.Duration.Seconds())
}

// ObserveScenario counts a scenario operation
func ObserveScenario(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ScenarioOperations.WithLabelValues(op, status).Inc()
}
