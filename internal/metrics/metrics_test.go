package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"territory-planner/internal/models"
	"territory-planner/internal/territory"
	fixtures "territory-planner/internal/testutil"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterDefault()
		RegisterDefault()
	})

	HTTPRequests.WithLabelValues("GET", "/healthz", "200").Inc()
	families, err := Registry.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "http_requests_total")
	assert.Contains(t, names, "go_goroutines")
}

func TestMoveObserverCountsOptimizerMoves(t *testing.T) {
	accepted := testutil.ToFloat64(OptimizerMoves.WithLabelValues("accepted"))
	noGain := testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectNoGain)))
	countBand := testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectCountBand)))
	revenueBand := testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectRevenueBand)))

	ds := fixtures.SampleDataset()
	res, err := territory.Optimize(context.Background(), ds.Customers, ds.Representatives,
		models.DefaultWeights(), models.Constraints{},
		territory.WithSeed(11), territory.WithIterations(300), territory.WithObserver(MoveObserver{}))
	require.NoError(t, err)

	assert.Equal(t, float64(res.Accepted), testutil.ToFloat64(OptimizerMoves.WithLabelValues("accepted"))-accepted)
	assert.Equal(t, float64(res.RejectedCost), testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectNoGain)))-noGain)
	rejectedBand := testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectCountBand))) - countBand +
		testutil.ToFloat64(OptimizerMoves.WithLabelValues(string(territory.RejectRevenueBand))) - revenueBand
	assert.Equal(t, float64(res.RejectedBalance), rejectedBand)
}

func TestObserveRun(t *testing.T) {
	exhausted := testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeExhausted))
	cancelled := testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeCancelled))
	failed := testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeFailed))
	iterations := testutil.ToFloat64(OptimizerIterations)

	ObserveRun(&territory.Result{Iterations: 50, InitialCost: 0.8, FinalCost: 0.3, Duration: 20 * time.Millisecond}, nil)
	ObserveRun(&territory.Result{Iterations: 5}, context.Canceled)
	ObserveRun(nil, errors.New("bad input"))

	assert.Equal(t, 1.0, testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeExhausted))-exhausted)
	assert.Equal(t, 1.0, testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeCancelled))-cancelled)
	assert.Equal(t, 1.0, testutil.ToFloat64(OptimizerRuns.WithLabelValues(OutcomeFailed))-failed)
	assert.Equal(t, 55.0, testutil.ToFloat64(OptimizerIterations)-iterations)
	assert.Equal(t, 0.0, testutil.ToFloat64(OptimizerCost.WithLabelValues("final")))
}

func TestObserveScenario(t *testing.T) {
	before := testutil.ToFloat64(ScenarioOperations.WithLabelValues("save", "error"))
	ObserveScenario("save", errors.New("disk full"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ScenarioOperations.WithLabelValues("save", "error"))-before)

	expected := `
# HELP territory_reassignments_total Manual reassignments by action.
# TYPE territory_reassignments_total counter
territory_reassignments_total{action="undo"} 1
`
	Reassignments.WithLabelValues("undo").Inc()
	assert.NoError(t, testutil.CollectAndCompare(Reassignments, strings.NewReader(expected)))
}
