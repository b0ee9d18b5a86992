package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"territory-planner/internal/metrics"
	"territory-planner/internal/models"
	"territory-planner/internal/progress"
	"territory-planner/internal/territory"
)

// OptimizeRequest overrides the workspace defaults for one run. Nil pointers
// and zero values fall back to the defaults.
type OptimizeRequest struct {
	Weights     *models.Weights     `json:"weights,omitempty"`
	Constraints *models.Constraints `json:"constraints,omitempty"`
	Iterations  int                 `json:"iterations,omitempty"`
	Seed        int64               `json:"seed,omitempty"`
}

// Run tracks an asynchronous optimization
type Run struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Result     *territory.Result `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`

	cancel context.CancelFunc
}

func (r *Run) snapshot() *Run {
	cp := *r
	cp.cancel = nil
	return &cp
}

// Optimizing reports whether a run is in progress
func (w *Workspace) Optimizing() bool { return w.optimizing.Load() }

// Optimize runs the optimizer synchronously and, when it completes, replaces
// the current assignment with the result and clears the undo history. A
// cancelled run returns its partial result with the context error and leaves
// the workspace untouched.
func (w *Workspace) Optimize(ctx context.Context, req OptimizeRequest) (*territory.Result, error) {
	if !w.optimizing.CompareAndSwap(false, true) {
		return nil, ErrOptimizationRunning
	}
	defer w.optimizing.Store(false)
	return w.optimize(ctx, uuid.NewString(), req)
}

// StartOptimize launches a run in the background and returns immediately.
// Progress is published on the workspace broker under the run id.
func (w *Workspace) StartOptimize(req OptimizeRequest) (*Run, error) {
	if !w.Loaded() {
		return nil, ErrNoDataset
	}
	if !w.optimizing.CompareAndSwap(false, true) {
		return nil, ErrOptimizationRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:        uuid.NewString(),
		State:     progress.StateRunning,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	w.runsMu.Lock()
	w.runs[run.ID] = run
	started := run.snapshot()
	w.runsMu.Unlock()

	go func() {
		defer w.optimizing.Store(false)
		defer cancel()

		res, err := w.optimize(ctx, run.ID, req)

		finished := time.Now()
		w.runsMu.Lock()
		defer w.runsMu.Unlock()
		run.FinishedAt = &finished
		run.Result = res
		switch {
		case err == nil:
			run.State = progress.StateExhausted
		case errors.Is(err, context.Canceled):
			run.State = progress.StateCancelled
			run.Error = err.Error()
		default:
			run.State = progress.StateFailed
			run.Error = err.Error()
		}
	}()

	return started, nil
}

// Run returns a snapshot of a background run
func (w *Workspace) Run(id string) (*Run, bool) {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	run, ok := w.runs[id]
	if !ok {
		return nil, false
	}
	return run.snapshot(), true
}

// CancelRun stops a background run. It reports false for unknown ids.
func (w *Workspace) CancelRun(id string) bool {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	run, ok := w.runs[id]
	if !ok {
		return false
	}
	run.cancel()
	return true
}

// optimize does the work of a run. Callers hold the optimizing guard.
func (w *Workspace) optimize(ctx context.Context, runID string, req OptimizeRequest) (*territory.Result, error) {
	reporter := progress.NewReporter(w.broker, runID)

	w.mu.RLock()
	u := w.universe
	w.mu.RUnlock()
	if u == nil {
		reporter.Finish(nil, 0, ErrNoDataset)
		return nil, ErrNoDataset
	}

	weights := w.defaults.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	constraints := w.defaults.Constraints
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	iterations := w.defaults.Iterations
	if req.Iterations > 0 {
		iterations = req.Iterations
	}

	// The exhausted event is published only once the result is applied, so
	// subscribers that refresh on it read the new assignment.
	var final *territory.Progress
	held := territory.ProgressFunc(func(p territory.Progress) {
		if p.Phase == territory.PhaseExhausted {
			final = &p
			return
		}
		reporter.Report(p)
	})

	opts := []territory.Option{
		territory.WithIterations(iterations),
		territory.WithProgressEvery(w.defaults.ProgressEvery),
		territory.WithReporter(held),
		territory.WithObserver(metrics.MoveObserver{}),
		territory.WithLogger(w.logger.Named("optimizer").With(zap.String("run_id", runID))),
	}
	switch {
	case req.Seed != 0:
		opts = append(opts, territory.WithSeed(req.Seed))
	case w.defaults.Seed != 0:
		opts = append(opts, territory.WithSeed(w.defaults.Seed))
	}

	w.logger.Info("optimization started",
		zap.String("run_id", runID),
		zap.Int("iterations", iterations),
		zap.Float64("workload", weights.Workload),
		zap.Float64("potential", weights.Potential),
		zap.Bool("lock_top_customers", constraints.LockTopCustomers))

	// The universe is immutable, so the run needs no lock.
	res, err := territory.NewOptimizer(opts...).Run(ctx, u, weights, constraints)
	metrics.ObserveRun(res, err)
	if err != nil {
		reporter.Finish(res, iterations, err)
		return res, err
	}

	if err := w.apply(ctx, u, res); err != nil {
		reporter.Finish(res, iterations, err)
		return res, err
	}
	if final != nil {
		reporter.Report(*final)
	}
	return res, nil
}

func (w *Workspace) apply(ctx context.Context, u *territory.Universe, res *territory.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.universe != u {
		return ErrDatasetChanged
	}
	s, err := u.StateFrom(res.Assignment)
	if err != nil {
		return fmt.Errorf("failed to apply optimization result: %w", err)
	}
	if err := w.persist(ctx, res.Assignment); err != nil {
		return err
	}
	weights := res.Weights
	w.state = s
	w.weights = &weights
	w.history = nil
	return nil
}
