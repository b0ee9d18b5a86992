package workspace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/metrics"
	"territory-planner/internal/models"
	"territory-planner/internal/territory"
)

// SaveScenario stores the current assignment under name. An existing
// scenario of the same name is replaced.
func (w *Workspace) SaveScenario(ctx context.Context, name string) (sc *models.Scenario, err error) {
	defer func() { metrics.ObserveScenario("save", err) }()
	if w.store == nil {
		return nil, ErrNoStore
	}

	w.mu.RLock()
	if w.state == nil {
		w.mu.RUnlock()
		return nil, ErrNoDataset
	}
	sc = &models.Scenario{
		Name:       name,
		Cost:       territory.Cost(w.state, w.weightsOrDefault(nil)),
		Assignment: w.state.Assignment(),
	}
	if w.weights != nil {
		weights := *w.weights
		sc.Weights = &weights
	}
	w.mu.RUnlock()

	if err := w.store.Scenarios().Save(ctx, sc); err != nil {
		return nil, fmt.Errorf("failed to save scenario %q: %w", name, err)
	}
	w.logger.Info("scenario saved", zap.String("name", sc.Name), zap.Int("customers", len(sc.Assignment)))
	return sc, nil
}

// LoadScenario returns the stored scenario, or nil, nil when absent
func (w *Workspace) LoadScenario(ctx context.Context, name string) (sc *models.Scenario, err error) {
	defer func() { metrics.ObserveScenario("load", err) }()
	if w.store == nil {
		return nil, ErrNoStore
	}
	return w.store.Scenarios().Load(ctx, name)
}

// ListScenarios returns scenario summaries sorted by name
func (w *Workspace) ListScenarios(ctx context.Context) ([]models.ScenarioInfo, error) {
	if w.store == nil {
		return nil, ErrNoStore
	}
	return w.store.Scenarios().List(ctx)
}

// ListScenarioNames returns the stored scenario names sorted ascending
func (w *Workspace) ListScenarioNames(ctx context.Context) ([]string, error) {
	if w.store == nil {
		return nil, ErrNoStore
	}
	return database.ListScenarioNames(ctx, w.store.Scenarios())
}

// DeleteScenario removes a stored scenario
func (w *Workspace) DeleteScenario(ctx context.Context, name string) (err error) {
	defer func() { metrics.ObserveScenario("delete", err) }()
	if w.store == nil {
		return ErrNoStore
	}
	return w.store.Scenarios().Delete(ctx, name)
}

// ApplyScenario makes a stored scenario the current assignment. The scenario
// must cover exactly the loaded customers. History is cleared.
func (w *Workspace) ApplyScenario(ctx context.Context, name string) (sc *models.Scenario, err error) {
	defer func() { metrics.ObserveScenario("apply", err) }()
	if w.store == nil {
		return nil, ErrNoStore
	}
	sc, err = w.store.Scenarios().Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, database.ErrNotFound
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.universe == nil {
		return nil, ErrNoDataset
	}
	s, err := w.universe.StateFrom(sc.Assignment)
	if err != nil {
		return nil, err
	}
	if err := w.persist(ctx, sc.Assignment); err != nil {
		return nil, err
	}
	w.state = s
	w.weights = sc.Weights
	w.history = nil

	w.logger.Info("scenario applied", zap.String("name", sc.Name))
	return sc, nil
}
