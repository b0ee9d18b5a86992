// Package workspace holds the live planning session: the loaded dataset, the
// current assignment, the manual reassignment history and optimization runs.
// All methods are safe for concurrent use; readers receive copies.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
	"territory-planner/internal/progress"
	"territory-planner/internal/territory"
)

var (
	ErrOptimizationRunning   = errors.New("an optimization is already running")
	ErrNoDataset             = errors.New("no dataset loaded")
	ErrNothingToUndo         = errors.New("nothing to undo")
	ErrNoStore               = errors.New("no scenario store configured")
	ErrUnknownCustomer       = errors.New("unknown customer")
	ErrUnknownRepresentative = errors.New("unknown representative")
	ErrDatasetChanged        = errors.New("dataset was replaced during the optimization")
)

// Defaults apply to optimization requests that leave a field at zero
type Defaults struct {
	Iterations    int
	ProgressEvery int
	Seed          int64
	Weights       models.Weights
	Constraints   models.Constraints
}

// Options configure a Workspace. Store and Broker may be nil.
type Options struct {
	Store    database.DataStore
	Broker   progress.Broker
	Logger   *zap.Logger
	Defaults Defaults
}

// Workspace is one planning session
type Workspace struct {
	mu       sync.RWMutex
	dataset  *models.Dataset
	universe *territory.Universe
	state    *territory.State
	checker  *territory.BalanceChecker
	colors   map[int64]string
	history  []models.ReassignmentRecord
	weights  *models.Weights

	store    database.DataStore
	broker   progress.Broker
	logger   *zap.Logger
	defaults Defaults

	optimizing atomic.Bool
	runsMu     sync.Mutex
	runs       map[string]*Run
}

// New creates an empty workspace
func New(opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := opts.Defaults
	if d.Iterations <= 0 {
		d.Iterations = territory.DefaultIterations
	}
	if d.ProgressEvery <= 0 {
		d.ProgressEvery = territory.DefaultProgressEvery
	}
	if d.Weights == (models.Weights{}) {
		d.Weights = models.DefaultWeights()
	}
	broker := opts.Broker
	if broker == nil {
		broker = progress.NewMemoryBroker()
	}
	return &Workspace{
		store:    opts.Store,
		broker:   broker,
		logger:   logger.Named("workspace"),
		defaults: d,
		runs:     map[string]*Run{},
	}
}

// Broker returns the broker progress events are published on
func (w *Workspace) Broker() progress.Broker { return w.broker }

// Restore loads the dataset persisted in the store, if any
func (w *Workspace) Restore(ctx context.Context) error {
	if w.store == nil {
		return nil
	}
	ds, err := database.LoadDataset(ctx, w.store)
	if err != nil {
		return err
	}
	if ds == nil {
		w.logger.Info("no stored dataset")
		return nil
	}
	sess, err := prepare(ds)
	if err != nil {
		return fmt.Errorf("stored dataset is invalid: %w", err)
	}
	w.install(sess)
	w.logger.Info("restored dataset",
		zap.Int("customers", len(ds.Customers)),
		zap.Int("representatives", len(ds.Representatives)))
	return nil
}

// Load replaces the session with ds. The recorded representative of each
// customer becomes the current assignment; history is cleared. The dataset
// is persisted first when a store is configured; if that fails the session
// keeps its previous dataset.
func (w *Workspace) Load(ctx context.Context, ds *models.Dataset) error {
	sess, err := prepare(ds)
	if err != nil {
		return err
	}
	if w.store != nil {
		if err := database.SaveDataset(ctx, w.store, sess.dataset); err != nil {
			return fmt.Errorf("failed to persist dataset: %w", err)
		}
	}
	w.install(sess)
	w.logger.Info("loaded dataset",
		zap.Int("customers", len(ds.Customers)),
		zap.Int("representatives", len(ds.Representatives)))
	return nil
}

// session is a validated dataset ready to be installed
type session struct {
	dataset  *models.Dataset
	universe *territory.Universe
	state    *territory.State
}

func prepare(ds *models.Dataset) (*session, error) {
	ds = ds.Clone()
	u, err := territory.NewUniverse(ds.Customers, ds.Representatives)
	if err != nil {
		return nil, err
	}
	s, err := u.StateFrom(models.AssignmentOf(ds.Customers))
	if err != nil {
		return nil, err
	}
	return &session{dataset: ds, universe: u, state: s}, nil
}

func (w *Workspace) install(sess *session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataset = sess.dataset
	w.universe = sess.universe
	w.state = sess.state
	w.checker = territory.NewBalanceChecker(sess.universe)
	w.colors = palette(sess.dataset.Representatives)
	w.history = nil
	w.weights = nil
}

// Loaded reports whether a dataset is present
func (w *Workspace) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dataset != nil
}

// Dataset returns a copy of the loaded dataset as imported
func (w *Workspace) Dataset() (*models.Dataset, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}
	return w.dataset.Clone(), nil
}

// Assignment returns a snapshot of the current assignment
func (w *Workspace) Assignment() (models.Assignment, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == nil {
		return nil, ErrNoDataset
	}
	return w.state.Assignment(), nil
}

// Representatives returns the representatives sorted by name
func (w *Workspace) Representatives() ([]models.Representative, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}
	reps := make([]models.Representative, len(w.dataset.Representatives))
	copy(reps, w.dataset.Representatives)
	sort.Slice(reps, func(i, j int) bool { return reps[i].Name < reps[j].Name })
	return reps, nil
}

// Publishers returns the distinct publisher labels in ascending order
func (w *Workspace) Publishers() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range w.dataset.Customers {
		if c.Publisher != "" && !seen[c.Publisher] {
			seen[c.Publisher] = true
			out = append(out, c.Publisher)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Cost evaluates the current assignment with weights, or with the defaults
// when weights is nil.
func (w *Workspace) Cost(weights *models.Weights) (float64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == nil {
		return 0, ErrNoDataset
	}
	return territory.Cost(w.state, w.weightsOrDefault(weights)), nil
}

func (w *Workspace) weightsOrDefault(weights *models.Weights) models.Weights {
	if weights != nil {
		return *weights
	}
	if w.weights != nil {
		return *w.weights
	}
	return w.defaults.Weights
}

// persist writes changed customer assignments. Callers hold w.mu.
func (w *Workspace) persist(ctx context.Context, changed models.Assignment) error {
	if w.store == nil || len(changed) == 0 {
		return nil
	}
	if err := w.store.Customers().ApplyAssignment(ctx, changed); err != nil {
		return fmt.Errorf("failed to persist assignment: %w", err)
	}
	return nil
}
