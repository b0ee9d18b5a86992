package territory

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"territory-planner/internal/models"
)

const (
	DefaultIterations    = 5000
	DefaultProgressEvery = 100
)

// ErrAlreadyRunning is returned when Run is called on an optimizer that has
// not finished its previous run.
var ErrAlreadyRunning = errors.New("optimizer is already running")

// Phase is the lifecycle position of a run
type Phase string

const (
	PhaseSeeded    Phase = "seeded"
	PhaseRunning   Phase = "running"
	PhaseExhausted Phase = "exhausted"
)

// Chooser picks a uniform index in [0, n). *rand.Rand satisfies it.
type Chooser interface {
	Intn(n int) int
}

// Progress is emitted at seeding, every ProgressEvery iterations, and when
// the budget is exhausted.
type Progress struct {
	Phase     Phase   `json:"phase"`
	Iteration int     `json:"iteration"`
	Total     int     `json:"total"`
	Cost      float64 `json:"cost"`
	Accepted  int     `json:"accepted"`
	Rejected  int     `json:"rejected"`
}

// ProgressReporter receives progress updates on the optimizer goroutine
type ProgressReporter interface {
	Report(p Progress)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(Progress)

func (f ProgressFunc) Report(p Progress) { f(p) }

// Move describes one tentative reassignment
type Move struct {
	Iteration  int
	CustomerID int64
	From       int64
	To         int64
	CostBefore float64
	CostAfter  float64
}

// Observer is told about every tentative move. MoveAccepted sees the state
// after the move was committed; the state must not be modified.
type Observer interface {
	MoveAccepted(s *State, m Move)
	MoveRejected(m Move, reason RejectReason)
}

// Options configure an Optimizer
type Options struct {
	Iterations    int
	ProgressEvery int
	Chooser       Chooser
	Reporter      ProgressReporter
	Observer      Observer
	Logger        *zap.Logger
}

// Option mutates Options
type Option func(*Options)

// WithIterations sets the iteration budget
func WithIterations(n int) Option {
	return func(o *Options) { o.Iterations = n }
}

// WithProgressEvery sets how often progress is reported
func WithProgressEvery(n int) Option {
	return func(o *Options) { o.ProgressEvery = n }
}

// WithSeed makes sampling reproducible
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Chooser = rand.New(rand.NewSource(seed)) }
}

// WithRand samples from r
func WithRand(r *rand.Rand) Option {
	return func(o *Options) { o.Chooser = r }
}

// WithChooser injects the random source
func WithChooser(c Chooser) Option {
	return func(o *Options) { o.Chooser = c }
}

// WithReporter sets the progress reporter
func WithReporter(r ProgressReporter) Option {
	return func(o *Options) { o.Reporter = r }
}

// WithObserver sets the move observer
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Result is the outcome of one run. Assignment is a fresh map owned by the
// caller. The run is a local search; no optimality is implied.
type Result struct {
	Assignment      models.Assignment `json:"assignment"`
	Weights         models.Weights    `json:"weights"`
	Phase           Phase             `json:"phase"`
	InitialCost     float64           `json:"initial_cost"`
	FinalCost       float64           `json:"final_cost"`
	Iterations      int               `json:"iterations"`
	Accepted        int               `json:"accepted"`
	RejectedBalance int               `json:"rejected_balance"`
	RejectedCost    int               `json:"rejected_cost"`
	Skipped         int               `json:"skipped"`
	Movable         int               `json:"movable"`
	Locked          int               `json:"locked"`
	OutOfBand       []int64           `json:"out_of_band"`
	Duration        time.Duration     `json:"duration"`
}

// Rejected is the total number of rolled-back moves
func (r *Result) Rejected() int { return r.RejectedBalance + r.RejectedCost }

// Optimizer runs the greedy reassignment search. It is single-threaded and
// refuses concurrent runs.
type Optimizer struct {
	opts    Options
	running atomic.Bool
}

// NewOptimizer applies options over the defaults
func NewOptimizer(opts ...Option) *Optimizer {
	o := Options{
		Iterations:    DefaultIterations,
		ProgressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.Chooser == nil {
		o.Chooser = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Optimizer{opts: o}
}

// Optimize validates the inputs, seeds every customer to its nearest
// representative and runs the optimizer over them.
func Optimize(ctx context.Context, customers []models.Customer, reps []models.Representative, w models.Weights, c models.Constraints, opts ...Option) (*Result, error) {
	u, err := NewUniverse(customers, reps)
	if err != nil {
		return nil, err
	}
	return NewOptimizer(opts...).Run(ctx, u, w, c)
}

// Run optimizes from nearest-representative seeding. If ctx is cancelled the
// result as of the last completed iteration is returned together with the
// context error.
func (o *Optimizer) Run(ctx context.Context, u *Universe, w models.Weights, c models.Constraints) (*Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	start := time.Now()
	log := o.opts.Logger
	w = w.Normalize()

	seedStart := time.Now()
	s := Seed(u)
	checker := NewBalanceChecker(u)
	movable := MovableSet(u, c)
	current := Cost(s, w)

	res := &Result{
		Weights:     w,
		Phase:       PhaseSeeded,
		InitialCost: current,
		Movable:     len(movable),
		Locked:      u.Customers() - len(movable),
	}
	log.Info("seeded",
		zap.Int("customers", u.Customers()),
		zap.Int("representatives", u.Representatives()),
		zap.Int("movable", res.Movable),
		zap.Int("locked", res.Locked),
		zap.Float64("cost", current),
		zap.Duration("elapsed", time.Since(seedStart)))
	o.report(res, 0, current)

	res.Phase = PhaseRunning
	var runErr error
	for it := 1; it <= o.opts.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if len(movable) > 0 {
			ci := movable[o.opts.Chooser.Intn(len(movable))]
			current = o.step(s, checker, w, ci, it, current, res)
		} else {
			res.Skipped++
		}
		res.Iterations = it

		if it%o.opts.ProgressEvery == 0 {
			log.Debug("progress",
				zap.Int("iteration", it),
				zap.Float64("cost", current),
				zap.Int("accepted", res.Accepted),
				zap.Int("rejected", res.Rejected()))
			o.report(res, it, current)
		}
	}

	if runErr == nil {
		res.Phase = PhaseExhausted
	}
	res.FinalCost = current
	res.Assignment = s.Assignment()
	for _, ri := range checker.OutOfBand(s) {
		res.OutOfBand = append(res.OutOfBand, u.Representative(ri).ID)
	}
	res.Duration = time.Since(start)

	if runErr == nil {
		o.report(res, res.Iterations, current)
	}
	log.Info("finished",
		zap.String("phase", string(res.Phase)),
		zap.Int("iterations", res.Iterations),
		zap.Float64("initial_cost", res.InitialCost),
		zap.Float64("final_cost", res.FinalCost),
		zap.Int("accepted", res.Accepted),
		zap.Int("rejected_balance", res.RejectedBalance),
		zap.Int("rejected_cost", res.RejectedCost),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", res.Duration),
		zap.Error(runErr))

	return res, runErr
}

// step proposes moving customer ci to its second-nearest representative and
// returns the cost after the iteration. The move is rolled back unless it
// keeps both touched representatives in band and strictly lowers cost.
func (o *Optimizer) step(s *State, checker *BalanceChecker, w models.Weights, ci, it int, current float64, res *Result) float64 {
	u := s.u
	candidate, ok := u.matrix.Rank(ci, 1)
	from := s.Owner(ci)
	if !ok || candidate == from {
		res.Skipped++
		return current
	}

	move := Move{
		Iteration:  it,
		CustomerID: u.customers[ci].ID,
		From:       u.reps[from].ID,
		To:         u.reps[candidate].ID,
		CostBefore: current,
		CostAfter:  current,
	}

	s.Move(ci, candidate)
	committed := false
	defer func() {
		if !committed {
			s.Move(ci, from)
		}
	}()

	if balanced, reason := checker.Check(s, from, candidate); !balanced {
		res.RejectedBalance++
		o.rejected(move, reason)
		return current
	}

	next := Cost(s, w)
	move.CostAfter = next
	if next >= current {
		res.RejectedCost++
		o.rejected(move, RejectNoGain)
		return current
	}

	committed = true
	res.Accepted++
	if o.opts.Observer != nil {
		o.opts.Observer.MoveAccepted(s, move)
	}
	return next
}

func (o *Optimizer) rejected(m Move, reason RejectReason) {
	if o.opts.Observer != nil {
		o.opts.Observer.MoveRejected(m, reason)
	}
}

func (o *Optimizer) report(res *Result, it int, cost float64) {
	if o.opts.Reporter == nil {
		return
	}
	o.opts.Reporter.Report(Progress{
		Phase:     res.Phase,
		Iteration: it,
		Total:     o.opts.Iterations,
		Cost:      cost,
		Accepted:  res.Accepted,
		Rejected:  res.Rejected(),
	})
}
