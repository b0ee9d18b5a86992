package progress

import (
	"context"
	"errors"
	"time"

	"territory-planner/internal/territory"
)

// Reporter publishes optimizer progress of one run
type Reporter struct {
	broker Broker
	runID  string
	now    func() time.Time
}

var _ territory.ProgressReporter = (*Reporter)(nil)

func NewReporter(b Broker, runID string) *Reporter {
	return &Reporter{broker: b, runID: runID, now: time.Now}
}

func (r *Reporter) Report(p territory.Progress) {
	r.broker.Publish(r.runID, Event{
		RunID:     r.runID,
		State:     string(p.Phase),
		Iteration: p.Iteration,
		Total:     p.Total,
		Cost:      p.Cost,
		Accepted:  p.Accepted,
		Rejected:  p.Rejected,
		At:        r.now(),
	})
}

// Finish publishes the terminal event for a run that stopped with err. res
// may be nil when the run never started. A nil err needs no call; the
// exhausted phase arrives through Report.
func (r *Reporter) Finish(res *territory.Result, total int, err error) {
	state := StateFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		state = StateCancelled
	}
	evt := Event{
		RunID: r.runID,
		State: state,
		Total: total,
		Error: err.Error(),
		At:    r.now(),
	}
	if res != nil {
		evt.Iteration = res.Iterations
		evt.Cost = res.FinalCost
		evt.Accepted = res.Accepted
		evt.Rejected = res.Rejected()
	}
	r.broker.Publish(r.runID, evt)
}
