package workspace

import (
	"context"
	"time"

	"go.uber.org/zap"

	"territory-planner/internal/metrics"
	"territory-planner/internal/models"
)

// Reassign moves a customer to another representative and records the change
// for undo. Reassigning to the current owner is a no-op that records nothing.
func (w *Workspace) Reassign(ctx context.Context, customerID, representativeID int64) (models.ReassignmentRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return models.ReassignmentRecord{}, ErrNoDataset
	}
	ci, ok := w.universe.CustomerIndex(customerID)
	if !ok {
		return models.ReassignmentRecord{}, ErrUnknownCustomer
	}
	ri, ok := w.universe.RepresentativeIndex(representativeID)
	if !ok {
		return models.ReassignmentRecord{}, ErrUnknownRepresentative
	}

	prev := w.state.Owner(ci)
	rec := models.ReassignmentRecord{
		CustomerID:          customerID,
		OldRepresentativeID: w.universe.Representative(prev).ID,
		NewRepresentativeID: representativeID,
		At:                  time.Now(),
	}
	if prev == ri {
		return rec, nil
	}

	w.state.Move(ci, ri)
	if err := w.persist(ctx, models.Assignment{customerID: representativeID}); err != nil {
		w.state.Move(ci, prev)
		return models.ReassignmentRecord{}, err
	}
	w.history = append(w.history, rec)
	metrics.Reassignments.WithLabelValues("reassign").Inc()

	w.logger.Info("customer reassigned",
		zap.Int64("customer_id", customerID),
		zap.Int64("from", rec.OldRepresentativeID),
		zap.Int64("to", representativeID))
	return rec, nil
}

// Undo reverts the most recent manual reassignment and returns it
func (w *Workspace) Undo(ctx context.Context) (models.ReassignmentRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return models.ReassignmentRecord{}, ErrNoDataset
	}
	if len(w.history) == 0 {
		return models.ReassignmentRecord{}, ErrNothingToUndo
	}

	rec := w.history[len(w.history)-1]
	ci, _ := w.universe.CustomerIndex(rec.CustomerID)
	ri, _ := w.universe.RepresentativeIndex(rec.OldRepresentativeID)
	prev := w.state.Move(ci, ri)
	if err := w.persist(ctx, models.Assignment{rec.CustomerID: rec.OldRepresentativeID}); err != nil {
		w.state.Move(ci, prev)
		return models.ReassignmentRecord{}, err
	}
	w.history = w.history[:len(w.history)-1]
	metrics.Reassignments.WithLabelValues("undo").Inc()

	w.logger.Info("reassignment undone",
		zap.Int64("customer_id", rec.CustomerID),
		zap.Int64("restored", rec.OldRepresentativeID))
	return rec, nil
}

// History returns the manual reassignments oldest first
func (w *Workspace) History() []models.ReassignmentRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.ReassignmentRecord, len(w.history))
	copy(out, w.history)
	return out
}
