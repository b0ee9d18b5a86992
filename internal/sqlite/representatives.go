package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"territory-planner/internal/models"
)

type representativeRepository struct {
	store *Store
}

func (r *representativeRepository) List(ctx context.Context) ([]models.Representative, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.QueryContext(ctx, `SELECT id, name, home_lat, home_lng FROM representatives ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query representatives: %w", err)
	}
	defer rows.Close()

	reps := []models.Representative{}
	for rows.Next() {
		var rep models.Representative
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.HomeLat, &rep.HomeLng); err != nil {
			return nil, fmt.Errorf("failed to scan representative: %w", err)
		}
		reps = append(reps, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating representatives: %w", err)
	}

	return reps, nil
}

func (r *representativeRepository) GetByID(ctx context.Context, id int64) (*models.Representative, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rep models.Representative
	err := r.store.db.QueryRowContext(ctx, `SELECT id, name, home_lat, home_lng FROM representatives WHERE id = ?`, id).
		Scan(&rep.ID, &rep.Name, &rep.HomeLat, &rep.HomeLng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get representative: %w", err)
	}

	return &rep, nil
}

func (r *representativeRepository) ReplaceAll(ctx context.Context, reps []models.Representative) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceRepresentatives(ctx, tx, reps); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.store.logger.Debug("replaced representatives", zap.Int("count", len(reps)))
	return nil
}

func replaceRepresentatives(ctx context.Context, tx *sql.Tx, reps []models.Representative) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM representatives`); err != nil {
		return fmt.Errorf("failed to clear representatives: %w", err)
	}

	for _, rep := range reps {
		_, err := tx.ExecContext(ctx, `INSERT INTO representatives (id, name, home_lat, home_lng) VALUES (?, ?, ?, ?)`,
			rep.ID, rep.Name, rep.HomeLat, rep.HomeLng)
		if err != nil {
			return fmt.Errorf("failed to insert representative %d: %w", rep.ID, err)
		}
	}
	return nil
}
