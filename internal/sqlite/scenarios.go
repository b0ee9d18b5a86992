package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
)

type scenarioRepository struct {
	store *Store
}

func (r *scenarioRepository) Save(ctx context.Context, sc *models.Scenario) error {
	if err := database.PrepareScenario(sc); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByName(ctx, tx, sc.Name); err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to replace scenario: %w", err)
	}

	var workload, potential, efficiency sql.NullFloat64
	if sc.Weights != nil {
		workload = sql.NullFloat64{Float64: sc.Weights.Workload, Valid: true}
		potential = sql.NullFloat64{Float64: sc.Weights.Potential, Valid: true}
		efficiency = sql.NullFloat64{Float64: sc.Weights.Efficiency, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, created_at, workload, potential, efficiency, cost) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.CreatedAt.UTC(), workload, potential, efficiency, sc.Cost)
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scenario_assignments (scenario_id, customer_id, representative_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	for _, customerID := range sc.Assignment.CustomerIDs() {
		if _, err := stmt.ExecContext(ctx, sc.ID, customerID, sc.Assignment[customerID]); err != nil {
			return fmt.Errorf("failed to create scenario assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.store.logger.Info("saved scenario",
		zap.String("name", sc.Name),
		zap.String("id", sc.ID),
		zap.Int("customers", len(sc.Assignment)))
	return nil
}

func (r *scenarioRepository) Load(ctx context.Context, name string) (*models.Scenario, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var sc models.Scenario
	var workload, potential, efficiency sql.NullFloat64
	err := r.store.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, workload, potential, efficiency, cost FROM scenarios WHERE name = ?`, name).
		Scan(&sc.ID, &sc.Name, &sc.CreatedAt, &workload, &potential, &efficiency, &sc.Cost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if workload.Valid {
		sc.Weights = &models.Weights{
			Workload:   workload.Float64,
			Potential:  potential.Float64,
			Efficiency: efficiency.Float64,
		}
	}

	rows, err := r.store.db.QueryContext(ctx,
		`SELECT customer_id, representative_id FROM scenario_assignments WHERE scenario_id = ?`, sc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario assignments: %w", err)
	}
	defer rows.Close()

	sc.Assignment = models.Assignment{}
	for rows.Next() {
		var customerID, repID int64
		if err := rows.Scan(&customerID, &repID); err != nil {
			return nil, fmt.Errorf("failed to scan scenario assignment: %w", err)
		}
		sc.Assignment[customerID] = repID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenario assignments: %w", err)
	}

	return &sc, nil
}

func (r *scenarioRepository) List(ctx context.Context) ([]models.ScenarioInfo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT s.id, s.name, s.created_at, s.cost, COUNT(a.customer_id)
	          FROM scenarios s
	          LEFT JOIN scenario_assignments a ON a.scenario_id = s.id
	          GROUP BY s.id, s.name, s.created_at, s.cost
	          ORDER BY s.name ASC`

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	infos := []models.ScenarioInfo{}
	for rows.Next() {
		var info models.ScenarioInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.Cost, &info.Customers); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenarios: %w", err)
	}

	return infos, nil
}

func (r *scenarioRepository) Delete(ctx context.Context, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteByName(ctx, tx, name); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.store.logger.Info("deleted scenario", zap.String("name", name))
	return nil
}

// deleteByName removes a scenario and its assignments. The assignments are
// deleted explicitly since foreign_keys is a per-connection pragma.
func deleteByName(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM scenario_assignments WHERE scenario_id IN (SELECT id FROM scenarios WHERE name = ?)`, name)
	if err != nil {
		return fmt.Errorf("failed to delete scenario assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrNotFound
	}
	return nil
}
