// Package postgres is a PostgreSQL implementation of database.DataStore
// for shared deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS representatives (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	home_lat DOUBLE PRECISION NOT NULL,
	home_lng DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
	representative_id BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS scenarios (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	workload DOUBLE PRECISION,
	potential DOUBLE PRECISION,
	efficiency DOUBLE PRECISION,
	cost DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scenario_assignments (
	scenario_id UUID NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	customer_id BIGINT NOT NULL,
	representative_id BIGINT NOT NULL,
	PRIMARY KEY (scenario_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customers_representative ON customers(representative_id);
`

// Store keeps datasets and scenarios in PostgreSQL
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	customerRepo       database.CustomerRepository
	representativeRepo database.RepresentativeRepository
	scenarioRepo       database.ScenarioRepository
}

// New connects to dsn and creates the tables if they do not exist
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db, logger: logger.Named("postgres")}
	s.customerRepo = &customerRepository{db: db}
	s.representativeRepo = &representativeRepository{db: db}
	s.scenarioRepo = &scenarioRepository{db: db, logger: s.logger}
	return s, nil
}

func (s *Store) Close() error                                       { return s.db.Close() }
func (s *Store) HealthCheck(ctx context.Context) error              { return s.db.PingContext(ctx) }
func (s *Store) Customers() database.CustomerRepository             { return s.customerRepo }
func (s *Store) Representatives() database.RepresentativeRepository { return s.representativeRepo }
func (s *Store) Scenarios() database.ScenarioRepository             { return s.scenarioRepo }

// ReplaceDataset swaps representatives and customers in one transaction
func (s *Store) ReplaceDataset(ctx context.Context, reps []models.Representative, customers []models.Customer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceRepresentatives(ctx, tx, reps); err != nil {
		return err
	}
	if err := replaceCustomers(ctx, tx, customers); err != nil {
		return err
	}
	return tx.Commit()
}

type customerRepository struct {
	db *sql.DB
}

func (r *customerRepository) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, publisher, lat, lng, revenue, representative_id FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Publisher, &c.Lat, &c.Lng, &c.Revenue, &c.RepresentativeID); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, publisher, lat, lng, revenue, representative_id FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Publisher, &c.Lat, &c.Lng, &c.Revenue, &c.RepresentativeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (r *customerRepository) ReplaceAll(ctx context.Context, customers []models.Customer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceCustomers(ctx, tx, customers); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceCustomers(ctx context.Context, tx *sql.Tx, customers []models.Customer) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("failed to clear customers: %w", err)
	}
	for _, c := range customers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO customers (id, name, publisher, lat, lng, revenue, representative_id) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, c.Name, c.Publisher, c.Lat, c.Lng, c.Revenue, c.RepresentativeID)
		if err != nil {
			return fmt.Errorf("failed to insert customer %d: %w", c.ID, err)
		}
	}
	return nil
}

func (r *customerRepository) ApplyAssignment(ctx context.Context, a models.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, customerID := range a.CustomerIDs() {
		if _, err := tx.ExecContext(ctx, `UPDATE customers SET representative_id = $1 WHERE id = $2`, a[customerID], customerID); err != nil {
			return fmt.Errorf("failed to update customer %d: %w", customerID, err)
		}
	}
	return tx.Commit()
}

type representativeRepository struct {
	db *sql.DB
}

func (r *representativeRepository) List(ctx context.Context) ([]models.Representative, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, home_lat, home_lng FROM representatives ORDER BY id`)
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
	return reps, rows.Err()
}

func (r *representativeRepository) GetByID(ctx context.Context, id int64) (*models.Representative, error) {
	var rep models.Representative
	err := r.db.QueryRowContext(ctx, `SELECT id, name, home_lat, home_lng FROM representatives WHERE id = $1`, id).
		Scan(&rep.ID, &rep.Name, &rep.HomeLat, &rep.HomeLng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get representative: %w", err)
	}
	return &rep, nil
}

func (r *representativeRepository) ReplaceAll(ctx context.Context, reps []models.Representative) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceRepresentatives(ctx, tx, reps); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceRepresentatives(ctx context.Context, tx *sql.Tx, reps []models.Representative) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM representatives`); err != nil {
		return fmt.Errorf("failed to clear representatives: %w", err)
	}
	for _, rep := range reps {
		_, err := tx.ExecContext(ctx, `INSERT INTO representatives (id, name, home_lat, home_lng) VALUES ($1,$2,$3,$4)`,
			rep.ID, rep.Name, rep.HomeLat, rep.HomeLng)
		if err != nil {
			return fmt.Errorf("failed to insert representative %d: %w", rep.ID, err)
		}
	}
	return nil
}

type scenarioRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *scenarioRepository) Save(ctx context.Context, sc *models.Scenario) error {
	if err := database.PrepareScenario(sc); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE name = $1`, sc.Name); err != nil {
		return fmt.Errorf("failed to replace scenario: %w", err)
	}

	var workload, potential, efficiency sql.NullFloat64
	if sc.Weights != nil {
		workload = sql.NullFloat64{Float64: sc.Weights.Workload, Valid: true}
		potential = sql.NullFloat64{Float64: sc.Weights.Potential, Valid: true}
		efficiency = sql.NullFloat64{Float64: sc.Weights.Efficiency, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, created_at, workload, potential, efficiency, cost) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sc.ID, sc.Name, sc.CreatedAt, workload, potential, efficiency, sc.Cost)
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}

	for _, customerID := range sc.Assignment.CustomerIDs() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scenario_assignments (scenario_id, customer_id, representative_id) VALUES ($1,$2,$3)`,
			sc.ID, customerID, sc.Assignment[customerID])
		if err != nil {
			return fmt.Errorf("failed to create scenario assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Info("saved scenario", zap.String("name", sc.Name), zap.String("id", sc.ID))
	return nil
}

func (r *scenarioRepository) Load(ctx context.Context, name string) (*models.Scenario, error) {
	var sc models.Scenario
	var workload, potential, efficiency sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text, name, created_at, workload, potential, efficiency, cost FROM scenarios WHERE name = $1`, name).
		Scan(&sc.ID, &sc.Name, &sc.CreatedAt, &workload, &potential, &efficiency, &sc.Cost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if workload.Valid {
		sc.Weights = &models.Weights{Workload: workload.Float64, Potential: potential.Float64, Efficiency: efficiency.Float64}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT customer_id, representative_id FROM scenario_assignments WHERE scenario_id = $1`, sc.ID)
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
		return nil, err
	}
	return &sc, nil
}

func (r *scenarioRepository) List(ctx context.Context) ([]models.ScenarioInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id::text, s.name, s.created_at, s.cost, COUNT(a.customer_id)
		FROM scenarios s
		LEFT JOIN scenario_assignments a ON a.scenario_id = s.id
		GROUP BY s.id, s.name, s.created_at, s.cost
		ORDER BY s.name`)
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
	return infos, rows.Err()
}

func (r *scenarioRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scenarios WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	r.logger.Info("deleted scenario", zap.String("name", name))
	return nil
}
