package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/models"

	_ "modernc.org/sqlite"
)

const (
	DefaultDBFileName = "data.db"
	schemaVersion     = 2
)

// Store is a SQLite-based data store implementing database.DataStore
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	logger *zap.Logger

	customerRepo       database.CustomerRepository
	representativeRepo database.RepresentativeRepository
	scenarioRepo       database.ScenarioRepository
}

// New creates a new SQLite store at the specified path
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sqlite")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Info("opening SQLite database", zap.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.customerRepo = &customerRepository{store: store}
	store.representativeRepo = &representativeRepository{store: store}
	store.scenarioRepo = &scenarioRepository{store: store}

	return store, nil
}

// GetDBPath returns the current database file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		if err := s.runMigrations(version); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) createSchema() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (2);

	-- Representatives
	CREATE TABLE IF NOT EXISTS representatives (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		home_lat REAL NOT NULL,
		home_lng REAL NOT NULL
	);

	-- Customers; representative_id is the working assignment
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		revenue REAL NOT NULL DEFAULT 0,
		representative_id INTEGER NOT NULL
	);

	-- Scenarios
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		workload REAL,
		potential REAL,
		efficiency REAL,
		cost REAL NOT NULL DEFAULT 0
	);

	-- Scenario assignments
	CREATE TABLE IF NOT EXISTS scenario_assignments (
		scenario_id TEXT NOT NULL,
		customer_id INTEGER NOT NULL,
		representative_id INTEGER NOT NULL,
		PRIMARY KEY (scenario_id, customer_id),
		FOREIGN KEY (scenario_id) REFERENCES scenarios(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_customers_representative ON customers(representative_id);
	CREATE INDEX IF NOT EXISTS idx_customers_publisher ON customers(publisher);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("schema initialized", zap.Int("version", schemaVersion))
	return nil
}

func (s *Store) runMigrations(fromVersion int) error {
	if fromVersion < 2 {
		// version 1 stored scenarios without their weights
		for _, col := range []string{"workload", "potential", "efficiency"} {
			if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE scenarios ADD COLUMN %s REAL", col)); err != nil {
				return fmt.Errorf("failed to add scenarios.%s: %w", col, err)
			}
		}
	}

	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	if err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	s.logger.Info("schema migrated", zap.Int("from", fromVersion), zap.Int("to", schemaVersion))
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		// Checkpoint WAL before closing
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ReplaceDataset swaps representatives and customers in one transaction
func (s *Store) ReplaceDataset(ctx context.Context, reps []models.Representative, customers []models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceRepresentatives(ctx, tx, reps); err != nil {
		return err
	}
	if err := replaceCustomers(ctx, tx, customers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("replaced dataset",
		zap.Int("representatives", len(reps)),
		zap.Int("customers", len(customers)))
	return nil
}

// Repository accessors
func (s *Store) Customers() database.CustomerRepository             { return s.customerRepo }
func (s *Store) Representatives() database.RepresentativeRepository { return s.representativeRepo }
func (s *Store) Scenarios() database.ScenarioRepository             { return s.scenarioRepo }
