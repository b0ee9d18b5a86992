package database

import (
	"context"

	"territory-planner/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	// ReplaceDataset swaps representatives and customers together. On error
	// the previous dataset is kept.
	ReplaceDataset(ctx context.Context, reps []models.Representative, customers []models.Customer) error
	Customers() CustomerRepository
	Representatives() RepresentativeRepository
	Scenarios() ScenarioRepository
}

// CustomerRepository handles customer persistence. The stored
// representative_id is the working assignment of the customer.
type CustomerRepository interface {
	List(ctx context.Context) ([]models.Customer, error)
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	ReplaceAll(ctx context.Context, customers []models.Customer) error
	ApplyAssignment(ctx context.Context, a models.Assignment) error
}

// RepresentativeRepository handles representative persistence
type RepresentativeRepository interface {
	List(ctx context.Context) ([]models.Representative, error)
	GetByID(ctx context.Context, id int64) (*models.Representative, error)
	ReplaceAll(ctx context.Context, reps []models.Representative) error
}

// ScenarioRepository handles named assignment snapshots. Save replaces a
// scenario with the same name. Load returns nil, nil for an unknown name.
type ScenarioRepository interface {
	Save(ctx context.Context, sc *models.Scenario) error
	Load(ctx context.Context, name string) (*models.Scenario, error)
	List(ctx context.Context) ([]models.ScenarioInfo, error)
	Delete(ctx context.Context, name string) error
}
