package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"territory-planner/internal/models"
)

// SaveDataset replaces the stored representatives and customers in one step
func SaveDataset(ctx context.Context, store DataStore, ds *models.Dataset) error {
	if err := store.ReplaceDataset(ctx, ds.Representatives, ds.Customers); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// LoadDataset reads the stored dataset. It returns nil, nil when nothing
// has been imported yet.
func LoadDataset(ctx context.Context, store DataStore) (*models.Dataset, error) {
	reps, err := store.Representatives().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load representatives: %w", err)
	}
	if len(reps) == 0 {
		return nil, nil
	}
	customers, err := store.Customers().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	return &models.Dataset{
		Customers:       customers,
		Representatives: reps,
		LoadedAt:        time.Now(),
	}, nil
}

// ListScenarioNames returns the stored scenario names in ascending order
func ListScenarioNames(ctx context.Context, repo ScenarioRepository) ([]string, error) {
	infos, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	sort.Strings(names)
	return names, nil
}

// PrepareScenario validates sc before it is written and fills in a fresh ID
// and creation time. Saving a name again creates a new snapshot.
func PrepareScenario(sc *models.Scenario) error {
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Name == "" {
		return ErrEmptyName
	}
	sc.ID = uuid.NewString()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	if sc.Assignment == nil {
		sc.Assignment = models.Assignment{}
	}
	return nil
}
