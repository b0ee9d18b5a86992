package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"territory-planner/internal/models"
)

// JSONData represents the structure of the JSON file
type JSONData struct {
	Representatives []models.Representative `json:"representatives"`
	Customers       []models.Customer       `json:"customers"`
	Scenarios       []models.Scenario       `json:"scenarios"`
}

// JSONStore is a JSON file-based data store. Every write rewrites the file.
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex
	logger   *zap.Logger

	customerRepository       CustomerRepository
	representativeRepository RepresentativeRepository
	scenarioRepository       ScenarioRepository
}

func (s *JSONStore) Customers() CustomerRepository             { return s.customerRepository }
func (s *JSONStore) Representatives() RepresentativeRepository { return s.representativeRepository }
func (s *JSONStore) Scenarios() ScenarioRepository             { return s.scenarioRepository }

// NewJSONStore opens or creates the data file at filePath
func NewJSONStore(filePath string, logger *zap.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &JSONStore{
		filePath: filePath,
		data:     &JSONData{},
		logger:   logger.Named("json"),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	store.customerRepository = &jsonCustomerRepository{store: store}
	store.representativeRepository = &jsonRepresentativeRepository{store: store}
	store.scenarioRepository = &jsonScenarioRepository{store: store}

	store.logger.Info("using JSON data file", zap.String("path", filePath))
	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{
			Representatives: []models.Representative{},
			Customers:       []models.Customer{},
			Scenarios:       []models.Scenario{},
		}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}

	if s.data.Representatives == nil {
		s.data.Representatives = []models.Representative{}
	}
	if s.data.Customers == nil {
		s.data.Customers = []models.Customer{}
	}
	if s.data.Scenarios == nil {
		s.data.Scenarios = []models.Scenario{}
	}

	s.logger.Debug("loaded data",
		zap.Int("representatives", len(s.data.Representatives)),
		zap.Int("customers", len(s.data.Customers)),
		zap.Int("scenarios", len(s.data.Scenarios)))
	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Close is a no-op for JSON store (data is saved after each operation)
func (s *JSONStore) Close() error {
	return nil
}

// HealthCheck reports whether the data file is still reachable
func (s *JSONStore) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.filePath); err != nil {
		return fmt.Errorf("data file unavailable: %w", err)
	}
	return nil
}

func (s *JSONStore) ReplaceDataset(ctx context.Context, reps []models.Representative, customers []models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevReps, prevCustomers := s.data.Representatives, s.data.Customers
	s.data.Representatives = make([]models.Representative, len(reps))
	copy(s.data.Representatives, reps)
	s.data.Customers = make([]models.Customer, len(customers))
	copy(s.data.Customers, customers)

	if err := s.saveUnlocked(); err != nil {
		s.data.Representatives, s.data.Customers = prevReps, prevCustomers
		return err
	}

	s.logger.Debug("replaced dataset",
		zap.Int("representatives", len(reps)),
		zap.Int("customers", len(customers)))
	return nil
}

// ==================== Customer Repository ====================

type jsonCustomerRepository struct {
	store *JSONStore
}

func (r *jsonCustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]models.Customer, len(r.store.data.Customers))
	copy(result, r.store.data.Customers)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *jsonCustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, c := range r.store.data.Customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *jsonCustomerRepository) ReplaceAll(ctx context.Context, customers []models.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	previous := r.store.data.Customers
	r.store.data.Customers = make([]models.Customer, len(customers))
	copy(r.store.data.Customers, customers)

	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Customers = previous
		return err
	}

	r.store.logger.Debug("replaced customers", zap.Int("count", len(customers)))
	return nil
}

func (r *jsonCustomerRepository) ApplyAssignment(ctx context.Context, a models.Assignment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	previous := make([]models.Customer, len(r.store.data.Customers))
	copy(previous, r.store.data.Customers)

	for i, c := range r.store.data.Customers {
		if repID, ok := a[c.ID]; ok {
			r.store.data.Customers[i].RepresentativeID = repID
		}
	}

	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Customers = previous
		return err
	}
	return nil
}

// ==================== Representative Repository ====================

type jsonRepresentativeRepository struct {
	store *JSONStore
}

func (r *jsonRepresentativeRepository) List(ctx context.Context) ([]models.Representative, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]models.Representative, len(r.store.data.Representatives))
	copy(result, r.store.data.Representatives)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *jsonRepresentativeRepository) GetByID(ctx context.Context, id int64) (*models.Representative, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, rep := range r.store.data.Representatives {
		if rep.ID == id {
			return &rep, nil
		}
	}
	return nil, nil
}

func (r *jsonRepresentativeRepository) ReplaceAll(ctx context.Context, reps []models.Representative) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	previous := r.store.data.Representatives
	r.store.data.Representatives = make([]models.Representative, len(reps))
	copy(r.store.data.Representatives, reps)

	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Representatives = previous
		return err
	}

	r.store.logger.Debug("replaced representatives", zap.Int("count", len(reps)))
	return nil
}

// ==================== Scenario Repository ====================

type jsonScenarioRepository struct {
	store *JSONStore
}

func (r *jsonScenarioRepository) Save(ctx context.Context, sc *models.Scenario) error {
	if err := PrepareScenario(sc); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	previous := r.store.data.Scenarios
	stored := *sc
	stored.Assignment = sc.Assignment.Clone()

	next := make([]models.Scenario, 0, len(previous)+1)
	for _, existing := range previous {
		if existing.Name != sc.Name {
			next = append(next, existing)
		}
	}
	r.store.data.Scenarios = append(next, stored)

	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Scenarios = previous
		return err
	}

	r.store.logger.Info("saved scenario", zap.String("name", sc.Name), zap.Int("customers", len(sc.Assignment)))
	return nil
}

func (r *jsonScenarioRepository) Load(ctx context.Context, name string) (*models.Scenario, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, sc := range r.store.data.Scenarios {
		if sc.Name == name {
			out := sc
			out.Assignment = sc.Assignment.Clone()
			if sc.Weights != nil {
				w := *sc.Weights
				out.Weights = &w
			}
			return &out, nil
		}
	}
	return nil, nil
}

func (r *jsonScenarioRepository) List(ctx context.Context) ([]models.ScenarioInfo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	infos := make([]models.ScenarioInfo, 0, len(r.store.data.Scenarios))
	for _, sc := range r.store.data.Scenarios {
		infos = append(infos, models.ScenarioInfo{
			ID:        sc.ID,
			Name:      sc.Name,
			CreatedAt: sc.CreatedAt,
			Customers: len(sc.Assignment),
			Cost:      sc.Cost,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (r *jsonScenarioRepository) Delete(ctx context.Context, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i, sc := range r.store.data.Scenarios {
		if sc.Name != name {
			continue
		}
		previous := r.store.data.Scenarios
		next := make([]models.Scenario, 0, len(previous)-1)
		next = append(next, previous[:i]...)
		next = append(next, previous[i+1:]...)
		r.store.data.Scenarios = next

		if err := r.store.saveUnlocked(); err != nil {
			r.store.data.Scenarios = previous
			return err
		}

		r.store.logger.Info("deleted scenario", zap.String("name", name))
		return nil
	}

	return ErrNotFound
}
