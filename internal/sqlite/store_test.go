package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
	"territory-planner/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	store, err := New(filepath.Join(t.TempDir(), DefaultDBFileName), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	testutil.RunDataStoreTests(t, func(t *testing.T) database.DataStore {
		return setupTestStore(t)
	})
}

func TestNewStore(t *testing.T) {
	store := setupTestStore(t)
	assert.NotNil(t, store.Customers())
	assert.NotNil(t, store.Representatives())
	assert.NotNil(t, store.Scenarios())
	assert.Equal(t, DefaultDBFileName, filepath.Base(store.GetDBPath()))
}

func TestHealthCheckAfterClose(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "closed.db"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	ctx := context.Background()

	store, err := New(path, nil)
	require.NoError(t, err)
	require.NoError(t, database.SaveDataset(ctx, store, testutil.SampleDataset()))
	require.NoError(t, store.Scenarios().Save(ctx, testutil.SampleScenario("kept")))
	require.NoError(t, store.Close())

	reopened, err := New(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	ds, err := database.LoadDataset(ctx, reopened)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Len(t, ds.Customers, 12)

	names, err := database.ListScenarioNames(ctx, reopened.Scenarios())
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, names)
}

func TestMigrateFromVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
	CREATE TABLE schema_version (version INTEGER PRIMARY KEY);
	INSERT INTO schema_version (version) VALUES (1);
	CREATE TABLE representatives (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE, home_lat REAL NOT NULL, home_lng REAL NOT NULL);
	CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL DEFAULT '', publisher TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL, lng REAL NOT NULL, revenue REAL NOT NULL DEFAULT 0, representative_id INTEGER NOT NULL);
	CREATE TABLE scenarios (id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, created_at DATETIME NOT NULL, cost REAL NOT NULL DEFAULT 0);
	CREATE TABLE scenario_assignments (scenario_id TEXT NOT NULL, customer_id INTEGER NOT NULL, representative_id INTEGER NOT NULL,
		PRIMARY KEY (scenario_id, customer_id));
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := New(path, nil)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.db.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)

	ctx := context.Background()
	w := models.Weights{Workload: 1}
	sc := testutil.SampleScenario("after-migration")
	sc.Weights = &w
	require.NoError(t, store.Scenarios().Save(ctx, sc))

	loaded, err := store.Scenarios().Load(ctx, "after-migration")
	require.NoError(t, err)
	require.NotNil(t, loaded.Weights)
	assert.Equal(t, 1.0, loaded.Weights.Workload)
}

func TestScenarioSaveIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Scenarios().Save(ctx, testutil.SampleScenario("cancelled"))
	require.Error(t, err)

	loaded, err := store.Scenarios().Load(context.Background(), "cancelled")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestReplaceDatasetIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, database.SaveDataset(ctx, store, testutil.SampleDataset()))

	customers := testutil.SampleCustomers()[:3]
	customers = append(customers, customers[0])
	err := store.ReplaceDataset(ctx, testutil.SampleRepresentatives()[:1], customers)
	require.Error(t, err)

	ds, err := database.LoadDataset(ctx, store)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, testutil.SampleRepresentatives(), ds.Representatives)
	assert.Equal(t, testutil.SampleCustomers(), ds.Customers)
}
