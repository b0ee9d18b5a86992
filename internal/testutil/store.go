package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"territory-planner/internal/database"
	"territory-planner/internal/models"
)

// RunDataStoreTests exercises a database.DataStore implementation. open must
// return an empty store that is closed by the caller's cleanup.
func RunDataStoreTests(t *testing.T, open func(t *testing.T) database.DataStore) {
	t.Run("EmptyStore", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.HealthCheck(ctx))

		ds, err := database.LoadDataset(ctx, store)
		require.NoError(t, err)
		assert.Nil(t, ds)

		names, err := database.ListScenarioNames(ctx, store.Scenarios())
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("DatasetRoundTrip", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, database.SaveDataset(ctx, store, SampleDataset()))

		ds, err := database.LoadDataset(ctx, store)
		require.NoError(t, err)
		require.NotNil(t, ds)
		assert.Equal(t, SampleRepresentatives(), ds.Representatives)
		assert.Equal(t, SampleCustomers(), ds.Customers)

		c, err := store.Customers().GetByID(ctx, 2001)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Lesezeichen GmbH", c.Name)
		assert.Equal(t, 2500.0, c.Revenue)

		missing, err := store.Customers().GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)

		rep, err := store.Representatives().GetByID(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, rep)
		assert.Equal(t, "Wagner", rep.Name)

		noRep, err := store.Representatives().GetByID(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, noRep)
	})

	t.Run("ReplaceAllDropsPreviousRows", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, database.SaveDataset(ctx, store, SampleDataset()))

		smaller := &models.Dataset{
			Representatives: SampleRepresentatives()[:1],
			Customers:       SampleCustomers()[:2],
		}
		require.NoError(t, database.SaveDataset(ctx, store, smaller))

		ds, err := database.LoadDataset(ctx, store)
		require.NoError(t, err)
		assert.Len(t, ds.Representatives, 1)
		assert.Len(t, ds.Customers, 2)
	})

	t.Run("ApplyAssignment", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, database.SaveDataset(ctx, store, SampleDataset()))
		require.NoError(t, store.Customers().ApplyAssignment(ctx, models.Assignment{2004: 2, 3004: 3}))

		customers, err := store.Customers().List(ctx)
		require.NoError(t, err)
		got := models.AssignmentOf(customers)
		assert.Equal(t, int64(2), got[2004])
		assert.Equal(t, int64(3), got[3004])
		assert.Equal(t, int64(1), got[1001])
	})

	t.Run("ScenarioSaveLoad", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		sc := SampleScenario("Frühjahr")
		require.NoError(t, store.Scenarios().Save(ctx, sc))
		assert.NotEmpty(t, sc.ID)

		loaded, err := store.Scenarios().Load(ctx, "Frühjahr")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, sc.ID, loaded.ID)
		assert.Equal(t, sc.Assignment, loaded.Assignment)
		assert.InDelta(t, 0.42, loaded.Cost, 1e-12)
		require.NotNil(t, loaded.Weights)
		assert.Equal(t, *sc.Weights, *loaded.Weights)
		assert.WithinDuration(t, sc.CreatedAt, loaded.CreatedAt, time.Second)

		absent, err := store.Scenarios().Load(ctx, "Herbst")
		require.NoError(t, err)
		assert.Nil(t, absent)
	})

	t.Run("ScenarioWithoutWeights", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		sc := SampleScenario("manual")
		sc.Weights = nil
		require.NoError(t, store.Scenarios().Save(ctx, sc))

		loaded, err := store.Scenarios().Load(ctx, "manual")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Nil(t, loaded.Weights)
	})

	t.Run("ScenarioOverwrite", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		first := SampleScenario("plan")
		require.NoError(t, store.Scenarios().Save(ctx, first))

		second := SampleScenario("plan")
		second.Assignment = models.Assignment{1001: 2}
		require.NoError(t, store.Scenarios().Save(ctx, second))
		assert.NotEqual(t, first.ID, second.ID)

		loaded, err := store.Scenarios().Load(ctx, "plan")
		require.NoError(t, err)
		assert.Equal(t, models.Assignment{1001: 2}, loaded.Assignment)

		infos, err := store.Scenarios().List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 1, infos[0].Customers)
	})

	t.Run("ScenarioList", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		for _, name := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, store.Scenarios().Save(ctx, SampleScenario(name)))
		}

		names, err := database.ListScenarioNames(ctx, store.Scenarios())
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

		infos, err := store.Scenarios().List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, 12, infos[0].Customers)
	})

	t.Run("ScenarioDelete", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.Scenarios().Save(ctx, SampleScenario("gone")))
		require.NoError(t, store.Scenarios().Delete(ctx, "gone"))

		loaded, err := store.Scenarios().Load(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		err = store.Scenarios().Delete(ctx, "gone")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("ScenarioEmptyName", func(t *testing.T) {
		store := open(t)

		err := store.Scenarios().Save(context.Background(), SampleScenario("  "))
		assert.ErrorIs(t, err, database.ErrEmptyName)
	})
}
