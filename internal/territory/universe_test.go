package territory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"territory-planner/internal/models"
)

func TestNewUniverse_Averages(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	assert.Equal(t, 6, u.Customers())
	assert.Equal(t, 3, u.Representatives())
	assert.Equal(t, 2.0, u.AverageCustomers())
	assert.Equal(t, 200.0, u.AverageRevenue())
}

func TestNewUniverse_DataErrors(t *testing.T) {
	customers, reps := threeCorners()

	tests := []struct {
		name      string
		customers []models.Customer
		reps      []models.Representative
	}{
		{
			name:      "duplicate customer",
			customers: append(append([]models.Customer{}, customers...), customers[0]),
			reps:      reps,
		},
		{
			name:      "duplicate representative",
			customers: customers,
			reps:      append(append([]models.Representative{}, reps...), reps[1]),
		},
		{
			name:      "customer without coordinates",
			customers: []models.Customer{{ID: 1, Lat: math.NaN(), Lng: 1}},
			reps:      reps,
		},
		{
			name:      "latitude out of range",
			customers: []models.Customer{{ID: 1, Lat: 91, Lng: 1}},
			reps:      reps,
		},
		{
			name:      "negative revenue",
			customers: []models.Customer{{ID: 1, Lat: 1, Lng: 1, Revenue: -5}},
			reps:      reps,
		},
		{
			name:      "representative without home",
			customers: customers,
			reps:      []models.Representative{{ID: 1, HomeLat: math.Inf(1), HomeLng: 0}},
		},
		{
			name:      "customers but no representatives",
			customers: customers,
			reps:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniverse(tt.customers, tt.reps)
			require.Error(t, err)
			assert.True(t, models.IsDataError(err), "expected DataError, got %T", err)
		})
	}
}

func TestNewUniverse_EmptyIsValid(t *testing.T) {
	u, err := NewUniverse(nil, nil)
	require.NoError(t, err)
	assert.True(t, u.Matrix().Empty())
	assert.Equal(t, 0.0, u.AverageCustomers())

	_, reps := threeCorners()
	u, err = NewUniverse(nil, reps)
	require.NoError(t, err)
	assert.True(t, u.Matrix().Empty())
	assert.Empty(t, Seed(u).Assignment())
}

func TestNewUniverse_CopiesInput(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	customers[0].Revenue = 999999
	reps[0].Name = "changed"

	assert.Equal(t, 100.0, u.Customer(0).Revenue)
	assert.Equal(t, "Alpha", u.Representative(0).Name)
}

func TestStateFrom(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	a := models.Assignment{101: 1, 102: 1, 103: 1, 104: 2, 105: 3, 106: 3}
	s, err := u.StateFrom(a)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count(0))
	assert.Equal(t, 1, s.Count(1))
	assert.Equal(t, 2, s.Count(2))
	assert.Equal(t, a, s.Assignment())

	t.Run("partial assignment", func(t *testing.T) {
		_, err := u.StateFrom(models.Assignment{101: 1})
		assert.True(t, models.IsDataError(err))
	})

	t.Run("unknown representative", func(t *testing.T) {
		bad := a.Clone()
		bad[101] = 42
		_, err := u.StateFrom(bad)
		assert.True(t, models.IsDataError(err))
	})

	t.Run("foreign customer", func(t *testing.T) {
		bad := a.Clone()
		delete(bad, 101)
		bad[999] = 1
		_, err := u.StateFrom(bad)
		assert.True(t, models.IsDataError(err))
	})
}
