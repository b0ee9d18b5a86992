package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"territory-planner/internal/models"
)

func TestPlanar(t *testing.T) {
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 3, Lng: 4}

	assert.Equal(t, 5.0, Planar(a, b))
	assert.Equal(t, Planar(a, b), Planar(b, a))
	assert.Equal(t, 0.0, Planar(a, a))
}

func TestNewMatrix_Rankings(t *testing.T) {
	reps := []models.Coordinates{
		{Lat: 0, Lng: 0},
		{Lat: 10, Lng: 10},
		{Lat: 0, Lng: 10},
	}
	customers := []models.Coordinates{
		{Lat: 1, Lng: 1},
		{Lat: 9, Lng: 9},
		{Lat: 1, Lng: 9},
	}

	m := NewMatrix(customers, reps)
	require.False(t, m.Empty())
	assert.Equal(t, 3, m.Customers())
	assert.Equal(t, 3, m.Representatives())

	assert.Equal(t, 0, m.Nearest(0))
	assert.Equal(t, 1, m.Nearest(1))
	assert.Equal(t, 2, m.Nearest(2))

	for c := 0; c < m.Customers(); c++ {
		ranking := m.Ranking(c)
		require.Len(t, ranking, 3)
		for k := 1; k < len(ranking); k++ {
			assert.LessOrEqual(t, m.Distance(c, ranking[k-1]), m.Distance(c, ranking[k]),
				"customer %d ranking not ascending", c)
		}
	}

	assert.InDelta(t, math.Sqrt(2), m.Distance(0, 0), 1e-12)
}

func TestNewMatrix_TiesBreakByIndex(t *testing.T) {
	reps := []models.Coordinates{
		{Lat: 0, Lng: 2},
		{Lat: 0, Lng: -2},
		{Lat: 2, Lng: 0},
	}
	customers := []models.Coordinates{{Lat: 0, Lng: 0}}

	m := NewMatrix(customers, reps)

	assert.Equal(t, []int{0, 1, 2}, m.Ranking(0))
}

func TestNewMatrix_Empty(t *testing.T) {
	reps := []models.Coordinates{{Lat: 1, Lng: 1}}

	m := NewMatrix(nil, reps)
	assert.True(t, m.Empty())
	assert.Equal(t, 0, m.Customers())

	m = NewMatrix([]models.Coordinates{{Lat: 1, Lng: 1}}, nil)
	assert.True(t, m.Empty())
	assert.Equal(t, -1, m.Nearest(0))
}

func TestMatrix_RankOutOfRange(t *testing.T) {
	m := NewMatrix([]models.Coordinates{{Lat: 0, Lng: 0}}, []models.Coordinates{{Lat: 1, Lng: 1}})

	r, ok := m.Rank(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 0, r)

	_, ok = m.Rank(0, 1)
	assert.False(t, ok, "single representative has no rank 1")

	_, ok = m.Rank(5, 0)
	assert.False(t, ok)
}

func TestMatrix_RankingIsCopy(t *testing.T) {
	m := NewMatrix([]models.Coordinates{{Lat: 0, Lng: 0}},
		[]models.Coordinates{{Lat: 1, Lng: 1}, {Lat: 5, Lng: 5}})

	r := m.Ranking(0)
	r[0] = 99

	assert.Equal(t, 0, m.Nearest(0))
}
