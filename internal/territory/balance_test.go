package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"territory-planner/internal/models"
)

func TestBalanceChecker_Bands(t *testing.T) {
	customers, reps := lopsidedPair()
	u := mustUniverse(t, customers, reps)
	checker := NewBalanceChecker(u)
	s := Seed(u)

	// 4 vs 2 customers against an average of 3: 33% off
	ok, reason := checker.Check(s, 0)
	assert.False(t, ok)
	assert.Equal(t, RejectCountBand, reason)
	assert.False(t, checker.IsBalanced(s, 1))

	s.Move(0, 1)
	assert.True(t, checker.IsBalanced(s, 0, 1))
	assert.Empty(t, checker.OutOfBand(s))
}

func TestBalanceChecker_RevenueBand(t *testing.T) {
	customers, reps := lopsidedPair()
	// equal counts after one move but revenue concentrated on one side
	customers[5].Revenue = 1000
	u := mustUniverse(t, customers, reps)
	checker := NewBalanceChecker(u)
	s := Seed(u)
	s.Move(0, 1)

	ok, reason := checker.Check(s, 0, 1)
	assert.False(t, ok)
	assert.Equal(t, RejectRevenueBand, reason)
}

func TestBalanceChecker_OnlyTouchedRepresentatives(t *testing.T) {
	reps := []models.Representative{
		{ID: 1, HomeLat: 0, HomeLng: 0},
		{ID: 2, HomeLat: 0, HomeLng: 10},
		{ID: 3, HomeLat: 10, HomeLng: 0},
	}
	customers := []models.Customer{
		{ID: 1, Lat: 0, Lng: 1, Revenue: 10},
		{ID: 2, Lat: 0, Lng: 9, Revenue: 10},
		{ID: 3, Lat: 0, Lng: 8, Revenue: 10},
	}
	u := mustUniverse(t, customers, reps)
	checker := NewBalanceChecker(u)
	s := Seed(u)

	// representative 3 holds nobody and is out of band
	assert.Equal(t, 0, s.Count(2))
	assert.False(t, checker.IsBalanced(s, 2))
	assert.Contains(t, checker.OutOfBand(s), 2)

	// a check on the first representative alone ignores the empty one
	assert.True(t, checker.IsBalanced(s, 0))

	s.Move(2, 2)
	assert.True(t, checker.IsBalanced(s, 1, 2))
}

func TestBalanceChecker_ZeroRevenueIsBalanced(t *testing.T) {
	customers, reps := threeCorners()
	for i := range customers {
		customers[i].Revenue = 0
	}
	u := mustUniverse(t, customers, reps)
	checker := NewBalanceChecker(u)
	s := Seed(u)

	assert.Equal(t, 0.0, u.AverageRevenue())
	assert.True(t, checker.IsBalanced(s, 0, 1, 2))
}

func TestBalanceChecker_NoCustomersIsBalanced(t *testing.T) {
	_, reps := threeCorners()
	u := mustUniverse(t, nil, reps)
	checker := NewBalanceChecker(u)

	assert.True(t, checker.IsBalanced(Seed(u), 0, 1, 2))
}

func TestWithinBandBoundaries(t *testing.T) {
	assert.True(t, withinBand(120, 100, 0.20))
	assert.True(t, withinBand(80, 100, 0.20))
	assert.False(t, withinBand(121, 100, 0.20))
	assert.False(t, withinBand(74, 100, 0.25))
	assert.True(t, withinBand(1e9, 0, 0.20))
}
