package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"territory-planner/internal/models"
)

func TestSeed_ThreeCornersSplitEvenly(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	s := Seed(u)

	assert.Equal(t, 2, s.Count(0))
	assert.Equal(t, 2, s.Count(1))
	assert.Equal(t, 2, s.Count(2))
	assert.Equal(t, models.Assignment{
		101: 1, 102: 1,
		103: 2, 104: 2,
		105: 3, 106: 3,
	}, s.Assignment())
}

func TestSeed_Deterministic(t *testing.T) {
	customers, reps := randomRegion(7, 300, 6)
	u := mustUniverse(t, customers, reps)

	first := Seed(u).Assignment()
	second := Seed(u).Assignment()

	assert.Equal(t, first, second)

	for ci := 0; ci < u.Customers(); ci++ {
		c := u.Customer(ci)
		assert.Equal(t, u.Representative(u.Matrix().Nearest(ci)).ID, first[c.ID])
	}
}

func TestSeed_SingleRepresentative(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps[:1])

	s := Seed(u)

	assert.Equal(t, 6, s.Count(0))
	for _, repID := range s.Assignment() {
		assert.Equal(t, int64(1), repID)
	}
}

func TestState_MoveKeepsAggregates(t *testing.T) {
	customers, reps := threeCorners()
	customers[0].Revenue = 250
	u := mustUniverse(t, customers, reps)
	s := Seed(u)

	from := s.Move(0, 2)

	assert.Equal(t, 0, from)
	assert.Equal(t, 1, s.Count(0))
	assert.Equal(t, 3, s.Count(2))
	assert.Equal(t, 100.0, s.Revenue(0))
	assert.Equal(t, 450.0, s.Revenue(2))
	assert.Equal(t, int64(3), s.Assignment()[101])

	s.Move(0, from)
	assert.Equal(t, 2, s.Count(0))
	assert.Equal(t, 350.0, s.Revenue(0))
}

func TestState_CloneIndependent(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)
	s := Seed(u)

	c := s.Clone()
	c.Move(0, 1)

	assert.Equal(t, 0, s.Owner(0))
	assert.Equal(t, 1, c.Owner(0))
	assert.Equal(t, 2, s.Count(1))
}

func TestState_AssignmentIsSnapshot(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)
	s := Seed(u)

	snap := s.Assignment()
	snap[101] = 3

	assert.Equal(t, int64(1), s.Assignment()[101])
}

func TestState_Stats(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	stats := Seed(u).Stats()

	require.Len(t, stats, 3)
	assert.Equal(t, "Bravo", stats[1].Name)
	assert.Equal(t, 2, stats[1].Customers)
	assert.Equal(t, 200.0, stats[1].Revenue)
}
