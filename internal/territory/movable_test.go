package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"territory-planner/internal/models"
)

func TestRevenueQuantile(t *testing.T) {
	customers := make([]models.Customer, 10)
	for i := range customers {
		customers[i] = models.Customer{ID: int64(i), Revenue: float64(10 - i)}
	}

	assert.InDelta(t, 9.1, RevenueQuantile(customers, 0.9), 1e-12)
	assert.Equal(t, 1.0, RevenueQuantile(customers, 0))
	assert.Equal(t, 10.0, RevenueQuantile(customers, 1))
	assert.Equal(t, 0.0, RevenueQuantile(nil, 0.9))
}

func TestMovableSet(t *testing.T) {
	customers, reps := threeCorners()
	customers[2].Revenue = 1_000_000
	u := mustUniverse(t, customers, reps)

	all := MovableSet(u, models.Constraints{})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, all)

	locked := MovableSet(u, models.Constraints{LockTopCustomers: true})
	assert.Equal(t, []int{0, 1, 3, 4, 5}, locked)
}

func TestMovableSet_EqualRevenueLocksNobody(t *testing.T) {
	customers, reps := threeCorners()
	u := mustUniverse(t, customers, reps)

	assert.Len(t, MovableSet(u, models.Constraints{LockTopCustomers: true}), 6)
}
