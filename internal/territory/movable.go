package territory

import (
	"sort"

	"territory-planner/internal/models"
)

// TopCustomerQuantile marks the revenue quantile above which customers are
// locked when Constraints.LockTopCustomers is set.
const TopCustomerQuantile = 0.9

// MovableSet returns the customer indices the optimizer may sample from. It
// is computed once before the loop.
func MovableSet(u *Universe, c models.Constraints) []int {
	movable := make([]int, 0, len(u.customers))
	if !c.LockTopCustomers || len(u.customers) == 0 {
		for i := range u.customers {
			movable = append(movable, i)
		}
		return movable
	}

	threshold := RevenueQuantile(u.customers, TopCustomerQuantile)
	for i, cust := range u.customers {
		if cust.Revenue > threshold {
			continue
		}
		movable = append(movable, i)
	}
	return movable
}

// RevenueQuantile returns the q-quantile of customer revenue using linear
// interpolation between the closest ranks.
func RevenueQuantile(customers []models.Customer, q float64) float64 {
	if len(customers) == 0 {
		return 0
	}
	values := make([]float64, len(customers))
	for i, c := range customers {
		values[i] = c.Revenue
	}
	sort.Float64s(values)

	pos := q * float64(len(values)-1)
	lo := int(pos)
	if lo >= len(values)-1 {
		return values[len(values)-1]
	}
	frac := pos - float64(lo)
	return values[lo] + frac*(values[lo+1]-values[lo])
}
