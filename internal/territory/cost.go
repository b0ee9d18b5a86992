package territory

import (
	"math"

	"territory-planner/internal/models"
)

// Cost returns the weighted imbalance of a state:
//
//	workload  = stddev(counts)  / avg_customers
//	potential = stddev(revenue) / avg_revenue
//	cost      = w.Workload*workload + w.Potential*potential
//
// Weights are normalized first. Efficiency carries no term. Standard
// deviations are population deviations and a zero average zeroes its term.
// Cost does not modify s.
func Cost(s *State, w models.Weights) float64 {
	w = w.Normalize()
	if len(s.counts) == 0 {
		return 0
	}

	counts := make([]float64, len(s.counts))
	for i, c := range s.counts {
		counts[i] = float64(c)
	}

	var workload, potential float64
	if avg := s.u.avgCustomers; avg > 0 {
		workload = stddev(counts) / avg
	}
	if avg := s.u.avgRevenue; avg > 0 {
		potential = stddev(s.revenue) / avg
	}

	return w.Workload*workload + w.Potential*potential
}

// CostOf evaluates an assignment over the universe without keeping a state
func (u *Universe) CostOf(a models.Assignment, w models.Weights) (float64, error) {
	s, err := u.StateFrom(a)
	if err != nil {
		return 0, err
	}
	return Cost(s, w), nil
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
