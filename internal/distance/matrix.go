package distance

import (
	"math"
	"sort"

	"territory-planner/internal/models"
)

// Planar returns the straight-line distance between two points measured in
// raw coordinate degrees. No great-circle correction is applied.
func Planar(a, b models.Coordinates) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Matrix holds customer-to-representative distances and, per customer, the
// representative indices ordered by ascending distance. It is read-only once
// built.
type Matrix struct {
	dist    [][]float64
	ranking [][]int
	reps    int
}

// NewMatrix computes the N×M planar distance matrix. If either side is empty
// the matrix is empty.
func NewMatrix(customers, reps []models.Coordinates) *Matrix {
	if len(customers) == 0 || len(reps) == 0 {
		return &Matrix{}
	}

	m := &Matrix{
		dist:    make([][]float64, len(customers)),
		ranking: make([][]int, len(customers)),
		reps:    len(reps),
	}

	for i, c := range customers {
		row := make([]float64, len(reps))
		order := make([]int, len(reps))
		for j, r := range reps {
			row[j] = Planar(c, r)
			order[j] = j
		}
		// stable: equal distances keep the lower representative index first
		sort.SliceStable(order, func(a, b int) bool {
			return row[order[a]] < row[order[b]]
		})
		m.dist[i] = row
		m.ranking[i] = order
	}

	return m
}

// Customers returns the number of rows
func (m *Matrix) Customers() int { return len(m.dist) }

// Representatives returns the number of columns
func (m *Matrix) Representatives() int { return m.reps }

// Empty reports whether the matrix has no entries
func (m *Matrix) Empty() bool { return len(m.dist) == 0 }

// Distance returns the distance between customer c and representative r
func (m *Matrix) Distance(c, r int) float64 {
	return m.dist[c][r]
}

// Rank returns the representative at position k of customer c's ranking.
// ok is false when the customer has fewer than k+1 representatives.
func (m *Matrix) Rank(c, k int) (int, bool) {
	if c < 0 || c >= len(m.ranking) || k < 0 || k >= len(m.ranking[c]) {
		return -1, false
	}
	return m.ranking[c][k], true
}

// Nearest returns the rank-0 representative of customer c, or -1 if none
func (m *Matrix) Nearest(c int) int {
	r, _ := m.Rank(c, 0)
	return r
}

// Ranking returns a copy of customer c's representative ordering
func (m *Matrix) Ranking(c int) []int {
	out := make([]int, len(m.ranking[c]))
	copy(out, m.ranking[c])
	return out
}
