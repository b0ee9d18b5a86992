package territory

import "territory-planner/internal/models"

// State is the optimizer's working assignment. It keeps per-representative
// customer counts and revenue in step with every move so that cost and
// balance can be read without rescanning customers.
type State struct {
	u       *Universe
	owner   []int
	counts  []int
	revenue []float64
}

func newState(u *Universe) *State {
	s := &State{
		u:       u,
		owner:   make([]int, len(u.customers)),
		counts:  make([]int, len(u.reps)),
		revenue: make([]float64, len(u.reps)),
	}
	for i := range s.owner {
		s.owner[i] = -1
	}
	return s
}

// Seed assigns every customer to its nearest representative. Ties resolve to
// the lower representative index, so seeding is deterministic.
func Seed(u *Universe) *State {
	s := newState(u)
	if u.matrix.Empty() {
		return s
	}
	for ci := range u.customers {
		s.place(ci, u.matrix.Nearest(ci))
	}
	return s
}

func (s *State) place(ci, ri int) {
	s.owner[ci] = ri
	s.counts[ri]++
	s.revenue[ri] += s.u.customers[ci].Revenue
}

// Move reassigns customer ci to representative ri and returns the previous
// representative index.
func (s *State) Move(ci, ri int) int {
	from := s.owner[ci]
	if from == ri {
		return from
	}
	rev := s.u.customers[ci].Revenue
	s.counts[from]--
	s.revenue[from] -= rev
	s.counts[ri]++
	s.revenue[ri] += rev
	s.owner[ci] = ri
	return from
}

// Owner returns the representative index of customer ci
func (s *State) Owner(ci int) int { return s.owner[ci] }

// Count returns the number of customers held by representative ri
func (s *State) Count(ri int) int { return s.counts[ri] }

// Revenue returns the revenue held by representative ri
func (s *State) Revenue(ri int) float64 { return s.revenue[ri] }

// Universe returns the universe the state belongs to
func (s *State) Universe() *Universe { return s.u }

// Clone returns an independent copy sharing only the universe
func (s *State) Clone() *State {
	c := &State{
		u:       s.u,
		owner:   make([]int, len(s.owner)),
		counts:  make([]int, len(s.counts)),
		revenue: make([]float64, len(s.revenue)),
	}
	copy(c.owner, s.owner)
	copy(c.counts, s.counts)
	copy(c.revenue, s.revenue)
	return c
}

// Assignment returns a snapshot of the state keyed by customer and
// representative IDs. The caller owns the returned map.
func (s *State) Assignment() models.Assignment {
	a := make(models.Assignment, len(s.owner))
	for ci, ri := range s.owner {
		if ri < 0 {
			continue
		}
		a[s.u.customers[ci].ID] = s.u.reps[ri].ID
	}
	return a
}

// Stats returns per-representative customer count and revenue in
// representative order.
func (s *State) Stats() []models.RepresentativeStats {
	out := make([]models.RepresentativeStats, len(s.u.reps))
	for ri, r := range s.u.reps {
		out[ri] = models.RepresentativeStats{
			RepresentativeID: r.ID,
			Name:             r.Name,
			Customers:        s.counts[ri],
			Revenue:          s.revenue[ri],
		}
	}
	return out
}
