package territory

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"territory-planner/internal/models"
)

// threeCorners places representatives at (0,0), (10,10) and (0,10) with two
// customers close to each.
func threeCorners() ([]models.Customer, []models.Representative) {
	reps := []models.Representative{
		{ID: 1, Name: "Alpha", HomeLat: 0, HomeLng: 0},
		{ID: 2, Name: "Bravo", HomeLat: 10, HomeLng: 10},
		{ID: 3, Name: "Charlie", HomeLat: 0, HomeLng: 10},
	}
	customers := []models.Customer{
		{ID: 101, Name: "c1", Lat: 1, Lng: 1, Revenue: 100},
		{ID: 102, Name: "c2", Lat: 1, Lng: 0, Revenue: 100},
		{ID: 103, Name: "c3", Lat: 9, Lng: 9, Revenue: 100},
		{ID: 104, Name: "c4", Lat: 9, Lng: 10, Revenue: 100},
		{ID: 105, Name: "c5", Lat: 1, Lng: 9, Revenue: 100},
		{ID: 106, Name: "c6", Lat: 0, Lng: 9, Revenue: 100},
	}
	return customers, reps
}

// lopsidedPair has four customers near the first representative and two near
// the second, all with equal revenue.
func lopsidedPair() ([]models.Customer, []models.Representative) {
	reps := []models.Representative{
		{ID: 1, Name: "West", HomeLat: 0, HomeLng: 0},
		{ID: 2, Name: "East", HomeLat: 0, HomeLng: 10},
	}
	customers := []models.Customer{
		{ID: 1, Lat: 0, Lng: 1, Revenue: 100},
		{ID: 2, Lat: 0, Lng: 2, Revenue: 100},
		{ID: 3, Lat: 0, Lng: 3, Revenue: 100},
		{ID: 4, Lat: 0, Lng: 4, Revenue: 100},
		{ID: 5, Lat: 0, Lng: 8, Revenue: 100},
		{ID: 6, Lat: 0, Lng: 9, Revenue: 100},
	}
	return customers, reps
}

// randomRegion scatters customers over a 10x10 degree box around a handful
// of representatives.
func randomRegion(seed int64, nCustomers, nReps int) ([]models.Customer, []models.Representative) {
	rng := rand.New(rand.NewSource(seed))
	reps := make([]models.Representative, nReps)
	for i := range reps {
		reps[i] = models.Representative{
			ID:      int64(i + 1),
			Name:    string(rune('A' + i)),
			HomeLat: 45 + rng.Float64()*10,
			HomeLng: 5 + rng.Float64()*10,
		}
	}
	customers := make([]models.Customer, nCustomers)
	for i := range customers {
		customers[i] = models.Customer{
			ID:      int64(1000 + i),
			Lat:     45 + rng.Float64()*10,
			Lng:     5 + rng.Float64()*10,
			Revenue: 500 + rng.Float64()*5000,
		}
	}
	return customers, reps
}

// clusteredLine places representatives on the equator ten degrees apart with
// sizes[i] customers around the i-th, alternating east and west of it. Every
// customer's second-nearest representative is an adjacent one.
func clusteredLine(sizes []int, revenue func(k int) float64) ([]models.Customer, []models.Representative) {
	reps := make([]models.Representative, len(sizes))
	var customers []models.Customer
	for i, n := range sizes {
		home := float64(10 * i)
		reps[i] = models.Representative{ID: int64(i + 1), Name: string(rune('A' + i)), HomeLat: 0, HomeLng: home}
		for j := 0; j < n; j++ {
			offset := 0.2 + 0.1*float64(j%5)
			if j%2 == 1 {
				offset = -offset
			}
			k := len(customers)
			customers = append(customers, models.Customer{
				ID:      int64(1000 + k),
				Lat:     0.1 * float64(j%3),
				Lng:     home + offset,
				Revenue: revenue(k),
			})
		}
	}
	return customers, reps
}

func flatRevenue(int) float64 { return 100 }

func mustUniverse(t *testing.T, customers []models.Customer, reps []models.Representative) *Universe {
	t.Helper()
	u, err := NewUniverse(customers, reps)
	require.NoError(t, err)
	return u
}

func countStddev(s *State) float64 {
	values := make([]float64, len(s.counts))
	for i, c := range s.counts {
		values[i] = float64(c)
	}
	return stddev(values)
}

// recordingObserver keeps every move and checks the touched pair after each
// accepted move.
type recordingObserver struct {
	t        *testing.T
	checker  *BalanceChecker
	accepted []Move
	rejected map[RejectReason]int
	onAccept func(s *State, m Move)
}

func newRecordingObserver(t *testing.T, u *Universe) *recordingObserver {
	return &recordingObserver{
		t:        t,
		checker:  NewBalanceChecker(u),
		rejected: make(map[RejectReason]int),
	}
}

func (r *recordingObserver) MoveAccepted(s *State, m Move) {
	r.accepted = append(r.accepted, m)
	from, ok := s.u.RepresentativeIndex(m.From)
	require.True(r.t, ok)
	to, ok := s.u.RepresentativeIndex(m.To)
	require.True(r.t, ok)
	if !r.checker.IsBalanced(s, from, to) {
		r.t.Errorf("iteration %d: touched representatives %d/%d out of band after accepted move", m.Iteration, m.From, m.To)
	}
	if !(m.CostAfter < m.CostBefore) {
		r.t.Errorf("iteration %d: accepted move did not lower cost (%f -> %f)", m.Iteration, m.CostBefore, m.CostAfter)
	}
	if r.onAccept != nil {
		r.onAccept(s, m)
	}
}

func (r *recordingObserver) MoveRejected(m Move, reason RejectReason) {
	r.rejected[reason]++
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
