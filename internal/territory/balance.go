package territory

import "math"

// Default balance bands: a representative may deviate from the average by at
// most 20% in customer count and 25% in revenue.
const (
	DefaultCountTolerance   = 0.20
	DefaultRevenueTolerance = 0.25
)

// RejectReason explains why a tentative move was rolled back
type RejectReason string

const (
	RejectCountBand   RejectReason = "count_band"
	RejectRevenueBand RejectReason = "revenue_band"
	RejectNoGain      RejectReason = "no_gain"
)

// BalanceChecker tests representatives against fixed bands around the
// universe averages. The averages are taken once from the full universe and
// do not move during a run.
type BalanceChecker struct {
	avgCustomers     float64
	avgRevenue       float64
	countTolerance   float64
	revenueTolerance float64
}

// NewBalanceChecker uses the default bands
func NewBalanceChecker(u *Universe) *BalanceChecker {
	return &BalanceChecker{
		avgCustomers:     u.avgCustomers,
		avgRevenue:       u.avgRevenue,
		countTolerance:   DefaultCountTolerance,
		revenueTolerance: DefaultRevenueTolerance,
	}
}

// Check reports whether every touched representative is within both bands.
// Representatives that are not touched are never inspected.
func (b *BalanceChecker) Check(s *State, touched ...int) (bool, RejectReason) {
	for _, ri := range touched {
		if !withinBand(float64(s.counts[ri]), b.avgCustomers, b.countTolerance) {
			return false, RejectCountBand
		}
		if !withinBand(s.revenue[ri], b.avgRevenue, b.revenueTolerance) {
			return false, RejectRevenueBand
		}
	}
	return true, ""
}

// IsBalanced is Check without the reason
func (b *BalanceChecker) IsBalanced(s *State, touched ...int) bool {
	ok, _ := b.Check(s, touched...)
	return ok
}

// OutOfBand lists every representative index currently outside a band
func (b *BalanceChecker) OutOfBand(s *State) []int {
	var out []int
	for ri := range s.counts {
		if !b.IsBalanced(s, ri) {
			out = append(out, ri)
		}
	}
	return out
}

// withinBand treats a zero average as always balanced
func withinBand(value, avg, tolerance float64) bool {
	if avg == 0 {
		return true
	}
	return math.Abs(value-avg)/avg <= tolerance
}
