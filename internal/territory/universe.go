// Package territory implements nearest-representative seeding and the
// iterative reassignment optimizer that rebalances sales territories.
package territory

import (
	"fmt"
	"math"
	"strconv"

	"territory-planner/internal/distance"
	"territory-planner/internal/models"
)

// Universe is the fixed set of customers and representatives for one run,
// together with the distance matrix and the averages the balance bands are
// measured against.
type Universe struct {
	customers []models.Customer
	reps      []models.Representative
	matrix    *distance.Matrix

	customerIndex map[int64]int
	repIndex      map[int64]int

	totalRevenue float64
	avgCustomers float64
	avgRevenue   float64
}

// NewUniverse validates the inputs and computes the distance matrix. It
// returns a *models.DataError for duplicate keys, invalid coordinates,
// negative revenue, or customers without any representative.
func NewUniverse(customers []models.Customer, reps []models.Representative) (*Universe, error) {
	u := &Universe{
		customers:     make([]models.Customer, len(customers)),
		reps:          make([]models.Representative, len(reps)),
		customerIndex: make(map[int64]int, len(customers)),
		repIndex:      make(map[int64]int, len(reps)),
	}
	copy(u.customers, customers)
	copy(u.reps, reps)

	for i, r := range u.reps {
		if _, dup := u.repIndex[r.ID]; dup {
			return nil, &models.DataError{Field: "representative_id", Value: strconv.FormatInt(r.ID, 10), Reason: "duplicate representative"}
		}
		if !validCoordinate(r.HomeLat, r.HomeLng) {
			return nil, &models.DataError{Field: "home_coordinates", Value: r.Name, Reason: "missing or invalid coordinates"}
		}
		u.repIndex[r.ID] = i
	}

	for i, c := range u.customers {
		if _, dup := u.customerIndex[c.ID]; dup {
			return nil, &models.DataError{Field: "customer_id", Value: strconv.FormatInt(c.ID, 10), Reason: "duplicate customer"}
		}
		if !validCoordinate(c.Lat, c.Lng) {
			return nil, &models.DataError{Field: "coordinates", Value: strconv.FormatInt(c.ID, 10), Reason: "missing or invalid coordinates"}
		}
		if c.Revenue < 0 || math.IsNaN(c.Revenue) || math.IsInf(c.Revenue, 0) {
			return nil, &models.DataError{Field: "revenue", Value: strconv.FormatInt(c.ID, 10), Reason: "revenue must be a non-negative number"}
		}
		u.customerIndex[c.ID] = i
		u.totalRevenue += c.Revenue
	}

	if len(u.customers) > 0 && len(u.reps) == 0 {
		return nil, &models.DataError{Reason: "customers present but no representatives"}
	}

	custCoords := make([]models.Coordinates, len(u.customers))
	for i := range u.customers {
		custCoords[i] = u.customers[i].GetCoords()
	}
	repCoords := make([]models.Coordinates, len(u.reps))
	for i := range u.reps {
		repCoords[i] = u.reps[i].GetCoords()
	}
	u.matrix = distance.NewMatrix(custCoords, repCoords)

	if len(u.reps) > 0 {
		u.avgCustomers = float64(len(u.customers)) / float64(len(u.reps))
		u.avgRevenue = u.totalRevenue / float64(len(u.reps))
	}

	return u, nil
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Customers returns the number of customers
func (u *Universe) Customers() int { return len(u.customers) }

// Representatives returns the number of representatives
func (u *Universe) Representatives() int { return len(u.reps) }

// Customer returns the customer at index i
func (u *Universe) Customer(i int) models.Customer { return u.customers[i] }

// Representative returns the representative at index i
func (u *Universe) Representative(i int) models.Representative { return u.reps[i] }

// Matrix returns the distance matrix
func (u *Universe) Matrix() *distance.Matrix { return u.matrix }

// AverageCustomers is total customers divided by representatives
func (u *Universe) AverageCustomers() float64 { return u.avgCustomers }

// AverageRevenue is total revenue divided by representatives
func (u *Universe) AverageRevenue() float64 { return u.avgRevenue }

// CustomerIndex returns the index of the customer with the given ID
func (u *Universe) CustomerIndex(id int64) (int, bool) {
	i, ok := u.customerIndex[id]
	return i, ok
}

// RepresentativeIndex returns the index of the representative with the given ID
func (u *Universe) RepresentativeIndex(id int64) (int, bool) {
	i, ok := u.repIndex[id]
	return i, ok
}

// StateFrom builds a working state from an existing assignment. The
// assignment must cover exactly the universe's customers and reference only
// known representatives.
func (u *Universe) StateFrom(a models.Assignment) (*State, error) {
	if len(a) != len(u.customers) {
		return nil, &models.DataError{
			Field:  "assignment",
			Value:  fmt.Sprintf("%d of %d customers", len(a), len(u.customers)),
			Reason: "assignment does not cover the customer set",
		}
	}

	s := newState(u)
	for ci, c := range u.customers {
		repID, ok := a[c.ID]
		if !ok {
			return nil, &models.DataError{Field: "customer_id", Value: strconv.FormatInt(c.ID, 10), Reason: "customer missing from assignment"}
		}
		ri, ok := u.repIndex[repID]
		if !ok {
			return nil, &models.DataError{Field: "representative_id", Value: strconv.FormatInt(repID, 10), Reason: "unknown representative"}
		}
		s.place(ci, ri)
	}
	return s, nil
}
