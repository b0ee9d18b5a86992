package models

import (
	"math"
	"sort"
	"time"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Customer is a geocoded account that belongs to exactly one representative
type Customer struct {
	ID               int64   `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	Publisher        string  `json:"publisher" yaml:"publisher"`
	Lat              float64 `json:"lat" yaml:"lat"`
	Lng              float64 `json:"lng" yaml:"lng"`
	Revenue          float64 `json:"revenue" yaml:"revenue"`
	RepresentativeID int64   `json:"representative_id" yaml:"representative_id"`
}

// GetCoords returns the coordinates of the customer
func (c *Customer) GetCoords() Coordinates {
	return Coordinates{Lat: c.Lat, Lng: c.Lng}
}

// Representative is a field sales person with a home base
type Representative struct {
	ID      int64   `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	HomeLat float64 `json:"home_lat" yaml:"home_lat"`
	HomeLng float64 `json:"home_lng" yaml:"home_lng"`
}

// GetCoords returns the home coordinates of the representative
func (r *Representative) GetCoords() Coordinates {
	return Coordinates{Lat: r.HomeLat, Lng: r.HomeLng}
}

// Dataset is one loaded universe of customers and representatives
type Dataset struct {
	Customers       []Customer       `json:"customers"`
	Representatives []Representative `json:"representatives"`
	LoadedAt        time.Time        `json:"loaded_at"`
}

// Clone returns a copy that shares no slices with d
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Customers:       make([]Customer, len(d.Customers)),
		Representatives: make([]Representative, len(d.Representatives)),
		LoadedAt:        d.LoadedAt,
	}
	copy(out.Customers, d.Customers)
	copy(out.Representatives, d.Representatives)
	return out
}

// Assignment maps customer ID to representative ID
type Assignment map[int64]int64

// Clone returns an independent copy of the assignment
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// CustomerIDs returns the assigned customer IDs in ascending order
func (a Assignment) CustomerIDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AssignmentOf builds an assignment from the representative recorded on each customer
func AssignmentOf(customers []Customer) Assignment {
	a := make(Assignment, len(customers))
	for _, c := range customers {
		a[c.ID] = c.RepresentativeID
	}
	return a
}

// Weights are the optimizer's objective weights
type Weights struct {
	Workload   float64 `json:"workload" yaml:"workload" mapstructure:"workload"`
	Potential  float64 `json:"potential" yaml:"potential" mapstructure:"potential"`
	Efficiency float64 `json:"efficiency" yaml:"efficiency" mapstructure:"efficiency"`
}

// DefaultWeights splits the objective evenly between workload and potential
func DefaultWeights() Weights {
	return Weights{Workload: 0.5, Potential: 0.5}
}

// Normalize scales the weights to sum to 1. Negative values count as zero.
// All-zero weights normalize to equal thirds.
func (w Weights) Normalize() Weights {
	wl := nonNegative(w.Workload)
	p := nonNegative(w.Potential)
	e := nonNegative(w.Efficiency)
	sum := wl + p + e
	if sum == 0 {
		return Weights{Workload: 1.0 / 3, Potential: 1.0 / 3, Efficiency: 1.0 / 3}
	}
	return Weights{Workload: wl / sum, Potential: p / sum, Efficiency: e / sum}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// Constraints restrict which customers the optimizer may move
type Constraints struct {
	LockTopCustomers bool `json:"lock_top_customers" yaml:"lock_top_customers" mapstructure:"lock_top_customers"`
}

// Scenario is a named snapshot of an assignment
type Scenario struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	Weights    *Weights   `json:"weights,omitempty" yaml:"weights,omitempty"`
	Cost       float64    `json:"cost" yaml:"cost"`
	Assignment Assignment `json:"assignment" yaml:"assignment"`
}

// ScenarioInfo is the listing view of a scenario without its assignment
type ScenarioInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Customers int       `json:"customers"`
	Cost      float64   `json:"cost"`
}

// RepresentativeStats aggregates the territory of one representative
type RepresentativeStats struct {
	RepresentativeID int64   `json:"representative_id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Customers        int     `json:"customers"`
	Revenue          float64 `json:"revenue"`
	InBand           bool    `json:"in_band"`
}

// Summary holds the dashboard KPIs for a selection
type Summary struct {
	Representatives int     `json:"representatives"`
	Customers       int     `json:"customers"`
	Revenue         float64 `json:"revenue"`
}

// ReassignmentRecord is one entry of the manual reassignment history
type ReassignmentRecord struct {
	CustomerID          int64     `json:"customer_id"`
	OldRepresentativeID int64     `json:"old_representative_id"`
	NewRepresentativeID int64     `json:"new_representative_id"`
	At                  time.Time `json:"at"`
}

// Territory is the map-facing outline of one representative's customers
type Territory struct {
	RepresentativeID int64         `json:"representative_id"`
	Name             string        `json:"name"`
	Color            string        `json:"color"`
	Home             Coordinates   `json:"home"`
	Customers        int           `json:"customers"`
	Hull             []Coordinates `json:"hull"`
}
