package testutil

import (
	"time"

	"territory-planner/internal/models"
)

// SampleRepresentatives returns three representatives living in Hamburg,
// Munich and Cologne.
func SampleRepresentatives() []models.Representative {
	return []models.Representative{
		{ID: 1, Name: "Schulz", HomeLat: 53.55, HomeLng: 10.00},
		{ID: 2, Name: "Huber", HomeLat: 48.14, HomeLng: 11.58},
		{ID: 3, Name: "Wagner", HomeLat: 50.94, HomeLng: 6.96},
	}
}

// SampleCustomers returns twelve customers, four around each representative's
// home. The recorded assignment gives Schulz six of them.
func SampleCustomers() []models.Customer {
	return []models.Customer{
		{ID: 1001, Name: "Buchhandlung Meier", Publisher: "Nordverlag", Lat: 53.60, Lng: 9.95, Revenue: 1200, RepresentativeID: 1},
		{ID: 1002, Name: "Papeterie Klein", Publisher: "Nordverlag", Lat: 53.50, Lng: 10.10, Revenue: 800, RepresentativeID: 1},
		{ID: 1003, Name: "Lesecafe Nord", Publisher: "Suedverlag", Lat: 53.40, Lng: 9.90, Revenue: 450, RepresentativeID: 1},
		{ID: 1004, Name: "Kiosk am Hafen", Publisher: "Nordverlag", Lat: 53.70, Lng: 10.20, Revenue: 300, RepresentativeID: 1},
		{ID: 2001, Name: "Lesezeichen GmbH", Publisher: "Suedverlag", Lat: 48.10, Lng: 11.50, Revenue: 2500, RepresentativeID: 2},
		{ID: 2002, Name: "Buchladen Isar", Publisher: "Suedverlag", Lat: 48.20, Lng: 11.70, Revenue: 700, RepresentativeID: 2},
		{ID: 2003, Name: "Schreibwaren Berg", Publisher: "Nordverlag", Lat: 48.00, Lng: 11.60, Revenue: 650, RepresentativeID: 2},
		{ID: 2004, Name: "Zeitschriften Ost", Publisher: "Suedverlag", Lat: 48.30, Lng: 11.40, Revenue: 400, RepresentativeID: 1},
		{ID: 3001, Name: "Domlesen", Publisher: "Westverlag", Lat: 50.90, Lng: 6.90, Revenue: 900, RepresentativeID: 3},
		{ID: 3002, Name: "Rheinbuch", Publisher: "Westverlag", Lat: 51.00, Lng: 7.00, Revenue: 1100, RepresentativeID: 3},
		{ID: 3003, Name: "Papier und Co", Publisher: "Nordverlag", Lat: 50.80, Lng: 7.10, Revenue: 350, RepresentativeID: 3},
		{ID: 3004, Name: "Buchinsel", Publisher: "Westverlag", Lat: 51.10, Lng: 6.80, Revenue: 500, RepresentativeID: 1},
	}
}

// SampleDataset bundles SampleCustomers and SampleRepresentatives
func SampleDataset() *models.Dataset {
	return &models.Dataset{
		Customers:       SampleCustomers(),
		Representatives: SampleRepresentatives(),
		LoadedAt:        time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// SampleScenario returns a scenario over the sample customers in which every
// customer belongs to its nearest representative.
func SampleScenario(name string) *models.Scenario {
	w := models.Weights{Workload: 0.5, Potential: 0.5}
	a := models.Assignment{}
	for _, c := range SampleCustomers() {
		a[c.ID] = c.ID / 1000
	}
	return &models.Scenario{
		Name:       name,
		CreatedAt:  time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
		Weights:    &w,
		Cost:       0.42,
		Assignment: a,
	}
}
