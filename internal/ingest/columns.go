package ingest

import (
	"strings"
)

type column string

const (
	colCustomerID    column = "customer_id"
	colCustomerName  column = "name"
	colPublisher     column = "publisher"
	colLatitude      column = "latitude"
	colLongitude     column = "longitude"
	colRevenue       column = "revenue"
	colRepName       column = "representative_name"
	colRepID         column = "representative_id"
	colHomeLatitude  column = "home_latitude"
	colHomeLongitude column = "home_longitude"
)

// header aliases, compared lowercase; the German names come from the
// customer master and representative master exports
var aliases = map[column][]string{
	colCustomerID:    {"kunden_nr", "kundennr", "customer_id", "id"},
	colCustomerName:  {"kunde_id_name", "kunde", "name", "customer_name"},
	colPublisher:     {"verlag", "publisher"},
	colLatitude:      {"latitude", "lat", "breitengrad"},
	colLongitude:     {"longitude", "lon", "lng", "laengengrad"},
	colRevenue:       {"umsatz_2024", "umsatz", "revenue"},
	colRepName:       {"vertreter_name", "vertreter", "representative", "representative_name"},
	colRepID:         {"vertreter_id", "vertreter_nr", "representative_id"},
	colHomeLatitude:  {"wohnort_lat", "home_lat", "home_latitude"},
	colHomeLongitude: {"wohnort_lon", "home_lon", "home_lng", "home_longitude"},
}

// headerIndex maps known columns to their position in a header row
type headerIndex map[column]int

func indexHeader(header []string) headerIndex {
	lookup := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := lookup[key]; !seen {
			lookup[key] = i
		}
	}

	idx := make(headerIndex)
	for col, names := range aliases {
		for _, name := range names {
			if i, ok := lookup[name]; ok {
				idx[col] = i
				break
			}
		}
	}
	return idx
}

func (h headerIndex) has(c column) bool {
	_, ok := h[c]
	return ok
}

// get returns the trimmed cell for c, or "" if the column or cell is absent
func (h headerIndex) get(row []string, c column) string {
	i, ok := h[c]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
