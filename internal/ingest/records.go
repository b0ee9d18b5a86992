// Package ingest reads customer and representative tables from workbooks
// and semicolon separated files, and writes assignments back out.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"territory-planner/internal/models"
)

// Skip records a row that was left out of the dataset
type Skip struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarizes an import
type Report struct {
	CustomerRows       int    `json:"customer_rows"`
	Customers          int    `json:"customers"`
	RepresentativeRows int    `json:"representative_rows"`
	Representatives    int    `json:"representatives"`
	Skipped            []Skip `json:"skipped"`
}

type customerRow struct {
	row      int
	customer models.Customer
	repName  string
	repID    int64
	hasRepID bool
}

// Parse turns raw tables (header row first) into a dataset. Rows missing
// coordinates, and customers whose representative cannot be resolved, are
// skipped and listed in the report. Duplicate keys, unparseable IDs and
// negative revenue fail the whole import with a *models.DataError.
func Parse(customerTable, repTable [][]string) (*models.Dataset, *Report, error) {
	report := &Report{}

	reps, err := parseRepresentatives(repTable, report)
	if err != nil {
		return nil, report, err
	}

	rows, err := parseCustomers(customerTable, report)
	if err != nil {
		return nil, report, err
	}

	ds, err := merge(rows, reps, report)
	if err != nil {
		return nil, report, err
	}
	return ds, report, nil
}

func parseRepresentatives(table [][]string, report *Report) ([]models.Representative, error) {
	if len(table) == 0 {
		return nil, &models.DataError{Reason: "representative table is empty"}
	}
	h := indexHeader(table[0])
	for _, c := range []column{colRepName, colHomeLatitude, colHomeLongitude} {
		if !h.has(c) {
			return nil, &models.DataError{Field: string(c), Reason: "missing column in representative table"}
		}
	}

	var reps []models.Representative
	names := make(map[string]int)
	ids := make(map[int64]int)

	for i, row := range table[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		report.RepresentativeRows++

		name := h.get(row, colRepName)
		if name == "" {
			report.Skipped = append(report.Skipped, Skip{Table: "representatives", Row: rowNum, Reason: "missing name"})
			continue
		}
		if first, dup := names[name]; dup {
			return nil, &models.DataError{Row: rowNum, Field: string(colRepName), Value: name,
				Reason: fmt.Sprintf("duplicate representative, first seen in row %d", first)}
		}

		lat, errLat := parseNumber(h.get(row, colHomeLatitude))
		lng, errLng := parseNumber(h.get(row, colHomeLongitude))
		if errLat != nil || errLng != nil || !inRange(lat, lng) {
			report.Skipped = append(report.Skipped, Skip{Table: "representatives", Row: rowNum, Reason: "missing home coordinates"})
			continue
		}

		id := int64(len(reps) + 1)
		if raw := h.get(row, colRepID); raw != "" {
			parsed, err := parseID(raw)
			if err != nil {
				return nil, &models.DataError{Row: rowNum, Field: string(colRepID), Value: raw, Reason: "not an integer"}
			}
			id = parsed
		}
		if first, dup := ids[id]; dup {
			return nil, &models.DataError{Row: rowNum, Field: string(colRepID), Value: strconv.FormatInt(id, 10),
				Reason: fmt.Sprintf("duplicate representative id, first seen in row %d", first)}
		}

		names[name] = rowNum
		ids[id] = rowNum
		reps = append(reps, models.Representative{ID: id, Name: name, HomeLat: lat, HomeLng: lng})
	}

	report.Representatives = len(reps)
	return reps, nil
}

func parseCustomers(table [][]string, report *Report) ([]customerRow, error) {
	if len(table) == 0 {
		return nil, &models.DataError{Reason: "customer table is empty"}
	}
	h := indexHeader(table[0])
	for _, c := range []column{colCustomerID, colLatitude, colLongitude} {
		if !h.has(c) {
			return nil, &models.DataError{Field: string(c), Reason: "missing column in customer table"}
		}
	}
	if !h.has(colRepName) && !h.has(colRepID) {
		return nil, &models.DataError{Field: string(colRepName), Reason: "customer table has no representative column"}
	}

	var rows []customerRow
	seen := make(map[int64]int)

	for i, row := range table[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		report.CustomerRows++

		rawID := h.get(row, colCustomerID)
		id, err := parseID(rawID)
		if err != nil {
			return nil, &models.DataError{Row: rowNum, Field: string(colCustomerID), Value: rawID, Reason: "not an integer"}
		}
		if first, dup := seen[id]; dup {
			return nil, &models.DataError{Row: rowNum, Field: string(colCustomerID), Value: rawID,
				Reason: fmt.Sprintf("duplicate customer, first seen in row %d", first)}
		}
		seen[id] = rowNum

		lat, errLat := parseNumber(h.get(row, colLatitude))
		lng, errLng := parseNumber(h.get(row, colLongitude))
		if errLat != nil || errLng != nil {
			report.Skipped = append(report.Skipped, Skip{Table: "customers", Row: rowNum, Reason: "missing coordinates"})
			continue
		}
		if !inRange(lat, lng) {
			report.Skipped = append(report.Skipped, Skip{Table: "customers", Row: rowNum, Reason: "coordinates out of range"})
			continue
		}

		// unreadable revenue counts as zero
		revenue, err := parseNumber(h.get(row, colRevenue))
		if err != nil {
			revenue = 0
		}
		if revenue < 0 {
			return nil, &models.DataError{Row: rowNum, Field: string(colRevenue), Value: h.get(row, colRevenue), Reason: "revenue must not be negative"}
		}

		cr := customerRow{
			row: rowNum,
			customer: models.Customer{
				ID:        id,
				Name:      h.get(row, colCustomerName),
				Publisher: h.get(row, colPublisher),
				Lat:       lat,
				Lng:       lng,
				Revenue:   revenue,
			},
			repName: h.get(row, colRepName),
		}
		if raw := h.get(row, colRepID); raw != "" {
			if repID, err := parseID(raw); err == nil {
				cr.repID = repID
				cr.hasRepID = true
			}
		}
		rows = append(rows, cr)
	}

	return rows, nil
}

// merge resolves each customer's representative by ID when present, else by
// name. Unresolved customers are skipped.
func merge(rows []customerRow, reps []models.Representative, report *Report) (*models.Dataset, error) {
	byName := make(map[string]int64, len(reps))
	byID := make(map[int64]bool, len(reps))
	for _, r := range reps {
		byName[r.Name] = r.ID
		byID[r.ID] = true
	}

	ds := &models.Dataset{
		Representatives: reps,
		LoadedAt:        time.Now(),
	}

	for _, cr := range rows {
		c := cr.customer
		switch {
		case cr.hasRepID && byID[cr.repID]:
			c.RepresentativeID = cr.repID
		case cr.repName != "":
			id, ok := byName[cr.repName]
			if !ok {
				report.Skipped = append(report.Skipped, Skip{Table: "customers", Row: cr.row,
					Reason: fmt.Sprintf("unknown representative %q", cr.repName)})
				continue
			}
			c.RepresentativeID = id
		default:
			report.Skipped = append(report.Skipped, Skip{Table: "customers", Row: cr.row, Reason: "no representative"})
			continue
		}
		ds.Customers = append(ds.Customers, c)
	}

	report.Customers = len(ds.Customers)
	return ds, nil
}

func inRange(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseNumber accepts "1234.5", "1234,5" and "1.234,5"
func parseNumber(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	if strings.Contains(val, ",") {
		if strings.Contains(val, ".") {
			val = strings.ReplaceAll(val, ".", "")
		}
		val = strings.ReplaceAll(val, ",", ".")
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// parseID accepts integers and integral floats such as "1042.0"
func parseID(val string) (int64, error) {
	val = strings.TrimSpace(val)
	if id, err := strconv.ParseInt(val, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("not an integer: %q", val)
	}
	return int64(f), nil
}
