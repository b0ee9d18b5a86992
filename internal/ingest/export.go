package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"territory-planner/internal/models"
)

const (
	AssignmentSheet      = "Assignment"
	RepresentativesSheet = "Representatives"
)

type exportRow struct {
	customer models.Customer
	rep      models.Representative
}

func exportRows(ds *models.Dataset, a models.Assignment) ([]exportRow, error) {
	reps := make(map[int64]models.Representative, len(ds.Representatives))
	for _, r := range ds.Representatives {
		reps[r.ID] = r
	}

	rows := make([]exportRow, 0, len(ds.Customers))
	for _, c := range ds.Customers {
		repID, ok := a[c.ID]
		if !ok {
			return nil, fmt.Errorf("customer %d has no representative in the assignment", c.ID)
		}
		r, ok := reps[repID]
		if !ok {
			return nil, fmt.Errorf("customer %d assigned to unknown representative %d", c.ID, repID)
		}
		rows = append(rows, exportRow{customer: c, rep: r})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].rep.Name != rows[j].rep.Name {
			return rows[i].rep.Name < rows[j].rep.Name
		}
		return rows[i].customer.ID < rows[j].customer.ID
	})
	return rows, nil
}

var assignmentHeader = []interface{}{
	"Kunden_Nr", "Kunde_ID_Name", "Verlag", "Latitude", "Longitude", "Umsatz_2024",
	"Vertreter_ID", "Vertreter_Name", "Vorher_Vertreter_ID",
}

// WriteAssignmentXLSX writes an assignment sheet and a per-representative
// summary sheet. The previous representative column holds the one recorded
// on the dataset.
func WriteAssignmentXLSX(w io.Writer, ds *models.Dataset, a models.Assignment) error {
	rows, err := exportRows(ds, a)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(AssignmentSheet)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(AssignmentSheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", assignmentHeader); err != nil {
		return err
	}

	type totals struct {
		customers int
		revenue   float64
	}
	perRep := make(map[int64]*totals)

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		c := r.customer
		if err := sw.SetRow(cell, []interface{}{
			c.ID, c.Name, c.Publisher, c.Lat, c.Lng, c.Revenue,
			r.rep.ID, r.rep.Name, c.RepresentativeID,
		}); err != nil {
			return err
		}
		t := perRep[r.rep.ID]
		if t == nil {
			t = &totals{}
			perRep[r.rep.ID] = t
		}
		t.customers++
		t.revenue += c.Revenue
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if _, err := f.NewSheet(RepresentativesSheet); err != nil {
		return err
	}
	rsw, err := f.NewStreamWriter(RepresentativesSheet)
	if err != nil {
		return err
	}
	if err := rsw.SetRow("A1", []interface{}{"Vertreter_ID", "Vertreter_Name", "Wohnort_Lat", "Wohnort_Lon", "Kunden", "Umsatz"}); err != nil {
		return err
	}
	reps := make([]models.Representative, len(ds.Representatives))
	copy(reps, ds.Representatives)
	sort.Slice(reps, func(i, j int) bool { return reps[i].Name < reps[j].Name })
	for i, r := range reps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		t := perRep[r.ID]
		if t == nil {
			t = &totals{}
		}
		if err := rsw.SetRow(cell, []interface{}{r.ID, r.Name, r.HomeLat, r.HomeLng, t.customers, t.revenue}); err != nil {
			return err
		}
	}
	if err := rsw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.Write(w)
}

// WriteAssignmentCSV writes the assignment as a semicolon separated table
func WriteAssignmentCSV(w io.Writer, ds *models.Dataset, a models.Assignment) error {
	rows, err := exportRows(ds, a)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	header := make([]string, len(assignmentHeader))
	for i, h := range assignmentHeader {
		header[i] = h.(string)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		c := r.customer
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Publisher,
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.Lng, 'f', -1, 64),
			strconv.FormatFloat(c.Revenue, 'f', -1, 64),
			strconv.FormatInt(r.rep.ID, 10),
			r.rep.Name,
			strconv.FormatInt(c.RepresentativeID, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScenarioYAML writes a scenario document
func WriteScenarioYAML(w io.Writer, sc *models.Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	return enc.Close()
}

// ReadScenarioYAML reads a scenario document written by WriteScenarioYAML
func ReadScenarioYAML(r io.Reader) (*models.Scenario, error) {
	var sc models.Scenario
	if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if sc.Name == "" {
		return nil, &models.DataError{Field: "name", Reason: "scenario has no name"}
	}
	return &sc, nil
}
