package workspace

import (
	"sort"
	"strconv"
	"strings"

	"territory-planner/internal/distance"
	"territory-planner/internal/models"
)

// Filter narrows the dashboard views. An empty Publisher means all
// publishers; empty RepresentativeIDs means every representative available
// for the publisher. Search matches a customer id exactly or a name substring,
// case-insensitive.
type Filter struct {
	Publisher         string
	RepresentativeIDs []int64
	Search            string
}

// availableLocked returns the ids of representatives that currently hold at
// least one customer of publisher, or all representatives when publisher is
// empty.
func (w *Workspace) availableLocked(publisher string) map[int64]bool {
	out := map[int64]bool{}
	if publisher == "" {
		for _, r := range w.dataset.Representatives {
			out[r.ID] = true
		}
		return out
	}
	for ci := 0; ci < w.universe.Customers(); ci++ {
		c := w.universe.Customer(ci)
		if c.Publisher == publisher {
			out[w.universe.Representative(w.state.Owner(ci)).ID] = true
		}
	}
	return out
}

func (w *Workspace) selectedLocked(f Filter) map[int64]bool {
	available := w.availableLocked(f.Publisher)
	if len(f.RepresentativeIDs) == 0 {
		return available
	}
	selected := map[int64]bool{}
	for _, id := range f.RepresentativeIDs {
		if available[id] {
			selected[id] = true
		}
	}
	return selected
}

// AvailableRepresentatives returns the representatives selectable under
// publisher, sorted by name.
func (w *Workspace) AvailableRepresentatives(publisher string) ([]models.Representative, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}
	available := w.availableLocked(publisher)
	var out []models.Representative
	for _, r := range w.dataset.Representatives {
		if available[r.ID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchesSearch(c models.Customer, search string) bool {
	if search == "" {
		return true
	}
	if id, err := strconv.ParseInt(search, 10, 64); err == nil && id == c.ID {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), strings.ToLower(search))
}

// filteredLocked returns universe indices of the customers passing f
func (w *Workspace) filteredLocked(f Filter) []int {
	selected := w.selectedLocked(f)
	search := strings.TrimSpace(f.Search)
	var out []int
	for ci := 0; ci < w.universe.Customers(); ci++ {
		c := w.universe.Customer(ci)
		if f.Publisher != "" && c.Publisher != f.Publisher {
			continue
		}
		if !selected[w.universe.Representative(w.state.Owner(ci)).ID] {
			continue
		}
		if !matchesSearch(c, search) {
			continue
		}
		out = append(out, ci)
	}
	return out
}

// Customers returns the customers passing f with their current
// representative, sorted by id.
func (w *Workspace) Customers(f Filter) ([]models.Customer, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}
	idx := w.filteredLocked(f)
	out := make([]models.Customer, 0, len(idx))
	for _, ci := range idx {
		c := w.universe.Customer(ci)
		c.RepresentativeID = w.universe.Representative(w.state.Owner(ci)).ID
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Summary returns the KPIs for f: selected representatives, matching
// customers and their revenue.
func (w *Workspace) Summary(f Filter) (models.Summary, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return models.Summary{}, ErrNoDataset
	}
	sum := models.Summary{Representatives: len(w.selectedLocked(f))}
	for _, ci := range w.filteredLocked(f) {
		sum.Customers++
		sum.Revenue += w.universe.Customer(ci).Revenue
	}
	return sum, nil
}

// Stats returns per-representative aggregates of the current assignment
// sorted by name, with palette colour and band membership.
func (w *Workspace) Stats() ([]models.RepresentativeStats, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == nil {
		return nil, ErrNoDataset
	}
	stats := w.state.Stats()
	for ri := range stats {
		stats[ri].Color = w.colors[stats[ri].RepresentativeID]
		stats[ri].InBand = w.checker.IsBalanced(w.state, ri)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

// Territories returns one outline per representative with customers in f.
// Hull is empty when the customers span fewer than three distinct
// non-collinear points.
func (w *Workspace) Territories(f Filter) ([]models.Territory, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.dataset == nil {
		return nil, ErrNoDataset
	}

	points := map[int][]models.Coordinates{}
	for _, ci := range w.filteredLocked(f) {
		c := w.universe.Customer(ci)
		ri := w.state.Owner(ci)
		points[ri] = append(points[ri], c.GetCoords())
	}

	out := make([]models.Territory, 0, len(points))
	for ri, pts := range points {
		r := w.universe.Representative(ri)
		hull := distance.ConvexHull(pts)
		if hull == nil {
			hull = []models.Coordinates{}
		}
		out = append(out, models.Territory{
			RepresentativeID: r.ID,
			Name:             r.Name,
			Color:            w.colors[r.ID],
			Home:             r.GetCoords(),
			Customers:        len(pts),
			Hull:             hull,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Colors returns the palette colour of every representative
func (w *Workspace) Colors() map[int64]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[int64]string, len(w.colors))
	for id, c := range w.colors {
		out[id] = c
	}
	return out
}
