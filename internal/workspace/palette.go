package workspace

import (
	"sort"

	"territory-planner/internal/models"
)

// colors is the Tableau 10 set followed by named web colours; it cycles when
// there are more representatives than entries.
var colors = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	"#f0f8ff", "#faebd7", "#00ffff", "#7fffd4", "#f0ffff",
	"#f5f5dc", "#ffe4c4", "#000000", "#ffebcd", "#0000ff",
	"#8a2be2", "#a52a2a", "#deb887", "#5f9ea0", "#7fff00",
	"#d2691e", "#ff7f50", "#6495ed", "#dc143c", "#00008b",
}

// palette maps representatives to colours by ascending name, so the same
// roster always yields the same colours.
func palette(reps []models.Representative) map[int64]string {
	sorted := make([]models.Representative, len(reps))
	copy(sorted, reps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make(map[int64]string, len(sorted))
	for i, r := range sorted {
		out[r.ID] = colors[i%len(colors)]
	}
	return out
}
