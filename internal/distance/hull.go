package distance

import (
	"sort"

	"territory-planner/internal/models"
)

// ConvexHull returns the hull of points in counter-clockwise order using the
// monotone chain algorithm. Fewer than three points, or points that are all
// collinear, yield nil because no area can be drawn.
func ConvexHull(points []models.Coordinates) []models.Coordinates {
	if len(points) < 3 {
		return nil
	}

	pts := make([]models.Coordinates, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lng != pts[j].Lng {
			return pts[i].Lng < pts[j].Lng
		}
		return pts[i].Lat < pts[j].Lat
	})

	hull := make([]models.Coordinates, 0, 2*len(pts))

	// lower
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// upper
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		return nil
	}
	return hull
}

// cross is the z component of (a→b) × (a→c) with Lng as x and Lat as y
func cross(a, b, c models.Coordinates) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}
