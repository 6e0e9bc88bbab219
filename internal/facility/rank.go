package facility

import (
	"sort"

	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
)

// DefaultLimit is the number of facilities kept after ranking.
const DefaultLimit = 10

// Rank returns the limit facilities closest to anchor, nearest first, with
// DistanceKm populated. Equal distances keep their input order. The input
// slice is not modified.
func Rank(facilities []models.Facility, anchor models.Coordinates, limit int) []models.Facility {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]models.Facility, 0, len(facilities))
	for _, f := range facilities {
		f.DistanceKm = location.HaversineKm(anchor, f.Coordinates)
		results = append(results, f)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	if limit < len(results) {
		results = results[:limit]
	}

	return results
}
