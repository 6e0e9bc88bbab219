package facility

import (
	"fmt"
	"strings"

	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
)

const (
	// DefaultInclusionRadiusKm bounds how far an override may be from the anchor.
	DefaultInclusionRadiusKm = 5.0

	// ProximityMatchMeters is the distance under which two same-named
	// facilities are treated as one by ProximityNameMatch.
	ProximityMatchMeters = 50.0
)

// DuplicateFunc reports whether candidate is already represented by existing.
type DuplicateFunc func(existing, candidate models.Facility) bool

// MergeOptions controls override inclusion.
type MergeOptions struct {
	InclusionRadiusKm float64
	IsDuplicate       DuplicateFunc
}

func (o MergeOptions) withDefaults() MergeOptions {
	if o.InclusionRadiusKm <= 0 {
		o.InclusionRadiusKm = DefaultInclusionRadiusKm
	}
	if o.IsDuplicate == nil {
		o.IsDuplicate = FirstTokenMatch
	}
	return o
}

// Merge appends in-range, non-duplicate overrides to the normalized list.
// An override is checked against the normalized facilities and the overrides
// accepted before it. The normalized facilities are returned first and in
// their original order.
func Merge(normalized, overrides []models.Facility, anchor models.Coordinates, opts MergeOptions) []models.Facility {
	opts = opts.withDefaults()

	merged := make([]models.Facility, 0, len(normalized)+len(overrides))
	merged = append(merged, normalized...)

	for _, o := range overrides {
		if location.HaversineKm(anchor, o.Coordinates) > opts.InclusionRadiusKm {
			continue
		}
		if containsDuplicate(merged, o, opts.IsDuplicate) {
			continue
		}
		o.IsPriority = true
		merged = append(merged, o)
	}

	return merged
}

func containsDuplicate(existing []models.Facility, candidate models.Facility, isDuplicate DuplicateFunc) bool {
	for _, f := range existing {
		if isDuplicate(f, candidate) {
			return true
		}
	}
	return false
}

// FirstTokenMatch treats candidate as present when its first name token is a
// case-insensitive substring of existing's name.
//
// This is a loose heuristic. "City Medical College" is suppressed by
// "City Hospital", and "Government Hospital" is not suppressed by
// "Govt. Hospital".
func FirstTokenMatch(existing, candidate models.Facility) bool {
	fields := strings.Fields(candidate.Name)
	if len(fields) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(existing.Name), strings.ToLower(fields[0]))
}

// ExactNameMatch compares whitespace-normalized names case-insensitively.
func ExactNameMatch(existing, candidate models.Facility) bool {
	a, b := normalizeName(existing.Name), normalizeName(candidate.Name)
	return a != "" && a == b
}

// ProximityNameMatch requires equal names and locations within ProximityMatchMeters.
func ProximityNameMatch(existing, candidate models.Facility) bool {
	if !ExactNameMatch(existing, candidate) {
		return false
	}
	return location.KmToMeters(location.HaversineKm(existing.Coordinates, candidate.Coordinates)) <= ProximityMatchMeters
}

// DuplicateStrategy resolves a configured strategy name to its predicate.
func DuplicateStrategy(name string) (DuplicateFunc, error) {
	switch name {
	case "", "first-token":
		return FirstTokenMatch, nil
	case "exact":
		return ExactNameMatch, nil
	case "proximity":
		return ProximityNameMatch, nil
	default:
		return nil, fmt.Errorf("unknown dedup strategy %q", name)
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
