package facility

import (
	"strconv"
	"strings"

	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
)

// DefaultDirectionsBase is the map site used for directions links.
//
// Links follow the dashboard template <base>/directions?from=lat,lon&to=lat,lon.
// openstreetmap.org opens its directions page for these links but does not
// pre-fill the route from from/to; point DIRECTIONS_URL at a routing
// frontend that reads those parameters when pre-filled routes are needed.
const DefaultDirectionsBase = "https://www.openstreetmap.org"

// DirectionsURL builds a route link from anchor to f.
func DirectionsURL(base string, anchor models.Coordinates, f models.Facility) string {
	if base == "" {
		base = DefaultDirectionsBase
	}

	return strings.TrimRight(base, "/") + "/directions?from=" + latLon(anchor) + "&to=" + latLon(f.Coordinates)
}

// GeoJSON renders the anchor and ranked facilities as map markers.
func GeoJSON(directionsBase string, anchor models.Coordinates, facilities []models.Facility) location.FeatureCollection {
	fc := location.NewFeatureCollection()
	fc.Features = append(fc.Features, location.PointFeature(anchor, map[string]any{
		"kind": "anchor",
	}))

	for _, f := range facilities {
		fc.Features = append(fc.Features, location.PointFeature(f.Coordinates, map[string]any{
			"kind":        "facility",
			"id":          f.ID,
			"name":        f.Name,
			"category":    string(f.Category),
			"address":     f.Address,
			"distance_km": f.DistanceKm,
			"is_priority": f.IsPriority,
			"directions":  DirectionsURL(directionsBase, anchor, f),
		}))
	}

	return fc
}

func latLon(c models.Coordinates) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
