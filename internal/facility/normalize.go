// Package facility turns raw index elements into ranked healthcare facilities.
package facility

import (
	"strconv"
	"strings"

	"github.com/randytsao24/carefinder/internal/models"
	"github.com/randytsao24/carefinder/internal/overpass"
)

// NoAddress is shown when an element carries no address tags.
const NoAddress = "Address not available"

var addressKeys = []string{
	"addr:housenumber",
	"addr:street",
	"addr:city",
	"addr:state",
	"addr:postcode",
}

// Normalize converts index elements into facilities, preserving input order.
// Elements without tags, without a hospital/clinic tag, or without a usable
// coordinate are skipped.
func Normalize(elements []overpass.Element) []models.Facility {
	facilities := make([]models.Facility, 0, len(elements))

	for _, el := range elements {
		if len(el.Tags) == 0 || !isHealthcare(el.Tags) {
			continue
		}

		coords, ok := elementCoordinates(el)
		if !ok {
			continue
		}

		category := Classify(el.Tags)
		name := el.Tags["name"]
		if name == "" {
			name = string(category)
		}

		facilities = append(facilities, models.Facility{
			ID:          el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Name:        name,
			Category:    category,
			Address:     FormatAddress(el.Tags),
			Coordinates: coords,
		})
	}

	return facilities
}

// Classify picks the category for a tag set. Hospital wins over clinic.
func Classify(tags map[string]string) models.Category {
	switch {
	case tags["amenity"] == "hospital" || tags["healthcare"] == "hospital":
		return models.CategoryHospital
	case tags["amenity"] == "clinic" || tags["healthcare"] == "clinic":
		return models.CategoryClinic
	default:
		return models.CategoryHealthcare
	}
}

// FormatAddress joins the present address parts with ", ".
func FormatAddress(tags map[string]string) string {
	parts := make([]string, 0, len(addressKeys))
	for _, key := range addressKeys {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return NoAddress
	}
	return strings.Join(parts, ", ")
}

func isHealthcare(tags map[string]string) bool {
	for _, key := range []string{"amenity", "healthcare"} {
		switch tags[key] {
		case "hospital", "clinic":
			return true
		}
	}
	return false
}

// nodes carry lat/lon, ways and relations carry a center
func elementCoordinates(el overpass.Element) (models.Coordinates, bool) {
	if el.Lat != nil && el.Lon != nil {
		return models.Coordinates{Latitude: *el.Lat, Longitude: *el.Lon}, true
	}
	if el.Center != nil {
		return models.Coordinates{Latitude: el.Center.Lat, Longitude: el.Center.Lon}, true
	}
	return models.Coordinates{}, false
}
