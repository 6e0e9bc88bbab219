package location

import "github.com/randytsao24/carefinder/internal/models"

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a single geographic feature with geometry and properties.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry represents a point geometry.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [Lon, Lat]
}

// NewFeatureCollection returns an empty collection ready for appending.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// PointFeature builds a Point feature at c with the given properties.
func PointFeature(c models.Coordinates, props map[string]any) Feature {
	if props == nil {
		props = map[string]any{}
	}
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{c.Longitude, c.Latitude},
		},
		Properties: props,
	}
}
