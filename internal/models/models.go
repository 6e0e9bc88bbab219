// Package models defines shared data types
package models

import "time"

// Coordinates is a WGS84 point in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Category classifies a facility by its source tags
type Category string

const (
	CategoryHospital   Category = "Hospital"
	CategoryClinic     Category = "Clinic"
	CategoryHealthcare Category = "Healthcare Facility"
)

// Facility represents a hospital, clinic or other treatment facility
type Facility struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    Category    `json:"category"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	DistanceKm  float64     `json:"distance_km"`
	IsPriority  bool        `json:"is_priority"`
}

// SearchRecord summarizes one completed facility search
type SearchRecord struct {
	ID            string      `json:"id"`
	Query         string      `json:"query"`
	Anchor        Coordinates `json:"anchor"`
	WasFallback   bool        `json:"was_fallback"`
	FacilityCount int         `json:"facility_count"`
	FacilityError string      `json:"facility_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
