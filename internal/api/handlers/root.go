package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "carefinder",
		"description": "Nearby hospitals and clinics, FDA adverse-event stats and treatment center lookup",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /":                           "API information",
			"GET /health":                     "Health check",
			"GET /api/facilities?q=":          "Nearest hospitals and clinics for a location",
			"GET /api/facilities/map?q=":      "Same search as GeoJSON map markers",
			"GET /api/facilities/current":     "Latest result for this session",
			"GET /api/facilities/current/map": "Latest result for this session as GeoJSON",
			"GET /api/searches/recent":        "Recently completed searches",
			"GET /api/fda/stats":              "Top reported adverse reactions",
			"GET /api/fda/drug-trends?drug":   "Adverse-event reports over time for a drug",
			"GET /api/treatment-centers":      "Treatment centers near lat/lon",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}
