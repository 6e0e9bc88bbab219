package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/carefinder/internal/upstream"
	"github.com/rs/zerolog/log"
)

type UpstreamHandler struct {
	fda       FDAProvider
	treatment TreatmentProvider
}

func NewUpstreamHandler(fda FDAProvider, treatment TreatmentProvider) *UpstreamHandler {
	return &UpstreamHandler{
		fda:       fda,
		treatment: treatment,
	}
}

// FDAStats returns the most reported adverse reactions
func (h *UpstreamHandler) FDAStats(w http.ResponseWriter, r *http.Request) {
	results, err := h.fda.ReactionStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error fetching FDA stats")
		writeError(w, http.StatusInternalServerError, "Failed to fetch FDA statistics")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// DrugTrends returns adverse-event report counts over time for a drug
func (h *UpstreamHandler) DrugTrends(w http.ResponseWriter, r *http.Request) {
	drug := strings.TrimSpace(r.URL.Query().Get("drug"))
	if drug == "" {
		writeError(w, http.StatusBadRequest, "Drug name is required")
		return
	}

	results, err := h.fda.DrugTrends(r.Context(), drug)
	if err != nil {
		log.Error().Err(err).Str("drug", drug).Msg("Error fetching drug trends")
		writeError(w, http.StatusInternalServerError, "Failed to fetch drug trends")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// TreatmentCenters returns locator rows around lat/lon
func (h *UpstreamHandler) TreatmentCenters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := upstream.CenterQuery{
		Lat:        strings.TrimSpace(q.Get("lat")),
		Lon:        strings.TrimSpace(q.Get("lon")),
		LimitType:  q.Get("limitType"),
		LimitValue: q.Get("limitValue"),
	}
	if query.Lat == "" || query.Lon == "" {
		writeError(w, http.StatusBadRequest, "Latitude and Longitude are required")
		return
	}

	rows, err := h.treatment.Centers(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("lat", query.Lat).Str("lon", query.Lon).Msg("Error fetching treatment centers")
		writeError(w, http.StatusInternalServerError, "Failed to fetch treatment centers")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
