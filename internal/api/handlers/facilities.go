package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/randytsao24/carefinder/internal/discovery"
	"github.com/randytsao24/carefinder/internal/facility"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionHeader carries the client's session id.
const SessionHeader = "X-Session-ID"

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// facilityView is a ranked facility with its directions link
type facilityView struct {
	models.Facility
	DirectionsURL string `json:"directions_url"`
}

type searchResponse struct {
	Success       bool               `json:"success"`
	Query         string             `json:"query"`
	Anchor        models.Coordinates `json:"anchor"`
	WasFallback   bool               `json:"was_fallback"`
	DisplayName   string             `json:"display_name,omitempty"`
	Facilities    []facilityView     `json:"facilities"`
	Count         int                `json:"count"`
	FacilityError string             `json:"facility_error,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

type FacilityHandler struct {
	sessions       SessionStore
	history        HistoryStore
	directionsBase string
}

// NewFacilityHandler creates the facility search handler. history may be nil.
func NewFacilityHandler(sessions SessionStore, history HistoryStore, directionsBase string) *FacilityHandler {
	return &FacilityHandler{
		sessions:       sessions,
		history:        history,
		directionsBase: directionsBase,
	}
}

// Search returns the ranked facilities near the q location
func (h *FacilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, ok := h.search(w, r)
	if !ok {
		return
	}
	h.writeResult(w, r, result)
}

// Map returns the same search as GeoJSON markers. A list request for the same
// query still running on the session is joined, not repeated.
func (h *FacilityHandler) Map(w http.ResponseWriter, r *http.Request) {
	result, ok := h.search(w, r)
	if !ok {
		return
	}
	h.writeMap(w, result)
}

// Current returns the session's latest completed result
func (h *FacilityHandler) Current(w http.ResponseWriter, r *http.Request) {
	result, ok := h.current(w, r)
	if !ok {
		return
	}
	h.writeResult(w, r, result)
}

// CurrentMap renders the session's latest completed result as GeoJSON
func (h *FacilityHandler) CurrentMap(w http.ResponseWriter, r *http.Request) {
	result, ok := h.current(w, r)
	if !ok {
		return
	}
	h.writeMap(w, result)
}

// Recent lists recently completed searches
func (h *FacilityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "Search history is disabled")
		return
	}

	limit := parseIntQueryParam(r, "limit", defaultRecentLimit, 1, maxRecentLimit)
	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Loading search history failed")
		writeError(w, http.StatusInternalServerError, "Failed to load search history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(records),
		"searches": records,
	})
}

func (h *FacilityHandler) search(w http.ResponseWriter, r *http.Request) (*discovery.Result, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, discovery.UserMessage(discovery.ErrEmptyQuery))
		return nil, false
	}

	session := h.sessions.Get(r.Header.Get(SessionHeader))
	result, err := session.Search(r.Context(), query)
	if err != nil {
		status := searchStatus(err)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).Str("query", query).Str("session", session.ID()).Int("status", status).Msg("Facility search failed")
		writeError(w, status, discovery.UserMessage(err))
		return nil, false
	}

	if h.history != nil {
		rec := result.Record()
		if err := h.history.Record(r.Context(), &rec); err != nil {
			log.Error().Err(err).Str("query", query).Msg("Recording search failed")
		}
	}

	return result, true
}

func (h *FacilityHandler) current(w http.ResponseWriter, r *http.Request) (*discovery.Result, bool) {
	session, found := h.sessions.Lookup(r.Header.Get(SessionHeader))
	if !found {
		writeError(w, http.StatusNotFound, "No search results yet")
		return nil, false
	}
	result := session.Current()
	if result == nil {
		writeError(w, http.StatusNotFound, "No search results yet")
		return nil, false
	}
	return result, true
}

func (h *FacilityHandler) writeMap(w http.ResponseWriter, result *discovery.Result) {
	fc := facility.GeoJSON(h.directionsBase, result.Anchor, result.Facilities)

	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, fc)
}

func (h *FacilityHandler) writeResult(w http.ResponseWriter, r *http.Request, result *discovery.Result) {
	views := make([]facilityView, len(result.Facilities))
	for i, f := range result.Facilities {
		views[i] = facilityView{
			Facility:      f,
			DirectionsURL: facility.DirectionsURL(h.directionsBase, result.Anchor, f),
		}
	}

	resp := searchResponse{
		Success:       true,
		Query:         result.Query,
		Anchor:        result.Anchor,
		WasFallback:   result.WasFallback,
		DisplayName:   result.DisplayName,
		Facilities:    views,
		Count:         len(views),
		FacilityError: result.FacilityError,
		Warnings:      result.Warnings,
	}

	if wantsProtobuf(r) {
		writeProtobuf(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// searchStatus maps a pipeline error to an HTTP status
func searchStatus(err error) int {
	var (
		timeoutErr *discovery.TimeoutError
		stageErr   *discovery.StageError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.Is(err, discovery.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, discovery.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
