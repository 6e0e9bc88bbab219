// Package handlers contains HTTP request handlers
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// OverrideStatus reports the state of the override facility list.
type OverrideStatus interface {
	Count() int
	Source() string
	IsLoaded() bool
}

// SessionCounter reports how many client sessions are tracked.
type SessionCounter interface {
	Len() int
}

// SearchCounter reports how many searches the history store holds.
type SearchCounter interface {
	Count(ctx context.Context) (int, error)
}

type HealthHandler struct {
	startTime time.Time
	overrides OverrideStatus
	sessions  SessionCounter
	history   SearchCounter
}

// NewHealthHandler creates the health handler. Any dependency may be nil.
func NewHealthHandler(overrides OverrideStatus, sessions SessionCounter, history SearchCounter) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		overrides: overrides,
		sessions:  sessions,
		history:   history,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "OK"
	body := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"uptime":    time.Since(h.startTime).String(),
	}

	if h.overrides != nil {
		body["overrides"] = map[string]any{
			"count":  h.overrides.Count(),
			"source": h.overrides.Source(),
			"loaded": h.overrides.IsLoaded(),
		}
		if !h.overrides.IsLoaded() {
			status = "DEGRADED"
		}
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Len()
	}
	if h.history != nil {
		n, err := h.history.Count(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Counting search history failed")
			status = "DEGRADED"
		} else {
			body["searches_recorded"] = n
		}
	}

	body["status"] = status
	writeJSON(w, http.StatusOK, body)
}
