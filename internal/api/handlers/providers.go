package handlers

import (
	"context"
	"encoding/json"

	"github.com/randytsao24/carefinder/internal/discovery"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/randytsao24/carefinder/internal/upstream"
)

// SessionStore hands out per-client search sessions.
type SessionStore interface {
	Get(id string) *discovery.Session
	Lookup(id string) (*discovery.Session, bool)
	Len() int
}

// HistoryStore persists completed searches.
type HistoryStore interface {
	Record(ctx context.Context, rec *models.SearchRecord) error
	Recent(ctx context.Context, limit int) ([]models.SearchRecord, error)
	Count(ctx context.Context) (int, error)
}

// FDAProvider abstracts the openFDA aggregates for testability.
type FDAProvider interface {
	ReactionStats(ctx context.Context) ([]upstream.TermCount, error)
	DrugTrends(ctx context.Context, drug string) ([]upstream.TimeCount, error)
}

// TreatmentProvider abstracts the treatment locator.
type TreatmentProvider interface {
	Centers(ctx context.Context, q upstream.CenterQuery) ([]json.RawMessage, error)
}
