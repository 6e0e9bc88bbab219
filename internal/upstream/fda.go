// Package upstream proxies the openFDA and treatment locator APIs.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randytsao24/carefinder/internal/cache"
)

const (
	reactionCountField = "patient.reaction.reactionmeddrapt.exact"
	reactionLimit      = 10
)

// ErrNoResults is returned when openFDA answers without a results array.
var ErrNoResults = errors.New("no results in response")

// TermCount is one bucket of a count-by-term query
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TimeCount is one bucket of a count-by-date query; Time is YYYYMMDD
type TimeCount struct {
	Time  string `json:"time"`
	Count int    `json:"count"`
}

// FDAService fetches and caches adverse-event aggregates from openFDA
type FDAService struct {
	baseURL    string
	client     *http.Client
	statsCache *cache.Cache[[]TermCount]
	trendCache *cache.Cache[[]TimeCount]
}

// NewFDAService creates a new openFDA client. baseURL is the drug/event.json endpoint.
func NewFDAService(baseURL string, timeout, cacheTTL time.Duration) *FDAService {
	return &FDAService{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		statsCache: cache.New[[]TermCount](cacheTTL),
		trendCache: cache.New[[]TimeCount](cacheTTL),
	}
}

// ReactionStats returns the most reported adverse reaction terms
func (s *FDAService) ReactionStats(ctx context.Context) ([]TermCount, error) {
	return s.statsCache.Fetch(ctx, "reactions", func(ctx context.Context) ([]TermCount, error) {
		params := url.Values{}
		params.Set("count", reactionCountField)
		params.Set("limit", strconv.Itoa(reactionLimit))

		var results []TermCount
		if err := s.get(ctx, params, &results); err != nil {
			return nil, err
		}
		return results, nil
	})
}

// DrugTrends returns report counts per receive date for a drug
func (s *FDAService) DrugTrends(ctx context.Context, drug string) ([]TimeCount, error) {
	drug = strings.TrimSpace(drug)
	if drug == "" {
		return nil, fmt.Errorf("drug name is required")
	}

	key := strings.ToLower(drug)
	return s.trendCache.Fetch(ctx, key, func(ctx context.Context) ([]TimeCount, error) {
		params := url.Values{}
		params.Set("search", fmt.Sprintf("patient.drug.medicinalproduct:%q", drug))
		params.Set("count", "receivedate")

		var results []TimeCount
		if err := s.get(ctx, params, &results); err != nil {
			return nil, err
		}
		return results, nil
	})
}

// get decodes the results array of an openFDA response into out
func (s *FDAService) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching openFDA: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("parsing openFDA response (status %d): %w", resp.StatusCode, err)
	}
	if len(body.Results) == 0 || string(body.Results) == "null" {
		return fmt.Errorf("openFDA status %d: %w", resp.StatusCode, ErrNoResults)
	}
	if err := json.Unmarshal(body.Results, out); err != nil {
		return fmt.Errorf("parsing openFDA results: %w", err)
	}
	return nil
}

// Close stops the cache janitors
func (s *FDAService) Close() {
	s.statsCache.Close()
	s.trendCache.Close()
}
