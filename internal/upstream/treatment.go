package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/randytsao24/carefinder/internal/cache"
)

// Locator defaults: limitType 2 is a radius search, limitValue is meters.
const (
	DefaultLimitType  = "2"
	DefaultLimitValue = "20000"
)

// CenterQuery selects treatment centers around a point
type CenterQuery struct {
	Lat        string
	Lon        string
	LimitType  string
	LimitValue string
}

func (q CenterQuery) withDefaults() CenterQuery {
	if q.LimitType == "" {
		q.LimitType = DefaultLimitType
	}
	if q.LimitValue == "" {
		q.LimitValue = DefaultLimitValue
	}
	return q
}

func (q CenterQuery) key() string {
	return q.Lat + "," + q.Lon + "|" + q.LimitType + "|" + q.LimitValue
}

// TreatmentService fetches center rows from the treatment locator.
// Rows are passed through unchanged.
type TreatmentService struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache[[]json.RawMessage]
}

// NewTreatmentService creates a locator client. baseURL is the exportsAsJson endpoint.
func NewTreatmentService(baseURL string, timeout, cacheTTL time.Duration) *TreatmentService {
	return &TreatmentService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New[[]json.RawMessage](cacheTTL),
	}
}

// Centers returns the locator rows for q; a response without rows yields an empty slice
func (s *TreatmentService) Centers(ctx context.Context, q CenterQuery) ([]json.RawMessage, error) {
	if q.Lat == "" || q.Lon == "" {
		return nil, fmt.Errorf("latitude and longitude are required")
	}
	q = q.withDefaults()

	return s.cache.Fetch(ctx, q.key(), func(ctx context.Context) ([]json.RawMessage, error) {
		params := url.Values{}
		params.Set("sAddr", q.Lat+","+q.Lon)
		params.Set("limitType", q.LimitType)
		params.Set("limitValue", q.LimitValue)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching treatment centers: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("treatment locator returned status %d", resp.StatusCode)
		}

		var body struct {
			Rows []json.RawMessage `json:"rows"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("parsing treatment response: %w", err)
		}
		if body.Rows == nil {
			body.Rows = []json.RawMessage{}
		}
		return body.Rows, nil
	})
}

// Close stops the cache janitor
func (s *TreatmentService) Close() {
	s.cache.Close()
}
