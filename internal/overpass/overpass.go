// Package overpass queries an OpenStreetMap Overpass endpoint for healthcare features.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randytsao24/carefinder/internal/models"
)

// DefaultRadiusMeters is the search radius used when none is configured.
const DefaultRadiusMeters = 3000

// errMissingElements is wrapped when the payload lacks the top-level elements field.
var errMissingElements = errors.New("response has no elements collection")

// QueryError reports a failed facility query.
type QueryError struct {
	StatusCode int
	Err        error
}

func (e *QueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("facility query: upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("facility query: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Center is the centroid Overpass attaches to ways and relations with "out center".
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Element is a raw node, way or relation from the index.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Client posts Overpass QL queries.
type Client struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewClient creates a facility index client for endpoint.
func NewClient(endpoint, userAgent string, timeout time.Duration) *Client {
	return &Client{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Query returns hospital and clinic features within radiusMeters of anchor.
func (c *Client) Query(ctx context.Context, anchor models.Coordinates, radiusMeters int) ([]Element, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	form := url.Values{}
	form.Set("data", BuildQuery(anchor, radiusMeters))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &QueryError{Err: fmt.Errorf("fetching facilities: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &QueryError{StatusCode: resp.StatusCode}
	}

	var result struct {
		Elements *[]Element `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &QueryError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	if result.Elements == nil {
		return nil, &QueryError{Err: errMissingElements}
	}

	return *result.Elements, nil
}

// BuildQuery renders the Overpass QL for hospital/clinic features around anchor.
// Both the amenity and healthcare tagging schemes are requested, and areas are
// returned with their centroid.
func BuildQuery(anchor models.Coordinates, radiusMeters int) string {
	around := fmt.Sprintf("around:%d,%f,%f", radiusMeters, anchor.Latitude, anchor.Longitude)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, key := range []string{"amenity", "healthcare"} {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "  %s[\"%s\"~\"^(hospital|clinic)$\"](%s);\n", kind, key, around)
		}
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}
