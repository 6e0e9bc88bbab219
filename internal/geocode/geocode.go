// Package geocode resolves free-text locations to coordinates using Nominatim.
package geocode

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

	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrEmptyQuery is returned when the location text is blank.
var ErrEmptyQuery = errors.New("location text is required")

// ErrLocationNotFound marks a lookup that matched nothing. It is not fatal:
// Resolve substitutes the default anchor and reports it through Resolution.
var ErrLocationNotFound = errors.New("location not found")

// Error reports a failed lookup: transport failure, non-success status or a
// payload that could not be decoded.
type Error struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("geocode %q: upstream returned status %d", e.Query, e.StatusCode)
	}
	return fmt.Sprintf("geocode %q: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolution is the tagged result of a lookup.
type Resolution struct {
	Coordinates models.Coordinates `json:"coordinates"`
	DisplayName string             `json:"display_name,omitempty"`
	WasFallback bool               `json:"was_fallback"`
}

// NotFound returns ErrLocationNotFound when the resolution is a fallback, nil otherwise.
func (r Resolution) NotFound() error {
	if r.WasFallback {
		return ErrLocationNotFound
	}
	return nil
}

// Client queries a Nominatim-compatible search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	fallback  models.Coordinates
	client    *http.Client
}

// NewClient creates a geocoder. fallback is the anchor used when nothing matches.
func NewClient(baseURL, userAgent string, fallback models.Coordinates, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		fallback:  fallback,
		client:    &http.Client{Timeout: timeout},
	}
}

// Resolve looks up text and returns the first match's coordinates.
func (c *Client) Resolve(ctx context.Context, text string) (Resolution, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{}, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Resolution{}, &Error{Query: text, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Resolution{}, &Error{Query: text, Err: fmt.Errorf("fetching geocode: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Resolution{}, &Error{Query: text, StatusCode: resp.StatusCode}
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Resolution{}, &Error{Query: text, Err: fmt.Errorf("parsing response: %w", err)}
	}

	if len(places) == 0 {
		log.Warn().
			Str("query", text).
			Float64("lat", c.fallback.Latitude).
			Float64("lon", c.fallback.Longitude).
			Msg("Location not found, using default anchor")
		return Resolution{Coordinates: c.fallback, WasFallback: true}, nil
	}

	coords, err := places[0].coordinates()
	if err != nil {
		return Resolution{}, &Error{Query: text, Err: err}
	}

	return Resolution{Coordinates: coords, DisplayName: places[0].DisplayName}, nil
}

// place is one Nominatim search candidate; lat/lon arrive as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) coordinates() (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}
	c := models.Coordinates{Latitude: lat, Longitude: lon}
	if !location.Valid(c) {
		return models.Coordinates{}, fmt.Errorf("coordinates out of range: %g,%g", lat, lon)
	}
	return c, nil
}
