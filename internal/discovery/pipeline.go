// Package discovery runs the facility search pipeline and keeps per-session results.
package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/randytsao24/carefinder/internal/facility"
	"github.com/randytsao24/carefinder/internal/geocode"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/randytsao24/carefinder/internal/overpass"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds the geocode and facility calls together.
const DefaultTimeout = 20 * time.Second

// Geocoder resolves location text to an anchor.
type Geocoder interface {
	Resolve(ctx context.Context, text string) (geocode.Resolution, error)
}

// FacilityIndex returns raw healthcare elements around a point.
type FacilityIndex interface {
	Query(ctx context.Context, anchor models.Coordinates, radiusMeters int) ([]overpass.Element, error)
}

// OverrideSource supplies the curated override facilities.
type OverrideSource interface {
	All() []models.Facility
}

// Options tunes a Pipeline. Zero values fall back to the package defaults.
type Options struct {
	RadiusMeters int
	Limit        int
	Timeout      time.Duration
	Merge        facility.MergeOptions
}

// Result is the outcome of one search.
type Result struct {
	Query         string             `json:"query"`
	Anchor        models.Coordinates `json:"anchor"`
	WasFallback   bool               `json:"was_fallback"`
	DisplayName   string             `json:"display_name,omitempty"`
	Facilities    []models.Facility  `json:"facilities"`
	FacilityError string             `json:"facility_error,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	CompletedAt   time.Time          `json:"completed_at"`
}

// Pipeline sequences geocode, facility query, normalize, merge and rank.
// It holds no per-search state and is safe for concurrent use.
type Pipeline struct {
	geocoder  Geocoder
	index     FacilityIndex
	overrides OverrideSource
	opts      Options
}

// NewPipeline creates a pipeline. overrides may be nil.
func NewPipeline(geocoder Geocoder, index FacilityIndex, overrides OverrideSource, opts Options) *Pipeline {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = overpass.DefaultRadiusMeters
	}
	if opts.Limit <= 0 {
		opts.Limit = facility.DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Pipeline{
		geocoder:  geocoder,
		index:     index,
		overrides: overrides,
		opts:      opts,
	}
}

// Search runs the pipeline for text.
//
// A geocode failure is fatal and returned as a *StageError. A facility query
// failure is not: the result carries the anchor, no facilities and a
// FacilityError message. Deadline expiry in either call is a *TimeoutError.
func (p *Pipeline) Search(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	res, err := p.geocoder.Resolve(ctx, text)
	if err != nil {
		return nil, p.fail(ctx, StageGeocode, err)
	}

	result := &Result{
		Query:       text,
		Anchor:      res.Coordinates,
		WasFallback: res.WasFallback,
		DisplayName: res.DisplayName,
		Facilities:  []models.Facility{},
	}
	if nf := res.NotFound(); nf != nil {
		result.Warnings = append(result.Warnings, UserMessage(nf))
	}

	elements, err := p.index.Query(ctx, res.Coordinates, p.opts.RadiusMeters)
	if err != nil {
		if ctx.Err() != nil {
			return nil, p.fail(ctx, StageFacilities, err)
		}
		log.Warn().
			Err(err).
			Str("query", text).
			Float64("lat", res.Coordinates.Latitude).
			Float64("lon", res.Coordinates.Longitude).
			Msg("Facility query failed, returning anchor only")
		result.FacilityError = UserMessage(&StageError{Stage: StageFacilities, Err: err})
		result.CompletedAt = time.Now()
		return result, nil
	}

	var overrides []models.Facility
	if p.overrides != nil {
		overrides = p.overrides.All()
	}

	merged := facility.Merge(facility.Normalize(elements), overrides, res.Coordinates, p.opts.Merge)
	result.Facilities = facility.Rank(merged, res.Coordinates, p.opts.Limit)
	result.CompletedAt = time.Now()

	return result, nil
}

// fail classifies a stage error. Deadline expiry wins over the stage's own error.
func (p *Pipeline) fail(ctx context.Context, stage string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: p.opts.Timeout, Stage: stage}
	}
	return &StageError{Stage: stage, Err: err}
}

// Record summarizes r for the search history.
func (r *Result) Record() models.SearchRecord {
	return models.SearchRecord{
		Query:         r.Query,
		Anchor:        r.Anchor,
		WasFallback:   r.WasFallback,
		FacilityCount: len(r.Facilities),
		FacilityError: r.FacilityError,
		CreatedAt:     r.CompletedAt,
	}
}
