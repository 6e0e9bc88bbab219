package discovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/randytsao24/carefinder/internal/geocode"
	"github.com/randytsao24/carefinder/internal/overpass"
)

// Pipeline stages named in StageError and TimeoutError.
const (
	StageGeocode    = "geocode"
	StageFacilities = "facilities"
)

// ErrEmptyQuery is returned for blank location text.
var ErrEmptyQuery = geocode.ErrEmptyQuery

// ErrSuperseded is returned by a session search that a newer search replaced.
var ErrSuperseded = errors.New("search superseded by a newer request")

// TimeoutError reports that the search deadline expired.
type TimeoutError struct {
	Timeout time.Duration
	Stage   string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("search timed out after %s during %s", e.Timeout, e.Stage)
}

// StageError reports a fatal failure in one stage of the pipeline.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// User-visible messages, one per error kind.
const (
	MsgEmptyQuery       = "Please enter a location to search."
	MsgNotFound         = "We couldn't find that location. Showing facilities near the default location instead."
	MsgGeocodeFailed    = "We couldn't look up that location right now. Please try again."
	MsgFacilitiesFailed = "Unable to load nearby facilities right now. Please try again later."
	MsgTimeout          = "The search took too long. Please try again."
	MsgSuperseded       = "This search was replaced by a newer one."
	MsgUnknown          = "Something went wrong. Please try again."
)

// UserMessage maps an error from this package or its collaborators to the
// single string shown to the user. It returns "" for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		timeoutErr *TimeoutError
		geoErr     *geocode.Error
		queryErr   *overpass.QueryError
		stageErr   *StageError
	)

	switch {
	case errors.As(err, &timeoutErr):
		return MsgTimeout
	case errors.Is(err, ErrSuperseded):
		return MsgSuperseded
	case errors.Is(err, ErrEmptyQuery):
		return MsgEmptyQuery
	case errors.Is(err, geocode.ErrLocationNotFound):
		return MsgNotFound
	case errors.As(err, &geoErr):
		return MsgGeocodeFailed
	case errors.As(err, &queryErr):
		return MsgFacilitiesFailed
	case errors.As(err, &stageErr) && stageErr.Stage == StageGeocode:
		return MsgGeocodeFailed
	case errors.As(err, &stageErr) && stageErr.Stage == StageFacilities:
		return MsgFacilitiesFailed
	default:
		return MsgUnknown
	}
}
