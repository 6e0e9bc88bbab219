// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/randytsao24/carefinder/internal/models"
)

// Dedup strategy names accepted by DEDUP_STRATEGY.
const (
	DedupFirstToken = "first-token"
	DedupExact      = "exact"
	DedupProximity  = "proximity"
)

// Config holds all application configuration.
type Config struct {
	Port string
	Env  string

	UserAgent     string
	NominatimURL  string
	OverpassURL   string
	FDAURL        string
	TreatmentURL  string
	DirectionsURL string

	DefaultAnchor      models.Coordinates
	SearchRadiusMeters int
	OverrideRadiusKm   float64
	ResultLimit        int
	DedupStrategy      string
	OverridesFile      string

	SearchTimeout time.Duration
	HTTPTimeout   time.Duration
	CacheTTL      time.Duration
	SessionTTL    time.Duration

	HistoryDB string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory (or envFiles, when given) is applied first
// without overriding variables that are already set.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		UserAgent:     getEnv("USER_AGENT", "carefinder/1.0 (+https://github.com/randytsao24/carefinder)"),
		NominatimURL:  getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		OverpassURL:   getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		FDAURL:        getEnv("FDA_URL", "https://api.fda.gov/drug/event.json"),
		TreatmentURL:  getEnv("TREATMENT_URL", "https://findtreatment.gov/locator/exportsAsJson/v2"),
		DirectionsURL: getEnv("DIRECTIONS_URL", "https://www.openstreetmap.org"),

		DefaultAnchor: models.Coordinates{
			Latitude:  getFloatEnv("DEFAULT_LAT", 12.9718),
			Longitude: getFloatEnv("DEFAULT_LON", 79.1589),
		},
		SearchRadiusMeters: getIntEnv("SEARCH_RADIUS_METERS", 3000),
		OverrideRadiusKm:   getFloatEnv("OVERRIDE_RADIUS_KM", 5),
		ResultLimit:        getIntEnv("RESULT_LIMIT", 10),
		DedupStrategy:      getEnv("DEDUP_STRATEGY", DedupFirstToken),
		OverridesFile:      getEnv("OVERRIDES_FILE", ""),

		SearchTimeout: getDurationEnv("SEARCH_TIMEOUT_SECONDS", 20) * time.Second,
		HTTPTimeout:   getDurationEnv("HTTP_TIMEOUT_SECONDS", 15) * time.Second,
		CacheTTL:      getDurationEnv("CACHE_TTL_SECONDS", 300) * time.Second,
		SessionTTL:    getDurationEnv("SESSION_TTL_SECONDS", 1800) * time.Second,

		HistoryDB: getEnv("HISTORY_DB", ""),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.SearchRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RADIUS_METERS must be positive, got %d", c.SearchRadiusMeters))
	}
	if c.OverrideRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("OVERRIDE_RADIUS_KM must be positive, got %g", c.OverrideRadiusKm))
	}
	if c.ResultLimit <= 0 {
		errs = append(errs, fmt.Errorf("RESULT_LIMIT must be positive, got %d", c.ResultLimit))
	}
	if c.SearchTimeout <= 0 {
		errs = append(errs, errors.New("SEARCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT_SECONDS must be positive"))
	}
	if c.CacheTTL <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL_SECONDS and SESSION_TTL_SECONDS must be positive"))
	}
	if c.SessionTTL > 0 && c.SessionTTL < c.SearchTimeout {
		errs = append(errs, fmt.Errorf("SESSION_TTL_SECONDS (%s) must not be shorter than SEARCH_TIMEOUT_SECONDS (%s)", c.SessionTTL, c.SearchTimeout))
	}
	switch c.DedupStrategy {
	case DedupFirstToken, DedupExact, DedupProximity:
	default:
		errs = append(errs, fmt.Errorf("unknown DEDUP_STRATEGY %q", c.DedupStrategy))
	}
	if c.DefaultAnchor.Latitude < -90 || c.DefaultAnchor.Latitude > 90 ||
		c.DefaultAnchor.Longitude < -180 || c.DefaultAnchor.Longitude > 180 {
		errs = append(errs, fmt.Errorf("default anchor %+v is out of range", c.DefaultAnchor))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}
