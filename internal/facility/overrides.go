package facility

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 300 * time.Millisecond

//go:embed overrides.yaml
var defaultOverrides []byte

// overrideNamespace seeds deterministic ids for overrides listed without one.
var overrideNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("carefinder/overrides"))

type overrideDocument struct {
	Facilities []overrideEntry `yaml:"facilities"`
}

type overrideEntry struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Address  string  `yaml:"address"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

// ParseOverrides decodes a YAML override list. Every entry needs a name and a
// valid coordinate.
func ParseOverrides(data []byte) ([]models.Facility, error) {
	var doc overrideDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing overrides YAML: %w", err)
	}

	facilities := make([]models.Facility, 0, len(doc.Facilities))
	var errs []error
	for i, e := range doc.Facilities {
		f, err := e.facility()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		facilities = append(facilities, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return facilities, nil
}

func (e overrideEntry) facility() (models.Facility, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return models.Facility{}, errors.New("name is required")
	}
	coords := models.Coordinates{Latitude: e.Lat, Longitude: e.Lon}
	if !location.Valid(coords) || coords == (models.Coordinates{}) {
		return models.Facility{}, fmt.Errorf("%s: invalid coordinates %g,%g", name, e.Lat, e.Lon)
	}

	id := e.ID
	if id == "" {
		id = uuid.NewSHA1(overrideNamespace, []byte(name)).String()
	}

	category := models.Category(e.Category)
	switch category {
	case models.CategoryHospital, models.CategoryClinic, models.CategoryHealthcare:
	default:
		category = models.CategoryHealthcare
	}

	address := strings.TrimSpace(e.Address)
	if address == "" {
		address = NoAddress
	}

	return models.Facility{
		ID:          id,
		Name:        name,
		Category:    category,
		Address:     address,
		Coordinates: coords,
		IsPriority:  true,
	}, nil
}

// Registry holds the curated override facilities
type Registry struct {
	facilities []models.Facility
	source     string
	mu         sync.RWMutex
	loaded     bool
}

// NewRegistry creates an empty override registry
func NewRegistry() *Registry {
	return &Registry{}
}

// LoadDefaults replaces the list with the overrides built into the binary
func (r *Registry) LoadDefaults() error {
	facilities, err := ParseOverrides(defaultOverrides)
	if err != nil {
		return fmt.Errorf("loading built-in overrides: %w", err)
	}
	r.replace(facilities, "built-in")
	return nil
}

// Load reads overrides from a YAML file. On error the current list is kept.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading overrides file: %w", err)
	}
	facilities, err := ParseOverrides(data)
	if err != nil {
		return err
	}
	r.replace(facilities, path)
	return nil
}

func (r *Registry) replace(facilities []models.Facility, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facilities = facilities
	r.source = source
	r.loaded = true
}

// All returns a copy of the current overrides
func (r *Registry) All() []models.Facility {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Facility, len(r.facilities))
	copy(result, r.facilities)
	return result
}

// Count returns the number of loaded overrides
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.facilities)
}

// Source names where the current list came from
func (r *Registry) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// IsLoaded returns true if a list has been loaded
func (r *Registry) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Watch reloads path whenever it is written or recreated, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (r *Registry) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go r.watchLoop(ctx, watcher, abs)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() { r.reload(path) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", path).Msg("Override watcher error")
		}
	}
}

func (r *Registry) reload(path string) {
	if err := r.Load(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Override reload failed, keeping previous list")
		return
	}
	log.Info().Str("path", path).Int("count", r.Count()).Msg("Overrides reloaded")
}
