// Package main is the entry point for the carefinder server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/randytsao24/carefinder/internal/api"
	"github.com/randytsao24/carefinder/internal/config"
	"github.com/randytsao24/carefinder/internal/discovery"
	"github.com/randytsao24/carefinder/internal/facility"
	"github.com/randytsao24/carefinder/internal/geocode"
	"github.com/randytsao24/carefinder/internal/history"
	"github.com/randytsao24/carefinder/internal/logger"
	"github.com/randytsao24/carefinder/internal/overpass"
	"github.com/randytsao24/carefinder/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	EnvFile   []string `short:"e" long:"env-file"   description:"Environment file to load (default .env)"`
	Port      string   `short:"p" long:"port"       description:"Port to listen on (overrides PORT)"`
	Overrides string   `short:"o" long:"overrides"  description:"Override facilities YAML file (overrides OVERRIDES_FILE)"`
	HistoryDB string   `long:"history-db"           description:"SQLite search history path (overrides HISTORY_DB)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg := config.Load(opts.EnvFile...)
	opts.Logger.DefaultFormat(cfg.IsDevelopment())
	opts.Logger.Setup()

	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.Overrides != "" {
		cfg.OverridesFile = opts.Overrides
	}
	if opts.HistoryDB != "" {
		cfg.HistoryDB = opts.HistoryDB
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overrides := facility.NewRegistry()
	if err := loadOverrides(ctx, overrides, cfg.OverridesFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load override facilities")
	}

	isDuplicate, err := facility.DuplicateStrategy(cfg.DedupStrategy)
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	pipeline := discovery.NewPipeline(
		geocode.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.DefaultAnchor, cfg.HTTPTimeout),
		overpass.NewClient(cfg.OverpassURL, cfg.UserAgent, cfg.HTTPTimeout),
		overrides,
		discovery.Options{
			RadiusMeters: cfg.SearchRadiusMeters,
			Limit:        cfg.ResultLimit,
			Timeout:      cfg.SearchTimeout,
			Merge: facility.MergeOptions{
				InclusionRadiusKm: cfg.OverrideRadiusKm,
				IsDuplicate:       isDuplicate,
			},
		},
	)

	sessions := discovery.NewSessionRegistry(pipeline, cfg.SessionTTL)
	defer sessions.Close()

	fda := upstream.NewFDAService(cfg.FDAURL, cfg.HTTPTimeout, cfg.CacheTTL)
	defer fda.Close()
	treatment := upstream.NewTreatmentService(cfg.TreatmentURL, cfg.HTTPTimeout, cfg.CacheTTL)
	defer treatment.Close()

	svc := api.Services{
		Sessions:  sessions,
		FDA:       fda,
		Treatment: treatment,
		Overrides: overrides,
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.HistoryDB).Msg("Failed to open search history")
		}
		defer store.Close()
		svc.History = store
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(cfg, svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", server.Addr).
		Str("env", cfg.Env).
		Int("overrides", overrides.Count()).
		Str("dedup", cfg.DedupStrategy).
		Bool("history", cfg.HistoryDB != "").
		Msg("carefinder server starting")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// loadOverrides reads path and watches it for edits, or falls back to the
// built-in list when path is empty.
func loadOverrides(ctx context.Context, registry *facility.Registry, path string) error {
	if path == "" {
		return registry.LoadDefaults()
	}
	if err := registry.Load(path); err != nil {
		return err
	}
	if err := registry.Watch(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Override hot reload disabled")
	}
	return nil
}
