// Package main is a command line client that runs one facility search and
// prints the ranked list.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/randytsao24/carefinder/internal/config"
	"github.com/randytsao24/carefinder/internal/discovery"
	"github.com/randytsao24/carefinder/internal/facility"
	"github.com/randytsao24/carefinder/internal/geocode"
	"github.com/randytsao24/carefinder/internal/history"
	"github.com/randytsao24/carefinder/internal/logger"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/randytsao24/carefinder/internal/overpass"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	EnvFile   []string `short:"e" long:"env-file"  description:"Environment file to load (default .env)"`
	Overrides string   `short:"o" long:"overrides" description:"Override facilities YAML file (overrides OVERRIDES_FILE)"`
	Limit     int      `short:"n" long:"limit"     description:"Maximum facilities to print (overrides RESULT_LIMIT)"`
	Dedup     string   `long:"dedup"               description:"Duplicate detection strategy" choice:"first-token" choice:"exact" choice:"proximity"`
	Output    string   `short:"f" long:"format"    description:"Output format" choice:"table" choice:"json" choice:"geojson" default:"table"`
	Recent    int      `long:"recent"              description:"Print the N most recent searches from HISTORY_DB instead of searching"`

	Args struct {
		Location []string `positional-arg-name:"location" description:"Place, address or landmark to search near"`
	} `positional-args:"yes"`
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

	opts.Logger.Setup()

	cfg := config.Load(opts.EnvFile...)
	if opts.Overrides != "" {
		cfg.OverridesFile = opts.Overrides
	}
	if opts.Limit > 0 {
		cfg.ResultLimit = opts.Limit
	}
	if opts.Dedup != "" {
		cfg.DedupStrategy = opts.Dedup
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store *history.Store
	if cfg.HistoryDB != "" {
		var err error
		if store, err = history.Open(cfg.HistoryDB); err != nil {
			log.Fatal().Err(err).Str("path", cfg.HistoryDB).Msg("Failed to open search history")
		}
		defer store.Close()
	}

	if opts.Recent > 0 {
		if store == nil {
			log.Fatal().Msg("--recent requires HISTORY_DB")
		}
		records, err := store.Recent(ctx, opts.Recent)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read search history")
		}
		printRecent(os.Stdout, records)
		return
	}

	query := strings.Join(opts.Args.Location, " ")

	pipeline, err := newPipeline(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up search")
	}

	res, err := pipeline.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Search failed")
		fmt.Fprintln(os.Stderr, discovery.UserMessage(err))
		os.Exit(1)
	}

	if store != nil {
		rec := res.Record()
		if err := store.Record(ctx, &rec); err != nil {
			log.Warn().Err(err).Msg("Failed to record search")
		}
	}

	switch opts.Output {
	case "json":
		err = writeJSON(os.Stdout, res)
	case "geojson":
		err = writeJSON(os.Stdout, facility.GeoJSON(cfg.DirectionsURL, res.Anchor, res.Facilities))
	default:
		err = printTable(os.Stdout, res, cfg.DirectionsURL)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func newPipeline(cfg *config.Config) (*discovery.Pipeline, error) {
	overrides := facility.NewRegistry()
	if cfg.OverridesFile != "" {
		if err := overrides.Load(cfg.OverridesFile); err != nil {
			return nil, err
		}
	} else if err := overrides.LoadDefaults(); err != nil {
		return nil, err
	}

	isDuplicate, err := facility.DuplicateStrategy(cfg.DedupStrategy)
	if err != nil {
		return nil, err
	}

	return discovery.NewPipeline(
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
	), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, res *discovery.Result, directionsBase string) error {
	fmt.Fprintf(w, "Anchor: %.5f, %.5f", res.Anchor.Latitude, res.Anchor.Longitude)
	if res.DisplayName != "" {
		fmt.Fprintf(w, " (%s)", res.DisplayName)
	}
	fmt.Fprintln(w)
	for _, warning := range res.Warnings {
		fmt.Fprintln(w, "Note:", warning)
	}
	if res.FacilityError != "" {
		fmt.Fprintln(w, "Note:", res.FacilityError)
	}
	if len(res.Facilities) == 0 {
		fmt.Fprintln(w, "No facilities found.")
		return nil
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tCATEGORY\tKM\tADDRESS\tDIRECTIONS")
	for i, f := range res.Facilities {
		name := f.Name
		if f.IsPriority {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			i+1, name, f.Category, f.DistanceKm, f.Address,
			facility.DirectionsURL(directionsBase, res.Anchor, f))
	}
	return tw.Flush()
}

func printRecent(w io.Writer, records []models.SearchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tQUERY\tANCHOR\tFOUND\tNOTE")
	for _, rec := range records {
		note := rec.FacilityError
		if note == "" && rec.WasFallback {
			note = "default location"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f,%.4f\t%d\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.Query,
			rec.Anchor.Latitude, rec.Anchor.Longitude, rec.FacilityCount, note)
	}
	tw.Flush()
}
