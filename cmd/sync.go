package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/discovery"
	"github.com/barrioguide/venue-cli/internal/enrich"
	"github.com/barrioguide/venue-cli/internal/neighborhood"
	"github.com/barrioguide/venue-cli/internal/pipeline"
	"github.com/barrioguide/venue-cli/pkg/foursquare"
	"github.com/barrioguide/venue-cli/pkg/geocode"
	"github.com/barrioguide/venue-cli/pkg/places"
)

var (
	syncCity       string
	syncMode       string
	syncCategories []string
	syncBudget     int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the discovery and enrichment pipeline for a city",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		if syncMode != pipeline.ModeFull && syncMode != pipeline.ModeIncremental {
			return eris.Errorf("unknown mode %q (want %q or %q)", syncMode, pipeline.ModeFull, pipeline.ModeIncremental)
		}

		city, err := cfg.City(syncCity)
		if err != nil {
			return err
		}
		categories := syncCategories
		if len(categories) == 0 {
			categories = cfg.Categories
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		searcher := discovery.NewSearcher(placesClient, cfg.Gates, cfg.Places.RateLimit, cfg.Discovery.MaxPagesPerTile)

		budget := cfg.Enrich.Budget
		if cmd.Flags().Changed("budget") {
			budget = syncBudget
		}
		fsqClient := foursquare.NewClient(cfg.Foursquare.Key, foursquare.WithBaseURL(cfg.Foursquare.BaseURL))
		enricher := enrich.NewEnricher(fsqClient, enrich.NewBudget(budget), cfg.Foursquare.RateLimit)
		if cfg.Foursquare.Key == "" {
			// No secondary credential: run discovery-only, everything saves
			// as unverified.
			enricher.Budget().Limit()
			zap.L().Warn("no foursquare key configured, enrichment disabled")
		}

		var geocoder geocode.Client
		if cfg.Geocode.Key != "" {
			geocoder = geocode.NewClient(cfg.Geocode.Key, geocode.WithBaseURL(cfg.Geocode.BaseURL))
		}
		bounds := loadBoundarySet(ctx, st, syncCity, city)
		resolver := neighborhood.NewResolver(city, bounds, geocoder)

		runner := pipeline.NewRunner(st, searcher, enricher, resolver, cfg.Discovery.Workers)
		summary, err := runner.Sync(ctx, syncCity, city, categories, syncMode)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncCity, "city", "", "city identifier from config (required)")
	syncCmd.Flags().StringVar(&syncMode, "mode", pipeline.ModeFull, "run mode: full or incremental")
	syncCmd.Flags().StringSliceVar(&syncCategories, "category", nil, "category to scan (repeatable, default from config)")
	syncCmd.Flags().IntVar(&syncBudget, "budget", 0, "secondary provider call budget for this run (0 = no limit)")
	_ = syncCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(syncCmd)
}
