// Package pipeline orchestrates a sync run: tiled discovery, enrichment,
// neighborhood resolution, and merge into the venue store.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/discovery"
	"github.com/barrioguide/venue-cli/internal/enrich"
	"github.com/barrioguide/venue-cli/internal/neighborhood"
	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/internal/tile"
	"github.com/barrioguide/venue-cli/internal/venue"
	"github.com/barrioguide/venue-cli/pkg/places"
)

// Run modes. Incremental skips re-enrichment for venues that already carry
// secondary data, saving budget on repeat runs.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Runner executes sync runs for one city.
type Runner struct {
	store    store.Store
	searcher *discovery.Searcher
	enricher *enrich.Enricher
	resolver *neighborhood.Resolver
	merger   *Merger
	workers  int
}

// NewRunner wires the pipeline stages together. workers bounds how many
// tile × category units run concurrently.
func NewRunner(st store.Store, searcher *discovery.Searcher, enricher *enrich.Enricher, resolver *neighborhood.Resolver, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		store:    st,
		searcher: searcher,
		enricher: enricher,
		resolver: resolver,
		merger:   NewMerger(st),
		workers:  workers,
	}
}

// unit is one independently schedulable tile × category search.
type unit struct {
	category string
	tile     tile.Tile
}

// Sync runs the full pipeline for a city and records the run with its
// summary. Per-candidate failures are logged and counted, never fatal; the
// only errors that abort a run are store-level failures recording it.
func (r *Runner) Sync(ctx context.Context, cityID string, city config.CityConfig, categories []string, mode string) (*store.RunSummary, error) {
	run := &store.RunRecord{
		ID:        uuid.New().String(),
		City:      cityID,
		Mode:      mode,
		Status:    store.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: record run")
	}

	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("city", cityID),
		zap.String("mode", mode),
	)

	tiles := tile.Grid(city.CenterLat, city.CenterLng, city.RadiusKM, city.GridRows, city.GridCols)
	units := make([]unit, 0, len(tiles)*len(categories))
	for _, category := range categories {
		for _, t := range tiles {
			units = append(units, unit{category: category, tile: t})
		}
	}
	log.Info("sync started",
		zap.Int("tiles", len(tiles)),
		zap.Int("categories", len(categories)),
		zap.Int("workers", r.workers),
	)

	var (
		mu      sync.Mutex
		summary store.RunSummary
		seen    = map[string]bool{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, u := range units {
		g.Go(func() error {
			candidates, stats, err := r.searcher.Discover(gctx, cityID, city, u.category, u.tile)

			mu.Lock()
			summary.Found += stats.Found
			summary.Admitted += stats.Admitted
			mu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if eris.Is(err, places.ErrUnauthorized) {
					// A rejected credential fails every remaining unit the
					// same way; abort instead of burning a call per tile.
					return eris.Wrap(err, "pipeline: primary credential rejected")
				}
				log.Warn("tile discovery failed",
					zap.String("category", u.category),
					zap.Int("row", u.tile.Row),
					zap.Int("col", u.tile.Col),
					zap.Error(err),
				)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}

			for _, cand := range candidates {
				// Overlapping tiles surface the same place; first worker wins.
				mu.Lock()
				dup := seen[cand.PlaceID]
				seen[cand.PlaceID] = true
				mu.Unlock()
				if dup {
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					continue
				}

				outcome := r.process(gctx, cand, mode)

				mu.Lock()
				switch outcome {
				case outcomeSaved:
					summary.Saved++
				case outcomeSavedEnriched:
					summary.Saved++
					summary.Enriched++
				case outcomeFailed:
					summary.Failed++
				}
				mu.Unlock()

				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
			return nil
		})
	}

	runErr := g.Wait()

	budget := r.enricher.Budget()
	summary.BudgetCalls = budget.Calls()
	summary.BudgetLimited = budget.Limited()

	status := store.RunStatusComplete
	if runErr != nil {
		status = store.RunStatusFailed
	}
	if err := r.store.CompleteRun(ctx, run.ID, status, &summary); err != nil {
		log.Warn("failed to record run summary", zap.Error(err))
	}

	log.Info("sync finished",
		zap.Int("found", summary.Found),
		zap.Int("admitted", summary.Admitted),
		zap.Int("enriched", summary.Enriched),
		zap.Int("saved", summary.Saved),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("budget_calls", summary.BudgetCalls),
		zap.Bool("budget_limited", summary.BudgetLimited),
	)

	if runErr != nil {
		return &summary, eris.Wrap(runErr, "pipeline: sync")
	}
	return &summary, nil
}

type outcome int

const (
	outcomeSaved outcome = iota
	outcomeSavedEnriched
	outcomeFailed
)

// process takes one admitted candidate through enrichment, neighborhood
// resolution, and merge.
func (r *Runner) process(ctx context.Context, cand venue.Candidate, mode string) outcome {
	log := zap.L().With(zap.String("place_id", cand.PlaceID), zap.String("name", cand.Name))

	skipEnrich := false
	if mode == ModeIncremental {
		existing, err := r.store.FindByProviderID(ctx, cand.PlaceID)
		if err != nil {
			log.Warn("incremental lookup failed", zap.Error(err))
		} else if existing != nil && existing.HasSecondaryData {
			skipEnrich = true
		}
	}

	var match *venue.SecondaryMatch
	if !skipEnrich {
		var err error
		match, err = r.enricher.Enrich(ctx, cand)
		if err != nil {
			// Enrichment failure degrades the candidate to unverified, it
			// does not drop it.
			log.Warn("enrichment failed", zap.Error(err))
			match = nil
		}
	}

	hood := r.resolver.Resolve(ctx, cand, match)

	if _, _, err := r.merger.Merge(ctx, cand, match, hood); err != nil {
		log.Warn("merge failed", zap.Error(err))
		return outcomeFailed
	}
	if match != nil {
		return outcomeSavedEnriched
	}
	return outcomeSaved
}
