package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/store"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadBoundarySet builds the neighborhood boundary set for a city. Persisted
// boundaries win; a configured boundary file is the fallback for cities that
// were never imported. Returns nil when neither source exists, which the
// resolver treats as "no polygon stage".
func loadBoundarySet(ctx context.Context, st store.Store, cityID string, city config.CityConfig) *geo.BoundarySet {
	rows, err := st.LoadBoundaries(ctx, cityID)
	if err != nil {
		zap.L().Warn("boundary load failed", zap.String("city", cityID), zap.Error(err))
	} else if len(rows) > 0 {
		set, err := geo.BuildSet(rows)
		if err != nil {
			zap.L().Warn("stored boundaries unusable", zap.String("city", cityID), zap.Error(err))
		} else {
			return set
		}
	}

	if city.BoundaryFile == "" {
		return nil
	}
	set, err := geo.LoadGeoJSON(city.BoundaryFile)
	if err != nil {
		zap.L().Warn("boundary file unusable",
			zap.String("city", cityID),
			zap.String("file", city.BoundaryFile),
			zap.Error(err),
		)
		return nil
	}
	return set
}
