package scorer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/store"
)

// ScoreCity recomputes and persists scores for every venue in a city.
// The pass is idempotent; re-running it over an unchanged catalog writes the
// same values. Returns the number of venues scored.
func ScoreCity(ctx context.Context, st store.Store, city string) (int, error) {
	venues, err := st.ListByCity(ctx, city)
	if err != nil {
		return 0, eris.Wrapf(err, "scorer: list venues for %s", city)
	}

	log := zap.L().With(zap.String("city", city))
	var scored int
	for _, v := range venues {
		score, tier := Score(v)
		if err := st.UpdateScore(ctx, v.ID, score, tier); err != nil {
			log.Warn("failed to persist score",
				zap.Int64("venue_id", v.ID),
				zap.Error(err),
			)
			continue
		}
		scored++
	}

	log.Info("scoring pass complete",
		zap.Int("venues", len(venues)),
		zap.Int("scored", scored),
	)
	return scored, nil
}
