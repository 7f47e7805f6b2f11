// Package discovery queries the primary provider per category per tile,
// paginates, deduplicates by provider ID, and applies the rating/review
// admission gate.
package discovery

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/resilience"
	"github.com/barrioguide/venue-cli/internal/tile"
	"github.com/barrioguide/venue-cli/internal/venue"
	"github.com/barrioguide/venue-cli/pkg/places"
)

// defaultMaxPagesPerTile bounds pagination per tile. This is a deliberate
// cost/completeness tradeoff, not a provider limitation: a saturated tile is
// cheaper to re-cover with a finer grid than with deep pagination.
const defaultMaxPagesPerTile = 3

// Stats summarizes one Discover call.
type Stats struct {
	Found    int
	Admitted int
	Pages    int
}

// Searcher discovers venue candidates within city tiles.
type Searcher struct {
	client   places.Client
	limiter  *rate.Limiter
	gates    config.GateConfig
	maxPages int
}

// NewSearcher creates a Searcher. rateLimit is requests per second against
// the primary provider, shared across all tiles and categories.
func NewSearcher(client places.Client, gates config.GateConfig, rateLimit float64, maxPages int) *Searcher {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPagesPerTile
	}
	return &Searcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), 1),
		gates:    gates,
		maxPages: maxPages,
	}
}

// Discover searches one category within one tile, following continuation
// tokens up to the page cap, deduplicating by provider ID, and applying the
// admission gate for the category/city pair. A malformed or empty response
// is treated as zero results.
func (s *Searcher) Discover(ctx context.Context, cityID string, city config.CityConfig, category string, t tile.Tile) ([]venue.Candidate, Stats, error) {
	log := zap.L().With(
		zap.String("city", cityID),
		zap.String("category", category),
		zap.Int("tile_row", t.Row),
		zap.Int("tile_col", t.Col),
	)

	gate := s.gates.Resolve(category, cityID)

	var (
		stats     Stats
		admitted  []venue.Candidate
		seen      = make(map[string]bool)
		pageToken string
	)

	for page := 0; page < s.maxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return admitted, stats, err
		}

		req := places.SearchRequest{
			TextQuery: category,
			Lat:       t.Lat,
			Lng:       t.Lng,
			RadiusM:   t.RadiusM,
			PageToken: pageToken,
		}

		resp, err := resilience.DoVal(ctx, retryConfig(category), func(ctx context.Context) (*places.SearchResponse, error) {
			return s.client.SearchNearby(ctx, req)
		})
		stats.Pages++
		if err != nil {
			return admitted, stats, err
		}

		for _, p := range resp.Places {
			if p.ID == "" || seen[p.ID] {
				// A candidate appearing on two pages must not be gated twice.
				continue
			}
			seen[p.ID] = true
			stats.Found++

			cand := toCandidate(p, category, city.Name)
			if !gate.Admit(cand.Rating, cand.RatingCount) {
				continue
			}
			admitted = append(admitted, cand)
			stats.Admitted++
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	log.Debug("tile searched",
		zap.Int("found", stats.Found),
		zap.Int("admitted", stats.Admitted),
		zap.Int("pages", stats.Pages),
	)

	return admitted, stats, nil
}

func retryConfig(category string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("places", "search "+category)
	return cfg
}

// toCandidate maps a provider place to a transient candidate, normalizing
// the rating from the provider's 0-5 scale to 0-10.
func toCandidate(p places.Place, category, cityName string) venue.Candidate {
	comps := make([]venue.AddressComponent, 0, len(p.AddressComponents))
	for _, ac := range p.AddressComponents {
		comps = append(comps, venue.AddressComponent{
			LongText:  ac.LongText,
			ShortText: ac.ShortText,
			Types:     ac.Types,
		})
	}

	return venue.Candidate{
		PlaceID:           p.ID,
		Name:              p.DisplayName.Text,
		Latitude:          p.Location.Latitude,
		Longitude:         p.Location.Longitude,
		Rating:            p.Rating * 2,
		RatingCount:       p.UserRatingCount,
		FormattedAddress:  p.FormattedAddress,
		AddressComponents: comps,
		Types:             p.Types,
		Category:          category,
		City:              cityName,
	}
}
