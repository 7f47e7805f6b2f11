// Package scorer computes the 0-100 quality score and tier for persisted
// venues. It runs as a separate, idempotent pass over the catalog, with no
// dependency on discovery-run state.
package scorer

import (
	"math"

	"github.com/barrioguide/venue-cli/internal/venue"
)

const (
	maxRating      = 10.0
	maxReviewCount = 500

	// countFactor floor keeps zero-review venues from scoring zero.
	minCountFactor = 0.3

	// Small-sample discount applied to hidden gems.
	hiddenGemPenalty = 0.9

	featuredBonus = 5

	// Ceiling for venues never verified by the secondary provider, kept
	// below the range a verified venue can reach.
	capNoSecondary = 60
)

// Tier thresholds. A hidden gem is highly rated on a small sample; a local
// favorite is highly rated at volume. Mutually exclusive.
const (
	hiddenGemMinRating     = 8.5
	hiddenGemMaxReviews    = 50
	localFavoriteMinRating = 8.2
	localFavoriteMinCount  = 50
)

// Score returns the quality score and tier for a venue.
func Score(v venue.Venue) (int, venue.Tier) {
	rating := clampF(v.Rating, 0, maxRating)
	count := 0
	if v.RatingCount != nil {
		count = clampI(*v.RatingCount, 0, maxReviewCount)
	}

	countFactor := minCountFactor
	if count > 0 {
		countFactor = minCountFactor + (1-minCountFactor)*math.Log10(float64(count)+1)/math.Log10(maxReviewCount+1)
	}
	raw := (rating / maxRating) * 85 * countFactor

	tier := classify(v.HasSecondaryData, rating, count)
	if tier == venue.TierHiddenGem {
		raw *= hiddenGemPenalty
	}
	if v.Featured {
		raw += featuredBonus
	}

	score := int(math.Round(raw))
	if !v.HasSecondaryData && score > capNoSecondary {
		score = capNoSecondary
	}
	return clampI(score, 0, 100), tier
}

// classify derives the tier. Tiers require secondary verification; an
// unverified rating is not trustworthy enough to label the venue.
func classify(hasSecondary bool, rating float64, count int) venue.Tier {
	if !hasSecondary {
		return venue.TierNone
	}
	switch {
	case rating >= hiddenGemMinRating && count > 0 && count < hiddenGemMaxReviews:
		return venue.TierHiddenGem
	case rating >= localFavoriteMinRating && count >= localFavoriteMinCount:
		return venue.TierLocalFavorite
	default:
		return venue.TierNone
	}
}

func clampF(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
