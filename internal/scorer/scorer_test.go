package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barrioguide/venue-cli/internal/venue"
)

func intPtr(i int) *int { return &i }

func TestScoreHiddenGemScenario(t *testing.T) {
	v := venue.Venue{Rating: 9.0, RatingCount: intPtr(40), HasSecondaryData: true}

	score, tier := Score(v)
	assert.Equal(t, venue.TierHiddenGem, tier)

	// Penalty reduces the score relative to the unpenalized raw value.
	cf := 0.3 + 0.7*math.Log10(41)/math.Log10(501)
	raw := (9.0 / 10) * 85 * cf
	assert.Equal(t, int(math.Round(raw*hiddenGemPenalty)), score)
	assert.Less(t, score, int(math.Round(raw)))
}

func TestScoreLocalFavoriteScenario(t *testing.T) {
	v := venue.Venue{Rating: 8.3, RatingCount: intPtr(120), HasSecondaryData: true}
	_, tier := Score(v)
	assert.Equal(t, venue.TierLocalFavorite, tier)
}

func TestScoreTiersRequireSecondaryData(t *testing.T) {
	v := venue.Venue{Rating: 9.5, RatingCount: intPtr(30)}
	_, tier := Score(v)
	assert.Equal(t, venue.TierNone, tier)
}

func TestScoreUnverifiedCap(t *testing.T) {
	v := venue.Venue{Rating: 10, RatingCount: intPtr(500)}
	score, _ := Score(v)
	assert.Equal(t, capNoSecondary, score, "unverified venues cannot reach the verified range")

	v.HasSecondaryData = true
	score, _ = Score(v)
	assert.Greater(t, score, capNoSecondary)
}

func TestScoreZeroReviewsFloor(t *testing.T) {
	v := venue.Venue{Rating: 8.0, HasSecondaryData: true}
	score, tier := Score(v)
	assert.Equal(t, venue.TierNone, tier, "zero reviews is not a hidden gem")
	assert.Equal(t, int(math.Round(0.8*85*0.3)), score)
}

func TestScoreFeaturedBonus(t *testing.T) {
	base := venue.Venue{Rating: 7.0, RatingCount: intPtr(100), HasSecondaryData: true}
	featured := base
	featured.Featured = true

	baseScore, _ := Score(base)
	featuredScore, _ := Score(featured)
	assert.Equal(t, baseScore+featuredBonus, featuredScore)
}

func TestScoreClampsInputs(t *testing.T) {
	v := venue.Venue{Rating: 14.2, RatingCount: intPtr(100000), HasSecondaryData: true}
	score, _ := Score(v)
	assert.LessOrEqual(t, score, 100)

	v = venue.Venue{Rating: -3, RatingCount: intPtr(-10), HasSecondaryData: true}
	score, tier := Score(v)
	assert.GreaterOrEqual(t, score, 0)
	assert.Equal(t, venue.TierNone, tier)
}

func TestScoreBounds(t *testing.T) {
	for _, v := range []venue.Venue{
		{Rating: 0},
		{Rating: 10, RatingCount: intPtr(500), HasSecondaryData: true, Featured: true},
		{Rating: 8.9, RatingCount: intPtr(1), HasSecondaryData: true},
		{Rating: 5.5, HasSecondaryData: false, Featured: true},
	} {
		score, _ := Score(v)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		if !v.HasSecondaryData {
			assert.LessOrEqual(t, score, capNoSecondary)
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	v := venue.Venue{Rating: 8.7, RatingCount: intPtr(33), HasSecondaryData: true}
	s1, t1 := Score(v)
	s2, t2 := Score(v)
	assert.Equal(t, s1, s2)
	assert.Equal(t, t1, t2)
}

func TestTierBoundaries(t *testing.T) {
	// Exactly 50 reviews tips from hidden gem territory to local favorite.
	_, tier := Score(venue.Venue{Rating: 8.5, RatingCount: intPtr(49), HasSecondaryData: true})
	assert.Equal(t, venue.TierHiddenGem, tier)

	_, tier = Score(venue.Venue{Rating: 8.5, RatingCount: intPtr(50), HasSecondaryData: true})
	assert.Equal(t, venue.TierLocalFavorite, tier)

	_, tier = Score(venue.Venue{Rating: 8.1, RatingCount: intPtr(500), HasSecondaryData: true})
	assert.Equal(t, venue.TierNone, tier)
}
