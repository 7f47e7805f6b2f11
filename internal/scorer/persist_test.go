package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/internal/venue"
)

// fakeStore implements store.Store with just enough behavior for the scoring
// pass; the unused methods are inert.
type fakeStore struct {
	venues      []venue.Venue
	listErr     error
	updateErr   map[int64]error
	scores      map[int64]int
	tiers       map[int64]venue.Tier
	updateCalls int
}

func (f *fakeStore) ListByCity(_ context.Context, _ string) ([]venue.Venue, error) {
	return f.venues, f.listErr
}

func (f *fakeStore) UpdateScore(_ context.Context, id int64, score int, tier venue.Tier) error {
	f.updateCalls++
	if err := f.updateErr[id]; err != nil {
		return err
	}
	if f.scores == nil {
		f.scores = map[int64]int{}
		f.tiers = map[int64]venue.Tier{}
	}
	f.scores[id] = score
	f.tiers[id] = tier
	return nil
}

func (f *fakeStore) FindByProviderID(context.Context, string) (*venue.Venue, error) {
	return nil, nil
}
func (f *fakeStore) FindByCanonicalKey(context.Context, string, string) (*venue.Venue, error) {
	return nil, nil
}
func (f *fakeStore) Upsert(context.Context, *venue.Venue) error               { return nil }
func (f *fakeStore) CreateRun(context.Context, *store.RunRecord) error        { return nil }
func (f *fakeStore) CompleteRun(context.Context, string, string, *store.RunSummary) error {
	return nil
}
func (f *fakeStore) SaveBoundaries(context.Context, string, []geo.NamedGeometry) error { return nil }
func (f *fakeStore) LoadBoundaries(context.Context, string) ([]geo.NamedGeometry, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func TestScoreCityPersistsAllVenues(t *testing.T) {
	st := &fakeStore{venues: []venue.Venue{
		{ID: 1, Rating: 9.0, RatingCount: intPtr(40), HasSecondaryData: true},
		{ID: 2, Rating: 8.3, RatingCount: intPtr(120), HasSecondaryData: true},
		{ID: 3, Rating: 7.0},
	}}

	scored, err := ScoreCity(context.Background(), st, "buenos-aires")
	require.NoError(t, err)
	assert.Equal(t, 3, scored)
	assert.Equal(t, venue.TierHiddenGem, st.tiers[1])
	assert.Equal(t, venue.TierLocalFavorite, st.tiers[2])
	assert.Equal(t, venue.TierNone, st.tiers[3])
	assert.LessOrEqual(t, st.scores[3], capNoSecondary)
}

func TestScoreCitySingleFailureDoesNotAbort(t *testing.T) {
	st := &fakeStore{
		venues: []venue.Venue{
			{ID: 1, Rating: 8.0},
			{ID: 2, Rating: 8.0},
		},
		updateErr: map[int64]error{1: errors.New("disk full")},
	}

	scored, err := ScoreCity(context.Background(), st, "buenos-aires")
	require.NoError(t, err)
	assert.Equal(t, 1, scored)
	assert.Equal(t, 2, st.updateCalls)
}

func TestScoreCityListFailure(t *testing.T) {
	st := &fakeStore{listErr: errors.New("connection refused")}
	_, err := ScoreCity(context.Background(), st, "buenos-aires")
	assert.Error(t, err)
}
