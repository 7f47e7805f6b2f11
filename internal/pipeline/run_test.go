package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/discovery"
	"github.com/barrioguide/venue-cli/internal/enrich"
	"github.com/barrioguide/venue-cli/internal/neighborhood"
	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/pkg/foursquare"
	"github.com/barrioguide/venue-cli/pkg/places"
)

func testCity() config.CityConfig {
	return config.CityConfig{
		Name:          "Buenos Aires",
		CenterLat:     -34.6,
		CenterLng:     -58.4,
		RadiusKM:      5,
		GridRows:      2,
		GridCols:      2,
		Neighborhoods: []string{"San Telmo", "Palermo"},
	}
}

func testGates() config.GateConfig {
	return config.GateConfig{Default: config.Gate{MinRating: 7.0, MinReviews: 30}}
}

func testPlace(id, name string) places.Place {
	return places.Place{
		ID:               id,
		DisplayName:      places.DisplayName{Text: name},
		Location:         places.LatLng{Latitude: -34.62, Longitude: -58.37},
		Rating:           4.5,
		UserRatingCount:  100,
		FormattedAddress: "Defensa 1344 Local " + id + ", San Telmo, Buenos Aires",
	}
}

type fixture struct {
	store      *memStore
	placesMock *mockPlaces
	fsqMock    *mockFoursquare
	runner     *Runner
}

func newFixture(t *testing.T, budget int, placesResults []places.Place) *fixture {
	t.Helper()

	placesMock := &mockPlaces{places: placesResults}
	fsqMock := &mockFoursquare{
		matches: map[string][]foursquare.Match{
			"La Poesía": {{FsqID: "fsq-poesia", Name: "La Poesía"}},
		},
		details: map[string]*foursquare.PlaceDetails{
			"fsq-poesia": {
				FsqID:  "fsq-poesia",
				Name:   "La Poesía",
				Rating: 9.1,
				Stats:  foursquare.Stats{TotalRatings: 412},
				Tel:    "555-1234",
			},
		},
	}

	st := newMemStore()
	searcher := discovery.NewSearcher(placesMock, testGates(), 1000, 3)
	enricher := enrich.NewEnricher(fsqMock, enrich.NewBudget(budget), 1000)
	resolver := neighborhood.NewResolver(testCity(), nil, nil)

	return &fixture{
		store:      st,
		placesMock: placesMock,
		fsqMock:    fsqMock,
		runner:     NewRunner(st, searcher, enricher, resolver, 4),
	}
}

func TestSyncEndToEnd(t *testing.T) {
	f := newFixture(t, 0, []places.Place{
		testPlace("gp-poesia", "La Poesía"),
		testPlace("gp-bar", "Bar Sur"),
	})

	summary, err := f.runner.Sync(context.Background(), "buenos-aires", testCity(), []string{"coffee shop"}, ModeFull)
	require.NoError(t, err)

	// Four tiles surface the same two places; each is persisted once.
	venues := f.store.all()
	require.Len(t, venues, 2)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 6, summary.Skipped, "repeat sightings across tiles are deduplicated")
	assert.Equal(t, 8, summary.Found)
	assert.Equal(t, 0, summary.Failed)

	var poesia, bar int
	for i, v := range venues {
		switch v.PrimaryID {
		case "gp-poesia":
			poesia = i
		case "gp-bar":
			bar = i
		}
	}
	assert.True(t, venues[poesia].HasSecondaryData)
	require.NotNil(t, venues[poesia].Phone)
	assert.Equal(t, "555-1234", *venues[poesia].Phone)
	assert.InDelta(t, 9.1, venues[poesia].Rating, 1e-9)

	// No secondary match for Bar Sur's name; it stays unverified at the
	// documented baseline.
	assert.False(t, venues[bar].HasSecondaryData)
	assert.InDelta(t, defaultUnverifiedRating, venues[bar].Rating, 1e-9)

	assert.Equal(t, 1, summary.Enriched)

	run := singleRun(t, f.store)
	assert.Equal(t, "buenos-aires", run.City)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, summary.Saved, run.Summary.Saved)
}

func TestSyncIdempotence(t *testing.T) {
	f := newFixture(t, 0, []places.Place{testPlace("gp-poesia", "La Poesía")})
	ctx := context.Background()

	_, err := f.runner.Sync(ctx, "buenos-aires", testCity(), []string{"coffee shop"}, ModeFull)
	require.NoError(t, err)
	first := f.store.all()

	_, err = f.runner.Sync(ctx, "buenos-aires", testCity(), []string{"coffee shop"}, ModeFull)
	require.NoError(t, err)
	second := f.store.all()

	require.Len(t, second, len(first), "no duplicate venues on re-run")
	assert.Equal(t, first, second, "identical provider responses cause no field churn")
}

func TestSyncBudgetEnforcement(t *testing.T) {
	var results []places.Place
	for _, p := range []string{"a", "b", "c", "d", "e", "f"} {
		results = append(results, testPlace("gp-"+p, "Venue "+p))
	}
	f := newFixture(t, 4, results)

	summary, err := f.runner.Sync(context.Background(), "buenos-aires", testCity(), []string{"bar"}, ModeFull)
	require.NoError(t, err)

	assert.LessOrEqual(t, f.fsqMock.totalCalls(), 4, "budget caps secondary provider calls")
	assert.True(t, summary.BudgetLimited)
	assert.Equal(t, 6, summary.Saved, "budget exhaustion never drops candidates")
}

func TestSyncIncrementalSkipsReEnrichment(t *testing.T) {
	f := newFixture(t, 0, []places.Place{testPlace("gp-poesia", "La Poesía")})
	ctx := context.Background()

	_, err := f.runner.Sync(ctx, "buenos-aires", testCity(), []string{"coffee shop"}, ModeFull)
	require.NoError(t, err)
	callsAfterFull := f.fsqMock.totalCalls()
	assert.Equal(t, 2, callsAfterFull)

	summary, err := f.runner.Sync(ctx, "buenos-aires", testCity(), []string{"coffee shop"}, ModeIncremental)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFull, f.fsqMock.totalCalls(), "incremental re-runs spend no budget on verified venues")
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 0, summary.Enriched)

	// Prior enrichment is retained through the no-match merge.
	venues := f.store.all()
	require.Len(t, venues, 1)
	assert.True(t, venues[0].HasSecondaryData)
}

func TestSyncAbortsOnPrimaryAuthFailure(t *testing.T) {
	f := newFixture(t, 0, nil)
	f.placesMock.err = places.ErrUnauthorized

	// One worker makes the abort order deterministic: the first tile sees
	// the rejected key and the remaining tiles must never be searched.
	runner := NewRunner(f.store,
		discovery.NewSearcher(f.placesMock, testGates(), 1000, 3),
		enrich.NewEnricher(f.fsqMock, enrich.NewBudget(0), 1000),
		neighborhood.NewResolver(testCity(), nil, nil),
		1,
	)

	summary, err := runner.Sync(context.Background(), "buenos-aires", testCity(), []string{"coffee shop"}, ModeFull)
	require.Error(t, err)
	assert.True(t, eris.Is(err, places.ErrUnauthorized))

	assert.Equal(t, 1, f.placesMock.searchCalls(), "no doomed call per remaining tile")
	assert.Empty(t, f.store.all())
	assert.Equal(t, 0, summary.Saved)

	run := singleRun(t, f.store)
	assert.Equal(t, store.RunStatusFailed, run.Status)
}

func TestSyncOrderIndependence(t *testing.T) {
	run := func(categories []string) []string {
		f := newFixture(t, 0, []places.Place{
			testPlace("gp-poesia", "La Poesía"),
			testPlace("gp-bar", "Bar Sur"),
		})
		_, err := f.runner.Sync(context.Background(), "buenos-aires", testCity(), categories, ModeFull)
		require.NoError(t, err)

		var keys []string
		for _, v := range f.store.all() {
			keys = append(keys, v.CanonicalKey)
		}
		return keys
	}

	forward := run([]string{"coffee shop", "bar"})
	reversed := run([]string{"bar", "coffee shop"})
	assert.ElementsMatch(t, forward, reversed, "category order does not change the resolved catalog")
}

func singleRun(t *testing.T, st *memStore) *store.RunRecord {
	t.Helper()
	st.mu.Lock()
	defer st.mu.Unlock()
	require.Len(t, st.runs, 1)
	for _, r := range st.runs {
		clone := *r
		return &clone
	}
	return nil
}
