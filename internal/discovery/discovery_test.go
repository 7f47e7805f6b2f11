package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/tile"
	"github.com/barrioguide/venue-cli/pkg/places"
)

var testCity = config.CityConfig{Name: "Buenos Aires"}

func testGates() config.GateConfig {
	return config.GateConfig{Default: config.Gate{MinRating: 7.0, MinReviews: 30}}
}

func testTile() tile.Tile {
	return tile.Tile{Row: 0, Col: 0, Lat: -34.6, Lng: -58.4, RadiusM: 3000}
}

func place(id, name string, rating float64, reviews int) places.Place {
	return places.Place{
		ID:              id,
		DisplayName:     places.DisplayName{Text: name},
		Location:        places.LatLng{Latitude: -34.6, Longitude: -58.4},
		Rating:          rating,
		UserRatingCount: reviews,
	}
}

func TestDiscoverAppliesAdmissionGate(t *testing.T) {
	client := &mockPlacesClient{responses: map[string]*places.SearchResponse{
		"": {Places: []places.Place{
			place("gp-1", "Café Uno", 4.5, 120),  // 9.0, admitted
			place("gp-2", "Café Dos", 3.4, 500),  // 6.8 < 7.0, gated
			place("gp-3", "Café Tres", 4.0, 29),  // 29 < 30 reviews, gated
			place("gp-4", "Café Cuatro", 3.5, 30), // exactly at thresholds
		}},
	}}

	s := NewSearcher(client, testGates(), 1000, 3)
	admitted, stats, err := s.Discover(context.Background(), "buenos-aires", testCity, "coffee shop", testTile())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Found)
	assert.Equal(t, 2, stats.Admitted)
	require.Len(t, admitted, 2)
	assert.Equal(t, "gp-1", admitted[0].PlaceID)
	assert.Equal(t, "gp-4", admitted[1].PlaceID)

	// Rating is normalized to the 0-10 scale.
	assert.InDelta(t, 9.0, admitted[0].Rating, 1e-9)
	assert.Equal(t, "Buenos Aires", admitted[0].City)
	assert.Equal(t, "coffee shop", admitted[0].Category)
}

func TestDiscoverFollowsPagesUpToCap(t *testing.T) {
	client := &mockPlacesClient{responses: map[string]*places.SearchResponse{
		"":   {Places: []places.Place{place("a", "A", 4.5, 100)}, NextPageToken: "p2"},
		"p2": {Places: []places.Place{place("b", "B", 4.5, 100)}, NextPageToken: "p3"},
		"p3": {Places: []places.Place{place("c", "C", 4.5, 100)}, NextPageToken: "p4"},
		"p4": {Places: []places.Place{place("d", "D", 4.5, 100)}},
	}}

	s := NewSearcher(client, testGates(), 1000, 3)
	admitted, stats, err := s.Discover(context.Background(), "buenos-aires", testCity, "bar", testTile())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Pages, "pagination stops at the page cap")
	assert.Len(t, admitted, 3)
}

func TestDiscoverStopsWhenNoContinuation(t *testing.T) {
	client := &mockPlacesClient{responses: map[string]*places.SearchResponse{
		"": {Places: []places.Place{place("a", "A", 4.5, 100)}},
	}}

	s := NewSearcher(client, testGates(), 1000, 3)
	_, stats, err := s.Discover(context.Background(), "buenos-aires", testCity, "bar", testTile())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
}

func TestDiscoverDeduplicatesAcrossPages(t *testing.T) {
	// The same place appearing on two pages must be counted and gated once.
	client := &mockPlacesClient{responses: map[string]*places.SearchResponse{
		"":   {Places: []places.Place{place("dup", "Dup", 4.5, 100)}, NextPageToken: "p2"},
		"p2": {Places: []places.Place{place("dup", "Dup", 4.5, 100)}},
	}}

	s := NewSearcher(client, testGates(), 1000, 3)
	admitted, stats, err := s.Discover(context.Background(), "buenos-aires", testCity, "bar", testTile())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Found)
	assert.Len(t, admitted, 1)
}

func TestDiscoverEmptyResponseIsZeroResults(t *testing.T) {
	client := &mockPlacesClient{}

	s := NewSearcher(client, testGates(), 1000, 3)
	admitted, stats, err := s.Discover(context.Background(), "buenos-aires", testCity, "bar", testTile())
	require.NoError(t, err)
	assert.Empty(t, admitted)
	assert.Equal(t, 0, stats.Found)
}

func TestDiscoverPropagatesProviderError(t *testing.T) {
	client := &mockPlacesClient{err: errors.New("invalid request")}

	s := NewSearcher(client, testGates(), 1000, 3)
	_, _, err := s.Discover(context.Background(), "buenos-aires", testCity, "bar", testTile())
	assert.Error(t, err)
}

func TestDiscoverSendsTileCircle(t *testing.T) {
	client := &mockPlacesClient{}
	s := NewSearcher(client, testGates(), 1000, 3)

	tl := tile.Tile{Lat: -34.55, Lng: -58.45, RadiusM: 2100}
	_, _, err := s.Discover(context.Background(), "buenos-aires", testCity, "parrilla", tl)
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "parrilla", req.TextQuery)
	assert.InDelta(t, -34.55, req.Lat, 1e-9)
	assert.InDelta(t, 2100.0, req.RadiusM, 1e-9)
}

func TestDiscoverPerCityGateOverride(t *testing.T) {
	gates := testGates()
	gates.Cities = map[string]map[string]config.Gate{
		"buenos-aires": {"parrilla": {MinRating: 9.0, MinReviews: 200}},
	}

	client := &mockPlacesClient{responses: map[string]*places.SearchResponse{
		"": {Places: []places.Place{place("gp-1", "Parrilla", 4.2, 150)}}, // 8.4 < 9.0
	}}

	s := NewSearcher(client, gates, 1000, 3)
	admitted, _, err := s.Discover(context.Background(), "buenos-aires", testCity, "parrilla", testTile())
	require.NoError(t, err)
	assert.Empty(t, admitted)
}
