package enrich

import (
	"context"

	"github.com/barrioguide/venue-cli/pkg/foursquare"
)

// mockFoursquareClient implements foursquare.Client for testing.
type mockFoursquareClient struct {
	matches      []foursquare.Match
	searchErr    error
	details      map[string]*foursquare.PlaceDetails
	detailsErr   error
	searchCalls  int
	detailsCalls int
	detailIDs    []string
}

func (m *mockFoursquareClient) Search(_ context.Context, _ string, _, _ float64) ([]foursquare.Match, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.matches, nil
}

func (m *mockFoursquareClient) Details(_ context.Context, id string) (*foursquare.PlaceDetails, error) {
	m.detailsCalls++
	m.detailIDs = append(m.detailIDs, id)
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return &foursquare.PlaceDetails{FsqID: id}, nil
}
