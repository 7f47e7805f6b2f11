package pipeline

import (
	"context"
	"sync"

	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/internal/venue"
	"github.com/barrioguide/venue-cli/pkg/foursquare"
	"github.com/barrioguide/venue-cli/pkg/places"
)

// memStore is an in-memory store.Store used to exercise the pipeline without
// a database.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	venues  map[int64]*venue.Venue
	runs    map[string]*store.RunRecord
	upserts int
}

func newMemStore() *memStore {
	return &memStore{
		venues: map[int64]*venue.Venue{},
		runs:   map[string]*store.RunRecord{},
	}
}

func (m *memStore) FindByProviderID(_ context.Context, providerID string) (*venue.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.venues {
		if v.PrimaryID == providerID {
			clone := *v
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByCanonicalKey(_ context.Context, key, city string) (*venue.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.venues {
		if v.CanonicalKey == key && v.City == city {
			clone := *v
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) Upsert(_ context.Context, v *venue.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if v.ID == 0 {
		m.nextID++
		v.ID = m.nextID
	}
	clone := *v
	m.venues[v.ID] = &clone
	return nil
}

func (m *memStore) ListByCity(_ context.Context, city string) ([]venue.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []venue.Venue
	for id := int64(1); id <= m.nextID; id++ {
		if v, ok := m.venues[id]; ok && v.City == city {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (m *memStore) UpdateScore(_ context.Context, id int64, score int, tier venue.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil
	}
	v.QualityScore = &score
	v.Tier = tier
	return nil
}

func (m *memStore) CreateRun(_ context.Context, run *store.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *memStore) CompleteRun(_ context.Context, runID, status string, summary *store.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		run.Status = status
		run.Summary = summary
	}
	return nil
}

func (m *memStore) SaveBoundaries(context.Context, string, []geo.NamedGeometry) error { return nil }
func (m *memStore) LoadBoundaries(context.Context, string) ([]geo.NamedGeometry, error) {
	return nil, nil
}
func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func (m *memStore) all() []venue.Venue {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []venue.Venue
	for id := int64(1); id <= m.nextID; id++ {
		if v, ok := m.venues[id]; ok {
			result = append(result, *v)
		}
	}
	return result
}

// mockPlaces returns the same result set, or the same error, for every tile
// search.
type mockPlaces struct {
	mu     sync.Mutex
	places []places.Place
	err    error
	calls  int
}

func (m *mockPlaces) SearchNearby(_ context.Context, _ places.SearchRequest) (*places.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &places.SearchResponse{Places: m.places}, nil
}

func (m *mockPlaces) searchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockFoursquare returns a fixed match and details keyed by search query.
type mockFoursquare struct {
	mu          sync.Mutex
	matches     map[string][]foursquare.Match
	details     map[string]*foursquare.PlaceDetails
	searchCalls int
	detailCalls int
}

func (m *mockFoursquare) Search(_ context.Context, query string, _, _ float64) ([]foursquare.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	return m.matches[query], nil
}

func (m *mockFoursquare) Details(_ context.Context, id string) (*foursquare.PlaceDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailCalls++
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return &foursquare.PlaceDetails{FsqID: id}, nil
}

func (m *mockFoursquare) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls + m.detailCalls
}
