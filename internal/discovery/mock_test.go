package discovery

import (
	"context"

	"github.com/barrioguide/venue-cli/pkg/places"
)

// mockPlacesClient implements places.Client for testing. Responses are keyed
// by page token ("" for the first page).
type mockPlacesClient struct {
	responses map[string]*places.SearchResponse
	err       error
	errOnCall int // 1-based call index that returns err; 0 = always
	calls     int
	requests  []places.SearchRequest
}

func (m *mockPlacesClient) SearchNearby(_ context.Context, req places.SearchRequest) (*places.SearchResponse, error) {
	m.calls++
	m.requests = append(m.requests, req)
	if m.err != nil && (m.errOnCall == 0 || m.errOnCall == m.calls) {
		return nil, m.err
	}
	if resp, ok := m.responses[req.PageToken]; ok {
		return resp, nil
	}
	return &places.SearchResponse{}, nil
}
