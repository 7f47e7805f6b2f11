// Package places provides a client for the primary discovery provider's
// Places API (text search with a circular location bias and pagination).
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/barrioguide/venue-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// ErrUnauthorized reports a rejected credential. Not transient: every further
// call against the same key fails the same way, so the caller should abort
// the run rather than spend a doomed call per tile.
var ErrUnauthorized = eris.New("places: unauthorized")

// fieldMask limits the response to the fields the discovery pipeline reads.
const fieldMask = "places.id,places.displayName,places.location,places.rating," +
	"places.userRatingCount,places.formattedAddress,places.addressComponents," +
	"places.types,nextPageToken"

// Client performs Places API operations.
type Client interface {
	SearchNearby(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is a text search restricted to a circular area.
type SearchRequest struct {
	TextQuery    string  `json:"textQuery"`
	IncludedType string  `json:"includedType,omitempty"`
	Lat          float64 `json:"-"`
	Lng          float64 `json:"-"`
	RadiusM      float64 `json:"-"`
	PageToken    string  `json:"pageToken,omitempty"`
}

// SearchResponse is the response from Places Text Search.
type SearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                string             `json:"id"`
	DisplayName       DisplayName        `json:"displayName"`
	Location          LatLng             `json:"location"`
	Rating            float64            `json:"rating"`
	UserRatingCount   int                `json:"userRatingCount"`
	FormattedAddress  string             `json:"formattedAddress"`
	AddressComponents []AddressComponent `json:"addressComponents"`
	Types             []string           `json:"types"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddressComponent is one structured address component.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchBody struct {
	TextQuery           string        `json:"textQuery"`
	IncludedType        string        `json:"includedType,omitempty"`
	LocationBias        *locationBias `json:"locationBias,omitempty"`
	PageToken           string        `json:"pageToken,omitempty"`
	RankPreference      string        `json:"rankPreference,omitempty"`
	MaxResultCount      int           `json:"maxResultCount,omitempty"`
	LanguageCode        string        `json:"languageCode,omitempty"`
	MinRating           float64       `json:"minRating,omitempty"`
	StrictTypeFiltering bool          `json:"strictTypeFiltering,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c *httpClient) SearchNearby(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body := searchBody{
		TextQuery:    req.TextQuery,
		IncludedType: req.IncludedType,
		PageToken:    req.PageToken,
	}
	if req.RadiusM > 0 {
		body.LocationBias = &locationBias{Circle: circle{
			Center: LatLng{Latitude: req.Lat, Longitude: req.Lng},
			Radius: req.RadiusM,
		}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	return &result, nil
}
