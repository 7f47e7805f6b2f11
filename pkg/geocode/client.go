// Package geocode provides a reverse geocoding client, used only as a
// neighborhood-resolution fallback.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/barrioguide/venue-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode"

// Client converts coordinates to structured address components.
type Client interface {
	Reverse(ctx context.Context, lat, lng float64) (*Result, error)
}

// Result is one reverse-geocoded address.
type Result struct {
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// AddressComponent is one structured component of the geocoder response.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
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

// NewClient creates a reverse geocoding client.
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

type reverseResponse struct {
	Status  string   `json:"status"`
	Results []Result `json:"results"`
}

// Reverse returns the best-ranked address for a coordinate pair, or nil when
// the geocoder has nothing for the point.
func (c *httpClient) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result reverseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "geocode: unmarshal response")
	}

	if result.Status == "ZERO_RESULTS" || len(result.Results) == 0 {
		return nil, nil
	}
	if result.Status != "OK" {
		return nil, eris.Errorf("geocode: status %s", result.Status)
	}

	return &result.Results[0], nil
}
