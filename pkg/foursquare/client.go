// Package foursquare provides a client for the secondary enrichment
// provider's place search and detail endpoints.
package foursquare

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

const defaultBaseURL = "https://api.foursquare.com/v3"

// Sentinel errors for credential and quota failures. Neither is transient:
// once seen, further calls against the same key are guaranteed to fail, and
// the caller is expected to stop issuing them for the rest of the run.
var (
	ErrUnauthorized  = eris.New("foursquare: unauthorized")
	ErrQuotaExceeded = eris.New("foursquare: quota exceeded")
)

// Client performs place search and detail lookups.
type Client interface {
	Search(ctx context.Context, query string, lat, lng float64) ([]Match, error)
	Details(ctx context.Context, id string) (*PlaceDetails, error)
}

// Match is one ranked search result.
type Match struct {
	FsqID    string `json:"fsq_id"`
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// PlaceDetails is the full detail record for a place.
type PlaceDetails struct {
	FsqID       string     `json:"fsq_id"`
	Name        string     `json:"name"`
	Location    Location   `json:"location"`
	Rating      float64    `json:"rating"` // 0-10
	Stats       Stats      `json:"stats"`
	Price       int        `json:"price"`
	Tel         string     `json:"tel"`
	Website     string     `json:"website"`
	Hours       Hours      `json:"hours"`
	Description string     `json:"description"`
	Categories  []Category `json:"categories"`
	Photos      []Photo    `json:"photos"`
}

// Location holds the address fields of a place.
type Location struct {
	Address          string `json:"address"`
	FormattedAddress string `json:"formatted_address"`
	Locality         string `json:"locality"`
	Neighborhood     string `json:"neighborhood"`
	Region           string `json:"region"`
	Postcode         string `json:"postcode"`
	Country          string `json:"country"`
}

// Stats holds aggregate engagement counters.
type Stats struct {
	TotalRatings int `json:"total_ratings"`
}

// Hours holds the display form of opening hours.
type Hours struct {
	Display string `json:"display"`
	OpenNow bool   `json:"open_now"`
}

// Category is one entry of the provider's category taxonomy.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Photo is one photo reference.
type Photo struct {
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// URL returns the assembled photo URL at the given size (e.g. "original").
func (p Photo) URL(size string) string {
	return p.Prefix + size + p.Suffix
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

// NewClient creates a client for the enrichment provider API.
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

type searchResponse struct {
	Results []Match `json:"results"`
}

func (c *httpClient) Search(ctx context.Context, query string, lat, lng float64) ([]Match, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("ll", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", "120")
	params.Set("limit", "5")

	var result searchResponse
	if err := c.get(ctx, "/places/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

const detailFields = "fsq_id,name,location,rating,stats,price,tel,website,hours,description,categories,photos"

func (c *httpClient) Details(ctx context.Context, id string) (*PlaceDetails, error) {
	if id == "" {
		return nil, eris.New("foursquare: empty place id")
	}

	params := url.Values{}
	params.Set("fields", detailFields)

	var result PlaceDetails
	if err := c.get(ctx, "/places/"+url.PathEscape(id)+"?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "foursquare: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "foursquare: read response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		// 429 from this provider means the key's quota is spent, not a burst
		// limit; treat it as a run-level stop signal.
		return ErrQuotaExceeded
	case resp.StatusCode != http.StatusOK:
		err := eris.Errorf("foursquare: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "foursquare: unmarshal response")
	}
	return nil
}
