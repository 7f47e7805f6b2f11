// Package enrich matches admitted candidates against the secondary provider
// and fetches structured details, under a global run-scoped call budget.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/barrioguide/venue-cli/internal/venue"
	"github.com/barrioguide/venue-cli/pkg/foursquare"
)

// Enricher looks up a candidate's secondary record. A nil match is a normal,
// expected outcome (no match found, or the run budget is spent), never an
// error condition for downstream stages.
type Enricher struct {
	client  foursquare.Client
	budget  *Budget
	limiter *rate.Limiter
}

// NewEnricher creates an Enricher. rateLimit is requests per second and also
// provides the fixed inter-call delay required on the happy path.
func NewEnricher(client foursquare.Client, budget *Budget, rateLimit float64) *Enricher {
	if rateLimit <= 0 {
		rateLimit = 5
	}
	return &Enricher{
		client:  client,
		budget:  budget,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// Budget exposes the shared budget, for end-of-run reporting.
func (e *Enricher) Budget() *Budget {
	return e.budget
}

// Enrich searches the secondary provider near the candidate's coordinates
// and, when a match is found, fetches its full details. Both steps consume
// the shared budget; once it is limited every subsequent call short-circuits
// to (nil, nil) for the remainder of the run.
func (e *Enricher) Enrich(ctx context.Context, cand venue.Candidate) (*venue.SecondaryMatch, error) {
	if !e.budget.Acquire() {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	matches, err := e.client.Search(ctx, cand.Name, cand.Latitude, cand.Longitude)
	if err != nil {
		return nil, e.classify(err, cand.Name, "search")
	}
	if len(matches) == 0 {
		return nil, nil
	}

	matchID := selectMatch(cand.Name, matches)

	if !e.budget.Acquire() {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	details, err := e.client.Details(ctx, matchID)
	if err != nil {
		return nil, e.classify(err, cand.Name, "details")
	}

	return toMatch(details), nil
}

// classify turns auth/quota failures into the one-way limited transition
// (returning no error) and wraps everything else for the caller to log and
// skip.
func (e *Enricher) classify(err error, name, op string) error {
	if eris.Is(err, foursquare.ErrUnauthorized) || eris.Is(err, foursquare.ErrQuotaExceeded) {
		zap.L().Warn("enrichment disabled for remainder of run",
			zap.String("op", op),
			zap.Error(err),
		)
		e.budget.Limit()
		return nil
	}
	return eris.Wrapf(err, "enrich: %s %q", op, name)
}

// selectMatch picks the first result whose name is a case-insensitive
// substring match in either direction, else the top-ranked result. This is a
// best-effort heuristic: two differently-named venues in one building can
// produce a false positive, corrected manually outside the pipeline.
func selectMatch(name string, matches []foursquare.Match) string {
	needle := strings.ToLower(name)
	for _, m := range matches {
		hay := strings.ToLower(m.Name)
		if hay == "" {
			continue
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return m.FsqID
		}
	}
	return matches[0].FsqID
}

func toMatch(d *foursquare.PlaceDetails) *venue.SecondaryMatch {
	m := &venue.SecondaryMatch{
		ID:           d.FsqID,
		Name:         d.Name,
		Address:      d.Location.FormattedAddress,
		Locality:     d.Location.Locality,
		Neighborhood: d.Location.Neighborhood,
		Rating:       d.Rating,
		RatingCount:  d.Stats.TotalRatings,
		PriceTier:    d.Price,
		Phone:        d.Tel,
		Website:      d.Website,
		Hours:        d.Hours.Display,
		Description:  d.Description,
	}
	if m.Address == "" {
		m.Address = d.Location.Address
	}
	for _, c := range d.Categories {
		m.Categories = append(m.Categories, c.Name)
	}
	for _, p := range d.Photos {
		m.Photos = append(m.Photos, p.URL("original"))
	}
	return m
}
