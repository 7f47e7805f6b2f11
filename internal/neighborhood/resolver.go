// Package neighborhood resolves a candidate's coordinates and addresses to a
// canonical neighborhood name through an ordered fallback chain.
package neighborhood

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/venue"
	"github.com/barrioguide/venue-cli/pkg/geocode"
)

// input carries everything a strategy may consult.
type input struct {
	cand  venue.Candidate
	match *venue.SecondaryMatch
}

// strategy tries one resolution source. A false return means no signal and
// the chain falls through to the next strategy.
type strategy func(ctx context.Context, in input) (string, bool)

// Resolver runs the fallback chain. Strategies are ordered by decreasing
// reliability and decreasing cost: the free local lookups come first, the
// paid geocoding call only when they yield nothing.
type Resolver struct {
	city       config.CityConfig
	bounds     *geo.BoundarySet
	geocoder   geocode.Client
	strategies []strategy
}

// NewResolver creates a Resolver for one city. bounds and geocoder are both
// optional; their strategies are skipped when nil.
func NewResolver(city config.CityConfig, bounds *geo.BoundarySet, geocoder geocode.Client) *Resolver {
	r := &Resolver{
		city:     city,
		bounds:   bounds,
		geocoder: geocoder,
	}
	r.strategies = []strategy{
		r.fromBoundary,
		r.fromPrimaryComponents,
		r.fromReverseGeocode,
		r.fromSecondaryField,
		r.fromAddressSubstring,
	}
	return r
}

// Resolve returns a non-empty neighborhood name for the candidate. A strategy
// result equal to a bare city alias carries no signal and falls through; the
// worst case is the city's own canonical name.
func (r *Resolver) Resolve(ctx context.Context, cand venue.Candidate, match *venue.SecondaryMatch) string {
	in := input{cand: cand, match: match}
	for _, s := range r.strategies {
		if name, ok := s(ctx, in); ok && name != "" && !r.isCityAlias(name) {
			return name
		}
	}
	return r.city.Name
}

func (r *Resolver) fromBoundary(_ context.Context, in input) (string, bool) {
	if r.bounds == nil {
		return "", false
	}
	return r.bounds.Locate(in.cand.Latitude, in.cand.Longitude)
}

func (r *Resolver) fromPrimaryComponents(_ context.Context, in input) (string, bool) {
	for _, c := range in.cand.AddressComponents {
		if !isNeighborhoodComponent(c.Types) {
			continue
		}
		if name, ok := r.acceptComponent(c.LongText); ok {
			return name, true
		}
	}
	return "", false
}

func (r *Resolver) fromReverseGeocode(ctx context.Context, in input) (string, bool) {
	if r.geocoder == nil {
		return "", false
	}
	result, err := r.geocoder.Reverse(ctx, in.cand.Latitude, in.cand.Longitude)
	if err != nil {
		zap.L().Warn("reverse geocode failed",
			zap.String("name", in.cand.Name),
			zap.Error(err),
		)
		return "", false
	}
	if result == nil {
		return "", false
	}
	for _, c := range result.AddressComponents {
		if !isNeighborhoodComponent(c.Types) {
			continue
		}
		if name, ok := r.acceptComponent(c.LongName); ok {
			return name, true
		}
	}
	return "", false
}

func (r *Resolver) fromSecondaryField(_ context.Context, in input) (string, bool) {
	if in.match == nil || in.match.Neighborhood == "" {
		return "", false
	}
	return r.acceptComponent(in.match.Neighborhood)
}

func (r *Resolver) fromAddressSubstring(_ context.Context, in input) (string, bool) {
	addr := strings.ToLower(in.cand.FormattedAddress)
	if addr == "" && in.match != nil {
		addr = strings.ToLower(in.match.Address)
	}
	if addr == "" {
		return "", false
	}
	for _, known := range r.city.Neighborhoods {
		if strings.Contains(addr, strings.ToLower(known)) {
			return known, true
		}
	}
	return "", false
}

// acceptComponent resolves a raw component value against the known
// neighborhood list by case-insensitive exact or prefix match, returning the
// list's canonical casing. An unknown value that is not a city-level alias is
// accepted verbatim as a new neighborhood name.
func (r *Resolver) acceptComponent(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, known := range r.city.Neighborhoods {
		kl := strings.ToLower(known)
		if lower == kl || strings.HasPrefix(lower, kl) || strings.HasPrefix(kl, lower) {
			return known, true
		}
	}
	if r.isCityAlias(raw) {
		return "", false
	}
	return raw, true
}

func (r *Resolver) isCityAlias(name string) bool {
	if strings.EqualFold(name, r.city.Name) {
		return true
	}
	for _, alias := range r.city.Aliases {
		if strings.EqualFold(name, alias) {
			return true
		}
	}
	return false
}

// isNeighborhoodComponent reports whether a component's types mark it as a
// neighborhood-level division in Google-style responses.
func isNeighborhoodComponent(types []string) bool {
	for _, t := range types {
		switch t {
		case "neighborhood", "sublocality", "sublocality_level_1":
			return true
		}
	}
	return false
}
