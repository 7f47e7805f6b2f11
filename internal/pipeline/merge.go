package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/barrioguide/venue-cli/internal/store"
	"github.com/barrioguide/venue-cli/internal/venue"
)

// defaultUnverifiedRating is assigned when a venue passed the primary
// admission gate but was never verified by the secondary provider, so
// downstream sorting has a deterministic baseline instead of a null.
const defaultUnverifiedRating = 6.5

// Merger resolves a candidate to an existing venue or creates a new one.
// Lookups go provider ID first (authoritative identity), then canonical key
// (same physical place surfaced under a different provider record).
type Merger struct {
	store store.Store
	locks *keyLock
}

// NewMerger creates a Merger over the given store.
func NewMerger(st store.Store) *Merger {
	return &Merger{store: st, locks: newKeyLock()}
}

// Merge upserts the candidate. The read-then-write sequence is serialized per
// canonical key so concurrent workers resolving to the same physical venue
// cannot lose updates. Returns the persisted venue and whether it was newly
// created.
func (m *Merger) Merge(ctx context.Context, cand venue.Candidate, match *venue.SecondaryMatch, hood string) (*venue.Venue, bool, error) {
	key := venue.CanonicalKey(cand, match)

	unlock := m.locks.Lock(key)
	defer unlock()

	existing, err := m.store.FindByProviderID(ctx, cand.PlaceID)
	if err != nil {
		return nil, false, eris.Wrap(err, "merge: find by provider id")
	}
	if existing == nil {
		existing, err = m.store.FindByCanonicalKey(ctx, key, cand.City)
		if err != nil {
			return nil, false, eris.Wrap(err, "merge: find by canonical key")
		}
	}

	if existing == nil {
		v := newVenue(cand, match, hood, key)
		if err := m.store.Upsert(ctx, v); err != nil {
			return nil, false, eris.Wrapf(err, "merge: insert %q", cand.Name)
		}
		return v, true, nil
	}

	apply(existing, cand, match, hood, key)
	if err := m.store.Upsert(ctx, existing); err != nil {
		return nil, false, eris.Wrapf(err, "merge: update %q", cand.Name)
	}
	return existing, false, nil
}

func newVenue(cand venue.Candidate, match *venue.SecondaryMatch, hood, key string) *venue.Venue {
	v := &venue.Venue{
		PrimaryID:    cand.PlaceID,
		CanonicalKey: key,
		Name:         cand.Name,
		City:         cand.City,
		Neighborhood: hood,
		Latitude:     cand.Latitude,
		Longitude:    cand.Longitude,
		Rating:       defaultUnverifiedRating,
		Tier:         venue.TierNone,
	}
	if cand.Category != "" {
		v.PrimaryCategories = []string{cand.Category}
	}
	if cand.FormattedAddress != "" {
		addr := cand.FormattedAddress
		v.Address = &addr
	}
	applySecondary(v, match)
	return v
}

// apply folds the candidate into the existing venue. Fields absent in this
// run never clear previously stored values; absence is not evidence of
// non-existence. PrimaryID is immutable.
func apply(v *venue.Venue, cand venue.Candidate, match *venue.SecondaryMatch, hood, key string) {
	if cand.PlaceID != v.PrimaryID && !contains(v.AltIDs, cand.PlaceID) {
		v.AltIDs = append(v.AltIDs, cand.PlaceID)
	}

	// The stored key may derive from the secondary address. A run with no
	// match carries strictly weaker key inputs, so a verified venue keeps
	// its key rather than degrading to the name+geohash form and losing
	// future cross-provider dedup on the address.
	if match != nil || !v.HasSecondaryData {
		v.CanonicalKey = key
	}
	v.Name = cand.Name
	v.Latitude = cand.Latitude
	v.Longitude = cand.Longitude

	// A concrete neighborhood beats an empty one or the bare city fallback.
	if hood != "" && (v.Neighborhood == "" || !strings.EqualFold(hood, cand.City)) {
		v.Neighborhood = hood
	}
	if cand.Category != "" && !contains(v.PrimaryCategories, cand.Category) {
		v.PrimaryCategories = append(v.PrimaryCategories, cand.Category)
	}
	if v.Address == nil && cand.FormattedAddress != "" {
		addr := cand.FormattedAddress
		v.Address = &addr
	}

	applySecondary(v, match)
}

// applySecondary copies enrichment fields when a match is present. Present
// fields overwrite stale values; a nil match leaves all prior enrichment
// intact.
func applySecondary(v *venue.Venue, match *venue.SecondaryMatch) {
	if match == nil {
		return
	}

	id := match.ID
	v.SecondaryID = &id
	v.HasSecondaryData = true
	if match.Rating > 0 {
		v.Rating = match.Rating
	}
	if match.RatingCount > 0 {
		count := match.RatingCount
		v.RatingCount = &count
	}
	if match.Address != "" {
		addr := match.Address
		v.Address = &addr
	}
	if match.Hours != "" {
		hours := match.Hours
		v.Hours = &hours
	}
	if match.Phone != "" {
		phone := match.Phone
		v.Phone = &phone
	}
	if match.Website != "" {
		site := match.Website
		v.Website = &site
	}
	if match.PriceTier > 0 {
		price := match.PriceTier
		v.PriceTier = &price
	}
	if match.Description != "" {
		desc := match.Description
		v.Description = &desc
	}
	if len(match.Categories) > 0 {
		v.SecondaryCategories = match.Categories
	}
	if len(match.Photos) > 0 {
		v.PhotoRefs = match.Photos
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
