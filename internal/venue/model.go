// Package venue defines the canonical venue entity, the transient discovery
// candidate, and the content-derived canonical key used to merge duplicates.
package venue

import (
	"time"
)

// Tier is the categorical quality label derived by the scorer.
type Tier string

// Tier values. hidden_gem and local_favorite are mutually exclusive.
const (
	TierNone          Tier = "none"
	TierHiddenGem     Tier = "hidden_gem"
	TierLocalFavorite Tier = "local_favorite"
)

// Venue is the canonical representation of a physical place.
type Venue struct {
	ID        int64  `json:"id" db:"id"`
	PrimaryID string `json:"primary_id" db:"primary_id"`
	// AltIDs holds additional primary-provider IDs that resolved to this
	// venue through the canonical key.
	AltIDs       []string `json:"alt_ids,omitempty" db:"alt_ids"`
	SecondaryID  *string  `json:"secondary_id,omitempty" db:"secondary_id"`
	CanonicalKey string   `json:"canonical_key" db:"canonical_key"`

	Name         string  `json:"name" db:"name"`
	City         string  `json:"city" db:"city"`
	Neighborhood string  `json:"neighborhood" db:"neighborhood"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`

	// Rating is on the normalized 0-10 scale.
	Rating           float64 `json:"rating" db:"rating"`
	RatingCount      *int    `json:"rating_count,omitempty" db:"rating_count"`
	HasSecondaryData bool    `json:"has_secondary_data" db:"has_secondary_data"`
	QualityScore     *int    `json:"quality_score,omitempty" db:"quality_score"`
	Tier             Tier    `json:"tier" db:"tier"`
	Featured         bool    `json:"featured" db:"featured"`

	Address     *string  `json:"address,omitempty" db:"address"`
	Hours       *string  `json:"hours,omitempty" db:"hours"`
	Phone       *string  `json:"phone,omitempty" db:"phone"`
	Website     *string  `json:"website,omitempty" db:"website"`
	PriceTier   *int     `json:"price_tier,omitempty" db:"price_tier"`
	Description *string  `json:"description,omitempty" db:"description"`
	PhotoRefs   []string `json:"photo_refs,omitempty" db:"photo_refs"`

	PrimaryCategories   []string `json:"primary_categories,omitempty" db:"primary_categories"`
	SecondaryCategories []string `json:"secondary_categories,omitempty" db:"secondary_categories"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AddressComponent is one structured component of a provider address.
type AddressComponent struct {
	LongText  string   `json:"long_text"`
	ShortText string   `json:"short_text"`
	Types     []string `json:"types"`
}

// Candidate is one primary-provider search result before admission-gate
// evaluation. It exists only within a single discovery run.
type Candidate struct {
	PlaceID           string             `json:"place_id"`
	Name              string             `json:"name"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	Rating            float64            `json:"rating"` // normalized 0-10
	RatingCount       int                `json:"rating_count"`
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []AddressComponent `json:"address_components,omitempty"`
	Types             []string           `json:"types,omitempty"`
	Category          string             `json:"category"`
	City              string             `json:"city"`
}

// SecondaryMatch is the structured detail record fetched from the secondary
// enrichment provider for a matched candidate.
type SecondaryMatch struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Locality     string   `json:"locality"`
	Neighborhood string   `json:"neighborhood"`
	Rating       float64  `json:"rating"` // provider-native 0-10
	RatingCount  int      `json:"rating_count"`
	PriceTier    int      `json:"price_tier"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	Hours        string   `json:"hours"`
	Description  string   `json:"description"`
	Categories   []string `json:"categories,omitempty"`
	Photos       []string `json:"photos,omitempty"`
}
