package venue

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// geohashPrecision is the fixed geohash precision used in the name+geometry
// key fallback. Seven characters is a ~150m cell, tight enough that two
// venues on the same block with the same normalized name collapse while
// distinct branches across town do not.
const geohashPrecision = 7

// CanonicalKey computes the content-derived fingerprint used to merge the
// same physical venue discovered through different tiles, categories, or
// providers. Preference order: normalized address, then normalized name plus
// a fixed-precision geohash, then the primary provider ID verbatim (no
// cross-provider dedup possible without address or geometry).
func CanonicalKey(c Candidate, match *SecondaryMatch) string {
	addr := c.FormattedAddress
	if addr == "" && match != nil {
		addr = match.Address
	}

	if addr != "" {
		return hashKey(NormalizeAddress(addr, c.City))
	}

	if c.Latitude != 0 || c.Longitude != 0 {
		gh := geohash.EncodeWithPrecision(c.Latitude, c.Longitude, geohashPrecision)
		return hashKey(normalizeText(c.Name) + "|" + gh)
	}

	return c.PlaceID
}

// NormalizeAddress lowercases, folds diacritics, collapses whitespace, and
// strips trailing city/country segments so that "Av. Corrientes 3247, Buenos
// Aires, Argentina" and "av corrientes 3247" fingerprint identically.
func NormalizeAddress(addr, city string) string {
	kept := strings.Split(addr, ",")
	cityNorm := normalizeText(city)

	// Drop trailing segments that are the city name, a postal-code prefixed
	// city ("C1043 CABA"), or a country.
	for len(kept) > 1 {
		last := normalizeText(kept[len(kept)-1])
		if last == "" || isCitySegment(last, cityNorm) || looksLikeCountry(last) {
			kept = kept[:len(kept)-1]
			continue
		}
		break
	}

	return normalizeText(strings.Join(kept, " "))
}

// normalizeText lowercases, strips combining marks (diacritics), and
// collapses runs of whitespace and punctuation to single spaces.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// isCitySegment reports whether a normalized address segment denotes the
// city itself, with or without a leading postal code token.
func isCitySegment(segment, cityNorm string) bool {
	if cityNorm == "" {
		return false
	}
	if segment == cityNorm {
		return true
	}
	// "c1043 buenos aires" or "1043 buenos aires"
	if idx := strings.Index(segment, " "); idx > 0 {
		if segment[idx+1:] == cityNorm && looksLikePostalCode(segment[:idx]) {
			return true
		}
	}
	return strings.HasSuffix(segment, " "+cityNorm) && looksLikePostalCode(strings.TrimSuffix(segment, " "+cityNorm))
}

func looksLikePostalCode(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 10 {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		} else if !unicode.IsLetter(r) {
			return false
		}
	}
	return digits >= 3
}

// countrySegments is a small allowlist of trailing country names seen in
// provider formatted addresses for supported cities.
var countrySegments = map[string]bool{
	"argentina": true,
	"uruguay":   true,
	"chile":     true,
	"brasil":    true,
	"brazil":    true,
	"mexico":    true,
	"spain":     true,
	"espana":    true,
}

func looksLikeCountry(segment string) bool {
	return countrySegments[segment]
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
