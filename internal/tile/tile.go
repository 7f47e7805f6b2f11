// Package tile partitions a city's scan region into a grid of overlapping
// circular search areas. A single city-wide query against a capped-results
// search API under-samples dense areas; tiling trades call volume for recall.
package tile

import (
	"math"
)

// DegreesPerKM is an approximate conversion factor for latitude degrees to
// kilometers. At mid-latitudes, 1 degree of latitude is approximately 111 km.
const DegreesPerKM = 1.0 / 111.0

// edgeSafetyFactor inflates each tile's search radius so that the circles
// fully cover their grid squares (a circle circumscribing a square needs
// radius >= side * sqrt(2)/2; the extra margin guarantees edge overlap).
const edgeSafetyFactor = 1.45

// Tile is one circular sub-region of a city's search area.
type Tile struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM float64 `json:"radius_m"`
}

// Grid returns a rows x cols lattice of tile centers spread over a square of
// side 2*radiusKM centered on the city center. Each tile carries its own
// search radius in meters. Purely deterministic; no I/O.
func Grid(centerLat, centerLng, radiusKM float64, rows, cols int) []Tile {
	if rows <= 0 {
		rows = 1
	}
	if cols <= 0 {
		cols = 1
	}
	if radiusKM <= 0 {
		radiusKM = 1
	}

	n := rows
	if cols > n {
		n = cols
	}
	tileRadiusM := radiusKM / float64(n) * edgeSafetyFactor * 1000

	// Step between tile centers so the lattice spans the full scan diameter.
	latSpanDeg := 2 * radiusKM * DegreesPerKM
	lngSpanDeg := latSpanDeg / math.Cos(centerLat*math.Pi/180)

	tiles := make([]Tile, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			// Cell-centered offsets in [-0.5, 0.5) of the span.
			fr := (float64(r)+0.5)/float64(rows) - 0.5
			fc := (float64(c)+0.5)/float64(cols) - 0.5
			tiles = append(tiles, Tile{
				Row:     r,
				Col:     c,
				Lat:     centerLat + fr*latSpanDeg,
				Lng:     centerLng + fc*lngSpanDeg,
				RadiusM: tileRadiusM,
			})
		}
	}
	return tiles
}
