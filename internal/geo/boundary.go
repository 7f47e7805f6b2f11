// Package geo loads neighborhood boundary polygons and answers point-in-polygon
// lookups against them.
package geo

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// Feature is one named boundary polygon.
type Feature struct {
	Name     string
	polygons []*geom.Polygon
}

// BoundarySet is an in-memory collection of neighborhood boundaries for one
// city. Lookups scan features in load order; boundary files are small enough
// (tens of polygons per city) that no spatial index is needed.
type BoundarySet struct {
	features []Feature
}

// LoadGeoJSON reads a GeoJSON FeatureCollection from disk. Each feature must
// carry a "name" property and a Polygon or MultiPolygon geometry.
func LoadGeoJSON(path string) (*BoundarySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read boundary file %s", path)
	}
	set, err := ParseGeoJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: parse boundary file %s", path)
	}
	return set, nil
}

// ParseGeoJSON parses a GeoJSON FeatureCollection into a BoundarySet.
func ParseGeoJSON(data []byte) (*BoundarySet, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geo: unmarshal feature collection")
	}

	set := &BoundarySet{}
	for i, f := range fc.Features {
		name := featureName(f)
		if name == "" {
			return nil, eris.Errorf("geo: feature %d has no name property", i)
		}

		polys, err := polygonsOf(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: feature %q", name)
		}
		if len(polys) == 0 {
			continue
		}
		set.features = append(set.features, Feature{Name: name, polygons: polys})
	}
	return set, nil
}

// Locate returns the name of the first boundary containing the point, or
// ("", false) when no boundary contains it.
func (s *BoundarySet) Locate(lat, lng float64) (string, bool) {
	if s == nil {
		return "", false
	}
	// GeoJSON coordinate order is (lng, lat).
	pt := geom.Coord{lng, lat}
	for _, f := range s.features {
		for _, p := range f.polygons {
			if polygonContains(p, pt) {
				return f.Name, true
			}
		}
	}
	return "", false
}

// Names returns the boundary names in load order.
func (s *BoundarySet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.features))
	for _, f := range s.features {
		names = append(names, f.Name)
	}
	return names
}

// Len returns the number of named boundaries.
func (s *BoundarySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.features)
}

// polygonContains reports whether the point is inside the exterior ring and
// outside every hole.
func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func polygonsOf(g geom.T) ([]*geom.Polygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}, nil
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
		return polys, nil
	case nil:
		return nil, nil
	default:
		return nil, eris.Errorf("geo: unsupported geometry type %T", g)
	}
}

func featureName(f *geojson.Feature) string {
	for _, key := range []string{"name", "NAME", "neighborhood", "barrio"} {
		if v, ok := f.Properties[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
