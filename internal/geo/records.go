package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// NamedGeometry pairs a boundary name with its GeoJSON geometry document.
// It is the row shape used to persist boundaries in the store.
type NamedGeometry struct {
	Name     string
	Geometry []byte
}

// BuildSet constructs a BoundarySet from persisted geometry rows.
func BuildSet(rows []NamedGeometry) (*BoundarySet, error) {
	set := &BoundarySet{}
	for _, row := range rows {
		var g geom.T
		if err := geojson.Unmarshal(row.Geometry, &g); err != nil {
			return nil, eris.Wrapf(err, "geo: unmarshal geometry for %q", row.Name)
		}
		polys, err := polygonsOf(g)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: boundary %q", row.Name)
		}
		if len(polys) == 0 {
			continue
		}
		set.features = append(set.features, Feature{Name: row.Name, polygons: polys})
	}
	return set, nil
}

// Export converts the set back into persistable rows. Each feature's polygons
// are marshaled as a single MultiPolygon geometry.
func (s *BoundarySet) Export() ([]NamedGeometry, error) {
	if s == nil {
		return nil, nil
	}
	rows := make([]NamedGeometry, 0, len(s.features))
	for _, f := range s.features {
		mp := geom.NewMultiPolygon(geom.XY)
		for _, p := range f.polygons {
			if err := mp.Push(p); err != nil {
				return nil, eris.Wrapf(err, "geo: assemble multipolygon for %q", f.Name)
			}
		}
		data, err := geojson.Marshal(mp)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: marshal geometry for %q", f.Name)
		}
		rows = append(rows, NamedGeometry{Name: f.Name, Geometry: data})
	}
	return rows, nil
}
