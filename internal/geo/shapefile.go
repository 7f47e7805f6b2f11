package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadShapefile reads named boundary polygons from an ESRI shapefile. The
// nameField attribute supplies each feature's name; the lookup is
// case-insensitive against the DBF field names.
func LoadShapefile(path, nameField string) (*BoundarySet, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("geo: shapefile field %q not found", nameField)
	}

	set := &BoundarySet{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		name := strings.TrimSpace(reader.Attribute(nameIdx))
		if name == "" {
			skipped++
			continue
		}

		polys := shapePolygons(poly)
		if len(polys) == 0 {
			skipped++
			continue
		}
		set.features = append(set.features, Feature{Name: name, polygons: polys})
	}

	if skipped > 0 {
		zap.L().Warn("shapefile records skipped",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return set, nil
}

// shapePolygons converts a shapefile Polygon's parts into geom polygons.
// Each part becomes its own exterior ring; hole detection by ring winding is
// not needed for neighborhood boundaries, which are simple in practice.
func shapePolygons(p *shp.Polygon) []*geom.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	polys := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			// Shapefile X/Y is lng/lat, matching GeoJSON order.
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least four points
			continue
		}

		poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		polys = append(polys, poly)
	}
	return polys
}

// fieldIndex returns the index of a named DBF field, or -1 if absent.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
