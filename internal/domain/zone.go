package domain

// BoundingBox is an axis-aligned lat/lon rectangle around a zone polygon.
// It backs the coordinate-fallback join: cheap containment checks instead
// of full point-in-polygon tests against the same zone catalog.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether a point lies within the box, edges inclusive.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the box midpoint, the representative coordinate for a
// zone when a trip carries location IDs but no raw coordinates.
func (b BoundingBox) Center() Point {
	return Point{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Area returns the box area in squared degrees. Used only to rank
// overlapping boxes, so the unit does not matter.
func (b BoundingBox) Area() float64 {
	return (b.MaxLat - b.MinLat) * (b.MaxLon - b.MinLon)
}

// ZoneGeometry is one zone polygon from the geometry source, in WGS-84.
// Rings holds the exterior ring first, [lon, lat] per vertex as GeoJSON
// orders them.
type ZoneGeometry struct {
	LocationID  int64
	Borough     string
	Zone        string
	ServiceZone string
	Rings       [][][2]float64
}

// Bounds computes the geometry's bounding box. The zero box is returned
// for an empty geometry.
func (g ZoneGeometry) Bounds() BoundingBox {
	var b BoundingBox
	first := true
	for _, ring := range g.Rings {
		for _, v := range ring {
			lon, lat := v[0], v[1]
			if first {
				b = BoundingBox{MinLat: lat, MaxLat: lat, MinLon: lon, MaxLon: lon}
				first = false
				continue
			}
			if lat < b.MinLat {
				b.MinLat = lat
			}
			if lat > b.MaxLat {
				b.MaxLat = lat
			}
			if lon < b.MinLon {
				b.MinLon = lon
			}
			if lon > b.MaxLon {
				b.MaxLon = lon
			}
		}
	}
	return b
}
