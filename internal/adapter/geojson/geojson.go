// Package geojson reads and writes the zone-geometry source as a
// geographic feature collection.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

// featureCollection is the wire shape of a GeoJSON FeatureCollection.
type featureCollection struct {
	Type     string    `json:"type"`
	CRS      *namedCRS `json:"crs,omitempty"`
	Features []feature `json:"features"`
}

// namedCRS is the legacy GeoJSON crs member some shapefile conversions carry.
type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   geometry        `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// outProperties is the fixed property set of the cleaned artifact.
type outProperties struct {
	LocationID  int64  `json:"location_id"`
	Borough     string `json:"borough"`
	Zone        string `json:"zone"`
	ServiceZone string `json:"service_zone,omitempty"`
}

// ReadZoneGeometries loads zone polygons from a GeoJSON file. Geometries
// must already be geographic (WGS-84 / EPSG:4326); a feature collection
// declaring a projected CRS is rejected, since reprojection is not
// something this pipeline does. Features without a resolvable location
// ID or with non-polygonal geometry are dropped.
func ReadZoneGeometries(path string) ([]domain.ZoneGeometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open zone geometry %s: %w", path, err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse zone geometry %s: %w", path, err)
	}
	if err := checkCRS(fc.CRS); err != nil {
		return nil, fmt.Errorf("zone geometry %s: %w", path, err)
	}

	var zones []domain.ZoneGeometry
	for _, ft := range fc.Features {
		props := parseProperties(ft.Properties)
		if props.LocationID == 0 {
			continue
		}
		rings, err := parseRings(ft.Geometry)
		if err != nil || len(rings) == 0 {
			continue
		}
		zones = append(zones, domain.ZoneGeometry{
			LocationID:  props.LocationID,
			Borough:     props.Borough,
			Zone:        props.Zone,
			ServiceZone: props.ServiceZone,
			Rings:       rings,
		})
	}

	return zones, nil
}

// WriteZoneGeometries persists the cleaned geometry collection: every
// feature reduced to {geometry, properties:{location_id,borough,zone,
// service_zone}}, written atomically.
func WriteZoneGeometries(path string, zones []domain.ZoneGeometry) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(zones))}
	for _, z := range zones {
		props, err := json.Marshal(outProperties{
			LocationID:  z.LocationID,
			Borough:     z.Borough,
			Zone:        z.Zone,
			ServiceZone: z.ServiceZone,
		})
		if err != nil {
			return fmt.Errorf("marshal zone %d properties: %w", z.LocationID, err)
		}
		coords, err := json.Marshal(z.Rings)
		if err != nil {
			return fmt.Errorf("marshal zone %d geometry: %w", z.LocationID, err)
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Polygon", Coordinates: coords},
			Properties: props,
		})
	}

	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(fc)
	})
}

// checkCRS accepts an absent CRS member (GeoJSON default: WGS-84) and
// the explicit CRS84/EPSG:4326 spellings; anything else is projected
// data this pipeline cannot use.
func checkCRS(crs *namedCRS) error {
	if crs == nil {
		return nil
	}
	name := strings.ToUpper(crs.Properties.Name)
	if strings.Contains(name, "CRS84") || strings.Contains(name, "4326") {
		return nil
	}
	return fmt.Errorf("unsupported CRS %q: geometries must be WGS-84 (EPSG:4326)", crs.Properties.Name)
}

// parseProperties pulls the needed fields out of a feature's property
// bag, tolerating the casing and naming variants shapefile conversions
// produce (LocationID, location_id, objectid-adjacent exports).
func parseProperties(raw json.RawMessage) outProperties {
	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return outProperties{}
	}

	lower := make(map[string]any, len(bag))
	for k, v := range bag {
		lower[strings.ToLower(k)] = v
	}

	var out outProperties
	for _, key := range []string{"location_id", "locationid"} {
		if v, ok := lower[key]; ok {
			out.LocationID = toInt64(v)
			break
		}
	}
	out.Borough = toString(lower["borough"])
	out.Zone = toString(lower["zone"])
	out.ServiceZone = toString(lower["service_zone"])
	return out
}

// parseRings flattens Polygon or MultiPolygon coordinates into rings of
// [lon, lat] pairs, ignoring any altitude components.
func parseRings(g geometry) ([][][2]float64, error) {
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, err
		}
		return ringsFrom(coords), nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, err
		}
		var rings [][][2]float64
		for _, poly := range coords {
			rings = append(rings, ringsFrom(poly)...)
		}
		return rings, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func ringsFrom(coords [][][]float64) [][][2]float64 {
	rings := make([][][2]float64, 0, len(coords))
	for _, ring := range coords {
		out := make([][2]float64, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				continue
			}
			out = append(out, [2]float64{pos[0], pos[1]})
		}
		rings = append(rings, out)
	}
	return rings
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

// writeAtomic mirrors the CSV adapter's temp-and-rename write so no
// partial geometry artifact can be observed by a later run.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s into place: %w", path, err)
	}
	return nil
}
