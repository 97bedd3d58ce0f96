// Command tripgen writes a deterministic synthetic trip dataset for
// local pipeline runs and benchmarks: a raw trips CSV in TLC yellow-cab
// layout, a matching zone lookup CSV, and a zone geometry GeoJSON.
//
// A fixed fraction of the generated trips is deliberately dirty
// (missing fields, negative amounts, reversed timestamps, duplicates,
// unknown zone IDs) so every exclusion path gets exercised.
//
// Usage:
//
//	go run ./cmd/tripgen -out testdata/generated -trips 5000 -seed 1
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var baseDate = time.Date(2019, time.June, 3, 0, 0, 0, 0, time.UTC)

// genZone is one synthetic taxi zone: a square cell in the Manhattan
// bounding box whose center seeds trip coordinates.
type genZone struct {
	id          int64
	borough     string
	zone        string
	serviceZone string
	lat, lon    float64 // cell center
	half        float64 // half the cell edge, in degrees
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for the generated dataset")
	trips := flag.Int("trips", 1000, "number of trip rows to generate")
	seed := flag.Int64("seed", 1, "PRNG seed; same seed, same files")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	zones := makeZones()

	zonesPath := filepath.Join(*outDir, "zones.csv")
	if err := writeZoneLookup(zonesPath, zones); err != nil {
		return fmt.Errorf("writing zone lookup: %w", err)
	}
	log.Printf("wrote zone lookup: %s (%d zones)", zonesPath, len(zones))

	geoPath := filepath.Join(*outDir, "zones.geojson")
	if err := writeZoneGeometries(geoPath, zones); err != nil {
		return fmt.Errorf("writing zone geometries: %w", err)
	}
	log.Printf("wrote zone geometries: %s", geoPath)

	tripsPath := filepath.Join(*outDir, "trips.csv")
	clean, dirty, err := writeTrips(tripsPath, zones, *trips, rng)
	if err != nil {
		return fmt.Errorf("writing trips: %w", err)
	}
	log.Printf("wrote trips: %s (%d clean, %d dirty)", tripsPath, clean, dirty)

	return nil
}

// makeZones lays a fixed 5x5 grid of square zones over midtown Manhattan.
func makeZones() []genZone {
	boroughs := []string{"Manhattan", "Manhattan", "Manhattan", "Brooklyn", "Queens"}
	const (
		originLat = 40.70
		originLon = -74.02
		cell      = 0.02
	)
	var zones []genZone
	id := int64(1)
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			zones = append(zones, genZone{
				id:          id,
				borough:     boroughs[r],
				zone:        fmt.Sprintf("Cell %d-%d", r, c),
				serviceZone: "Yellow Zone",
				lat:         originLat + float64(r)*cell + cell/2,
				lon:         originLon + float64(c)*cell + cell/2,
				half:        cell / 2,
			})
			id++
		}
	}
	return zones
}

func writeZoneLookup(path string, zones []genZone) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"LocationID", "Borough", "Zone", "service_zone"}); err != nil {
		return err
	}
	for _, z := range zones {
		if err := w.Write([]string{
			strconv.FormatInt(z.id, 10), z.borough, z.zone, z.serviceZone,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// geoFeature mirrors the GeoJSON feature layout the pipeline ingests.
type geoFeature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	} `json:"geometry"`
}

func writeZoneGeometries(path string, zones []genZone) error {
	features := make([]geoFeature, 0, len(zones))
	for _, z := range zones {
		ft := geoFeature{
			Type: "Feature",
			Properties: map[string]any{
				"location_id":  z.id,
				"borough":      z.borough,
				"zone":         z.zone,
				"service_zone": z.serviceZone,
			},
		}
		ft.Geometry.Type = "Polygon"
		ft.Geometry.Coordinates = [][][2]float64{{
			{z.lon - z.half, z.lat - z.half},
			{z.lon + z.half, z.lat - z.half},
			{z.lon + z.half, z.lat + z.half},
			{z.lon - z.half, z.lat + z.half},
			{z.lon - z.half, z.lat - z.half},
		}}
		features = append(features, ft)
	}

	doc := map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

var tripsHeader = []string{
	"VendorID", "tpep_pickup_datetime", "tpep_dropoff_datetime",
	"passenger_count", "trip_distance", "PULocationID", "DOLocationID",
	"payment_type", "store_and_fwd_flag", "fare_amount", "tip_amount",
	"total_amount",
}

func writeTrips(path string, zones []genZone, n int, rng *rand.Rand) (clean, dirty int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tripsHeader); err != nil {
		return 0, 0, err
	}

	var prev []string
	for i := 0; i < n; i++ {
		rec := cleanTrip(zones, rng)

		// Roughly one row in ten is corrupted, cycling through the
		// failure modes so counts stay stable for a given seed.
		if i%10 == 9 {
			dirty++
			switch (i / 10) % 5 {
			case 0:
				rec[1] = `\N` // missing pickup time
			case 1:
				rec[9] = "-5.00" // negative fare
			case 2:
				rec[1], rec[2] = rec[2], rec[1] // dropoff before pickup
			case 3:
				rec[5] = "999" // unknown pickup zone
			case 4:
				if prev != nil {
					rec = prev // exact duplicate
				}
			}
		} else {
			clean++
		}

		if err := w.Write(rec); err != nil {
			return 0, 0, err
		}
		prev = rec
	}

	w.Flush()
	return clean, dirty, w.Error()
}

func cleanTrip(zones []genZone, rng *rand.Rand) []string {
	pu := zones[rng.Intn(len(zones))]
	do := zones[rng.Intn(len(zones))]

	pickup := baseDate.Add(time.Duration(rng.Intn(7*24*3600)) * time.Second)
	duration := time.Duration(120+rng.Intn(3480)) * time.Second
	dropoff := pickup.Add(duration)

	// Distance in miles, loosely proportional to duration so derived
	// speeds land inside the accepted band.
	miles := 0.5 + duration.Minutes()*0.25 + rng.Float64()
	fare := 2.50 + miles*2.50
	tip := fare * 0.15 * rng.Float64()
	total := fare + tip + 0.80

	return []string{
		strconv.Itoa(1 + rng.Intn(2)),
		pickup.Format("2006-01-02 15:04:05"),
		dropoff.Format("2006-01-02 15:04:05"),
		strconv.Itoa(1 + rng.Intn(4)),
		strconv.FormatFloat(miles, 'f', 2, 64),
		strconv.FormatInt(pu.id, 10),
		strconv.FormatInt(do.id, 10),
		strconv.Itoa(1 + rng.Intn(2)),
		"N",
		strconv.FormatFloat(fare, 'f', 2, 64),
		strconv.FormatFloat(tip, 'f', 2, 64),
		strconv.FormatFloat(total, 'f', 2, 64),
	}
}
