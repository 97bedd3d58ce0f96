// Command verify performs end-to-end integrity checks on the artifacts
// a pipeline run leaves in its output directory: partition completeness
// between the raw input and the cleaned plus excluded outputs, zone
// join correctness, derived-feature value ranges, exclusion taxonomy,
// and manifest consistency.
//
// Usage:
//
//	go run ./cmd/verify -data out -trips data/trips.csv -unit mi
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tripcsv "github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/adapter/csv"
)

// phase tracks pass/fail for one verification phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data", "", "pipeline output directory to verify")
	tripsPath := flag.String("trips", "", "raw trips CSV the run ingested (optional; enables the partition check)")
	unit := flag.String("unit", "mi", "distance unit of the raw trips CSV (mi or km)")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, *tripsPath, *unit); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, tripsPath, unit string) int {
	fmt.Println("=== Trip Artifact Integrity Verification ===")
	fmt.Println()

	cleaned, err := loadCSV(filepath.Join(dataDir, "cleaned_trips.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned trips: %v\n", err)
		return 1
	}

	// The exclusion artifact is legitimately absent when nothing was
	// excluded.
	excluded, err := loadCSV(filepath.Join(dataDir, "excluded_records.csv"))
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "FATAL: load excluded records: %v\n", err)
		return 1
	}

	zones, err := loadCSV(filepath.Join(dataDir, "zones_cleaned.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned zones: %v\n", err)
		return 1
	}

	phases := []*phase{
		verifyPartition(cleaned, excluded, tripsPath, unit),
		verifyZoneJoin(cleaned, zones),
		verifyFeatures(cleaned),
		verifyExclusionTaxonomy(excluded),
		verifyManifest(dataDir),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d cleaned, %d excluded, %d zones\n",
		len(cleaned), len(excluded), len(zones))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll verifications passed.")
		return 0
	}
	fmt.Println("\nVerification FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
	header  []string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields, header: header})
	}
	return rows, nil
}

// ── Phase 1: Partition completeness ──
// Every raw record must land in exactly one of the cleaned or excluded
// artifacts.

func verifyPartition(cleaned, excluded []csvRow, tripsPath, unit string) *phase {
	p := &phase{name: "Phase 1: Partition completeness"}

	if tripsPath == "" {
		fmt.Println("  Note: -trips not given, skipping raw-count comparison")
		return p
	}

	reader := tripcsv.NewTripReader(unit, slog.New(slog.DiscardHandler))
	raw, skipped, err := reader.Read(tripsPath)
	if err != nil {
		p.errorf("read raw trips: %v", err)
		return p
	}

	if len(raw) != len(cleaned)+len(excluded) {
		p.errorf("raw=%d but cleaned=%d + excluded=%d = %d (skipped malformed rows: %d)",
			len(raw), len(cleaned), len(excluded), len(cleaned)+len(excluded), skipped)
	}
	return p
}

// ── Phase 2: Zone join correctness ──
// Cleaned trips only survive the join when both endpoints resolved, so
// every borough and zone column must be populated, and every location ID
// must exist in the cleaned zone table.

func verifyZoneJoin(cleaned, zones []csvRow) *phase {
	p := &phase{name: "Phase 2: Zone join correctness"}

	known := map[string]bool{}
	for _, z := range zones {
		id := z.fields["locationid"]
		if id == "" {
			p.errorf("zone line %d: empty locationid", z.lineNum)
			continue
		}
		if known[id] {
			p.errorf("zone line %d: duplicate locationid %s", z.lineNum, id)
		}
		known[id] = true
	}

	joinCols := []string{"pickup_borough", "pickup_zone", "dropoff_borough", "dropoff_zone"}
	for _, row := range cleaned {
		for _, col := range joinCols {
			if row.fields[col] == "" {
				p.errorf("cleaned line %d: empty %s", row.lineNum, col)
			}
		}
		for _, col := range []string{"pulocationid", "dolocationid"} {
			if id := row.fields[col]; id != "" && !known[id] {
				p.errorf("cleaned line %d: %s=%s not present in cleaned zone table", row.lineNum, col, id)
			}
		}
	}
	return p
}

// ── Phase 3: Feature value ranges ──

func verifyFeatures(cleaned []csvRow) *phase {
	p := &phase{name: "Phase 3: Feature value ranges"}

	if len(cleaned) == 0 {
		return p
	}
	if _, ok := cleaned[0].fields[tripcsv.FeatureColumn]; !ok {
		fmt.Println("  Note: no feature columns, run the feature stage before verifying ranges")
		return p
	}

	for _, row := range cleaned {
		checkFeatureRow(p, row)
	}
	return p
}

func checkFeatureRow(p *phase, row csvRow) {
	num := func(col string) (float64, bool) {
		v, err := strconv.ParseFloat(row.fields[col], 64)
		if err != nil {
			p.errorf("line %d: %s=%q is not numeric", row.lineNum, col, row.fields[col])
			return 0, false
		}
		return v, true
	}

	if d, ok := num(tripcsv.FeatureColumn); ok && d <= 0 {
		p.errorf("line %d: trip_duration_sec=%g, must be positive", row.lineNum, d)
	}
	if s, ok := num("avg_speed_kmh"); ok && (s <= 0 || s > 150) {
		p.errorf("line %d: avg_speed_kmh=%g outside (0, 150]", row.lineNum, s)
	}
	if r, ok := num("revenue_per_km"); ok && r <= 0 {
		p.errorf("line %d: revenue_per_km=%g, must be positive", row.lineNum, r)
	}
	for _, col := range []string{"idle_time_ratio", "trip_efficiency"} {
		if v, ok := num(col); ok && (v < 0 || v > 1) {
			p.errorf("line %d: %s=%g outside [0, 1]", row.lineNum, col, v)
		}
	}

	hour, hourOK := num("pickup_hour")
	if hourOK && (hour < 0 || hour > 23) {
		p.errorf("line %d: pickup_hour=%g outside [0, 23]", row.lineNum, hour)
	}
	weekday, weekdayOK := num("pickup_weekday")
	if weekdayOK && (weekday < 0 || weekday > 6) {
		p.errorf("line %d: pickup_weekday=%g outside [0, 6]", row.lineNum, weekday)
	}

	weekend := row.fields["is_weekend"] == "1"
	if weekdayOK && weekend != (weekday >= 5) {
		p.errorf("line %d: is_weekend=%q inconsistent with pickup_weekday=%g", row.lineNum, row.fields["is_weekend"], weekday)
	}
	if peak := row.fields["is_peak_hour"] == "1"; hourOK && peak {
		inWindow := (hour >= 7 && hour < 10) || (hour >= 16 && hour < 19)
		if !inWindow || weekend {
			p.errorf("line %d: is_peak_hour set but hour=%g weekend=%v", row.lineNum, hour, weekend)
		}
	}
}

// ── Phase 4: Exclusion taxonomy ──

var (
	cleaningReasons = map[string]bool{
		"missing_essential_values": true,
		"invalid_logical_values":   true,
		"duplicate_trip":           true,
		"unmatched_zone_lookup":    true,
	}
	featureReasons = map[string]bool{
		"invalid_trip_duration":  true,
		"invalid_coordinates":    true,
		"invalid_average_speed":  true,
		"invalid_revenue_per_km": true,
		// nil essentials surface again when a record is fed to the
		// feature stage directly
		"missing_essential_values": true,
	}
)

func verifyExclusionTaxonomy(excluded []csvRow) *phase {
	p := &phase{name: "Phase 4: Exclusion taxonomy"}

	for _, row := range excluded {
		stage := row.fields["pipeline_stage"]
		reason := row.fields["exclusion_reason"]
		switch stage {
		case "cleaning":
			if !cleaningReasons[reason] {
				p.errorf("line %d: reason %q invalid for cleaning stage", row.lineNum, reason)
			}
		case "feature_engineering":
			if !featureReasons[reason] {
				p.errorf("line %d: reason %q invalid for feature_engineering stage", row.lineNum, reason)
			}
		default:
			p.errorf("line %d: unknown pipeline_stage %q", row.lineNum, stage)
		}
	}
	return p
}

// ── Phase 5: Manifest consistency ──

type manifestEntry struct {
	Stage            string    `json:"stage"`
	InputFingerprint string    `json:"input_fingerprint"`
	Output           string    `json:"output"`
	CompletedAt      time.Time `json:"completed_at"`
	RunID            string    `json:"run_id"`
}

func verifyManifest(dataDir string) *phase {
	p := &phase{name: "Phase 5: Manifest consistency"}

	data, err := os.ReadFile(filepath.Join(dataDir, "manifest.json"))
	if err != nil {
		p.errorf("read manifest: %v", err)
		return p
	}

	var m struct {
		Stages map[string]manifestEntry `json:"stages"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		p.errorf("parse manifest: %v", err)
		return p
	}
	if len(m.Stages) == 0 {
		p.errorf("manifest has no recorded stages")
		return p
	}

	for key, e := range m.Stages {
		if e.Stage != key {
			p.errorf("stage %q: entry names itself %q", key, e.Stage)
		}
		if e.InputFingerprint == "" {
			p.errorf("stage %q: empty input fingerprint", key)
		}
		if e.RunID == "" {
			p.errorf("stage %q: empty run_id", key)
		}
		if e.CompletedAt.IsZero() {
			p.errorf("stage %q: zero completed_at", key)
		}
		if e.Output == "" {
			p.errorf("stage %q: empty output path", key)
			continue
		}
		if _, err := os.Stat(e.Output); err != nil {
			p.errorf("stage %q: output %s missing: %v", key, e.Output, err)
		}
	}
	return p
}
