package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

// FeatureColumn is the column whose presence in an existing cleaned-trip
// artifact proves feature engineering already ran.
const FeatureColumn = "trip_duration_sec"

const timestampLayout = "2006-01-02 15:04:05"

// baseColumns is the cleaned-trip artifact schema before features.
var baseColumns = []string{
	"pickup_datetime", "dropoff_datetime", "passenger_count",
	"trip_distance_km", "pulocationid", "dolocationid",
	"payment_type", "store_and_fwd_flag",
	"fare_amount", "tip_amount", "total_amount",
	"pickup_lat", "pickup_lon", "dropoff_lat", "dropoff_lon",
	"pickup_borough", "pickup_zone", "dropoff_borough", "dropoff_zone",
}

// featureColumns extends baseColumns once the feature stage has run.
var featureColumns = []string{
	FeatureColumn, "haversine_km", "avg_speed_kmh", "revenue_per_km",
	"pickup_hour", "pickup_weekday", "is_weekend", "is_peak_hour",
	"idle_time_ratio", "trip_efficiency", "processed_at",
}

// exclusionColumns is the audit artifact schema: the original trip
// fields plus the reason and stage tags.
var exclusionColumns = []string{
	"pickup_datetime", "dropoff_datetime", "passenger_count",
	"trip_distance_km", "pulocationid", "dolocationid",
	"payment_type", "store_and_fwd_flag",
	"fare_amount", "tip_amount", "total_amount",
	"pickup_lat", "pickup_lon", "dropoff_lat", "dropoff_lon",
	"exclusion_reason", "pipeline_stage",
}

// WriteEnrichedTrips persists the cleaned trip table (zone-joined, no
// feature columns yet) atomically.
func WriteEnrichedTrips(path string, trips []domain.EnrichedTripRecord) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := stdcsv.NewWriter(w)
		if err := cw.Write(baseColumns); err != nil {
			return err
		}
		for _, t := range trips {
			if err := cw.Write(enrichedCells(t)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteFeatureTrips persists the feature-complete trip table atomically.
func WriteFeatureTrips(path string, trips []domain.FeatureRecord) error {
	header := append(append([]string{}, baseColumns...), featureColumns...)
	return writeAtomic(path, func(w io.Writer) error {
		cw := stdcsv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, t := range trips {
			cells := append(enrichedCells(t.EnrichedTripRecord),
				formatFloat(t.TripDurationSec),
				formatFloat(t.HaversineKM),
				formatFloat(t.AvgSpeedKMH),
				formatFloat(t.RevenuePerKM),
				strconv.Itoa(t.PickupHour),
				strconv.Itoa(t.PickupWeekday),
				formatBool(t.IsWeekend),
				formatBool(t.IsPeakHour),
				formatFloat(t.IdleTimeRatio),
				formatFloat(t.TripEfficiency),
				t.ProcessedAt.Format(time.RFC3339),
			)
			if err := cw.Write(cells); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteExclusions persists the exclusion ledger atomically.
func WriteExclusions(path string, entries []domain.ExclusionEntry) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := stdcsv.NewWriter(w)
		if err := cw.Write(exclusionColumns); err != nil {
			return err
		}
		for _, e := range entries {
			cells := append(rawCells(e.Trip), string(e.Reason), string(e.Stage))
			if err := cw.Write(cells); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadExclusions loads a previously written exclusion artifact so a
// resumed run can carry forward the entries earlier stages already
// committed. Row numbers reflect the artifact, not the raw source.
func ReadExclusions(path string) ([]domain.ExclusionEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclusions %s: %w", path, err)
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read exclusions header %s: %w", path, err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}

	var entries []domain.ExclusionEntry
	rowIndex := 0
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read exclusions %s: %w", path, err)
		}
		rowIndex++

		rw := make(row, len(header))
		for i, h := range header {
			if i < len(cells) {
				rw[h] = cells[i]
			}
		}

		entries = append(entries, domain.ExclusionEntry{
			Trip: domain.RawTripRecord{
				Row:             rowIndex,
				PickupTime:      rw.timeField([]string{"pickup_datetime"}),
				DropoffTime:     rw.timeField([]string{"dropoff_datetime"}),
				PassengerCount:  rw.intField([]string{"passenger_count"}),
				TripDistanceKM:  rw.floatField([]string{"trip_distance_km"}),
				PULocationID:    rw.intField([]string{"pulocationid"}),
				DOLocationID:    rw.intField([]string{"dolocationid"}),
				PaymentType:     rw.intField([]string{"payment_type"}),
				StoreAndFwdFlag: rw.stringField([]string{"store_and_fwd_flag"}),
				FareAmount:      rw.floatField([]string{"fare_amount"}),
				TipAmount:       rw.floatField([]string{"tip_amount"}),
				TotalAmount:     rw.floatField([]string{"total_amount"}),
				PickupLat:       rw.floatField([]string{"pickup_lat"}),
				PickupLon:       rw.floatField([]string{"pickup_lon"}),
				DropoffLat:      rw.floatField([]string{"dropoff_lat"}),
				DropoffLon:      rw.floatField([]string{"dropoff_lon"}),
			},
			Reason: domain.Reason(rw.stringField([]string{"exclusion_reason"})),
			Stage:  domain.Stage(rw.stringField([]string{"pipeline_stage"})),
		})
	}

	return entries, nil
}

// ReadCleanedTrips loads a previously written cleaned-trip artifact and
// reports whether it already carries feature columns. Used when a re-run
// skips the cleaning stage and must feed the existing artifact forward.
func ReadCleanedTrips(path string) ([]domain.EnrichedTripRecord, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("open cleaned trips %s: %w", path, err)
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, false, fmt.Errorf("read cleaned trips header %s: %w", path, err)
	}

	hasFeatures := false
	for i := range header {
		header[i] = normalizeHeader(header[i])
		if header[i] == FeatureColumn {
			hasFeatures = true
		}
	}

	var trips []domain.EnrichedTripRecord
	rowIndex := 0
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("read cleaned trips %s: %w", path, err)
		}
		rowIndex++

		rw := make(row, len(header))
		for i, h := range header {
			if i < len(cells) {
				rw[h] = cells[i]
			}
		}

		rec := domain.EnrichedTripRecord{
			RawTripRecord: domain.RawTripRecord{
				Row:             rowIndex,
				PickupTime:      rw.timeField([]string{"pickup_datetime"}),
				DropoffTime:     rw.timeField([]string{"dropoff_datetime"}),
				PassengerCount:  rw.intField([]string{"passenger_count"}),
				TripDistanceKM:  rw.floatField([]string{"trip_distance_km"}),
				PULocationID:    rw.intField([]string{"pulocationid"}),
				DOLocationID:    rw.intField([]string{"dolocationid"}),
				PaymentType:     rw.intField([]string{"payment_type"}),
				StoreAndFwdFlag: rw.stringField([]string{"store_and_fwd_flag"}),
				FareAmount:      rw.floatField([]string{"fare_amount"}),
				TipAmount:       rw.floatField([]string{"tip_amount"}),
				TotalAmount:     rw.floatField([]string{"total_amount"}),
				PickupLat:       rw.floatField([]string{"pickup_lat"}),
				PickupLon:       rw.floatField([]string{"pickup_lon"}),
				DropoffLat:      rw.floatField([]string{"dropoff_lat"}),
				DropoffLon:      rw.floatField([]string{"dropoff_lon"}),
			},
			PickupBorough:  rw.stringField([]string{"pickup_borough"}),
			PickupZone:     rw.stringField([]string{"pickup_zone"}),
			DropoffBorough: rw.stringField([]string{"dropoff_borough"}),
			DropoffZone:    rw.stringField([]string{"dropoff_zone"}),
		}
		rec.PickupPoint = pointFrom(rec.PickupLat, rec.PickupLon)
		rec.DropoffPoint = pointFrom(rec.DropoffLat, rec.DropoffLon)
		trips = append(trips, rec)
	}

	return trips, hasFeatures, nil
}

func pointFrom(lat, lon *float64) *domain.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &domain.Point{Lat: *lat, Lon: *lon}
}

// enrichedCells serializes an enriched record in baseColumns order. The
// coordinate columns carry the resolved points, which is what downstream
// consumers contract on.
func enrichedCells(t domain.EnrichedTripRecord) []string {
	cells := rawCellsResolved(t.RawTripRecord, t.PickupPoint, t.DropoffPoint)
	return append(cells, t.PickupBorough, t.PickupZone, t.DropoffBorough, t.DropoffZone)
}

// rawCells serializes the original trip fields for the exclusion ledger.
func rawCells(t domain.RawTripRecord) []string {
	return rawCellsResolved(t, pointFrom(t.PickupLat, t.PickupLon), pointFrom(t.DropoffLat, t.DropoffLon))
}

func rawCellsResolved(t domain.RawTripRecord, pickup, dropoff *domain.Point) []string {
	return []string{
		formatTimePtr(t.PickupTime),
		formatTimePtr(t.DropoffTime),
		formatIntPtr(t.PassengerCount),
		formatFloatPtr(t.TripDistanceKM),
		formatIntPtr(t.PULocationID),
		formatIntPtr(t.DOLocationID),
		formatIntPtr(t.PaymentType),
		t.StoreAndFwdFlag,
		formatFloatPtr(t.FareAmount),
		formatFloatPtr(t.TipAmount),
		formatFloatPtr(t.TotalAmount),
		formatPointLat(pickup),
		formatPointLon(pickup),
		formatPointLat(dropoff),
		formatPointLon(dropoff),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

func formatPointLat(p *domain.Point) string {
	if p == nil {
		return ""
	}
	return formatFloat(p.Lat)
}

func formatPointLon(p *domain.Point) string {
	if p == nil {
		return ""
	}
	return formatFloat(p.Lon)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
