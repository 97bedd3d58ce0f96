package csv

import (
	"strconv"
	"strings"
	"time"
)

// nullSentinel is the export marker some TLC extracts use for absent values.
const nullSentinel = `\N`

// Column alias lists, in priority order: the first present, non-empty,
// non-sentinel candidate wins. Header names are matched after
// normalization (lower-cased, trimmed, quotes stripped), so the lists
// only need lower-case spellings.
var (
	pickupTimeCols  = []string{"tpep_pickup_datetime", "lpep_pickup_datetime", "pickup_datetime"}
	dropoffTimeCols = []string{"tpep_dropoff_datetime", "lpep_dropoff_datetime", "dropoff_datetime"}
	distanceCols    = []string{"trip_distance", "trip_distance_km"}
	puLocationCols  = []string{"pulocationid", "pu_location_id", "pickup_location_id"}
	doLocationCols  = []string{"dolocationid", "do_location_id", "dropoff_location_id"}
	pickupLatCols   = []string{"pickup_latitude", "pickup_lat"}
	pickupLonCols   = []string{"pickup_longitude", "pickup_lon"}
	dropoffLatCols  = []string{"dropoff_latitude", "dropoff_lat"}
	dropoffLonCols  = []string{"dropoff_longitude", "dropoff_lon"}
	vendorCols      = []string{"vendorid", "vendor_id"}
	passengerCols   = []string{"passenger_count"}
	paymentCols     = []string{"payment_type"}
	storeFwdCols    = []string{"store_and_fwd_flag"}
	fareCols        = []string{"fare_amount"}
	tipCols         = []string{"tip_amount"}
	totalCols       = []string{"total_amount"}
)

// timestampLayouts are tried in order when parsing datetime cells.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// normalizeHeader lower-cases a header cell and strips whitespace and quotes.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, `"`, "")
	return strings.ToLower(h)
}

// row is one data row addressed by the normalized header.
type row map[string]string

// cell returns the first present, non-empty, non-sentinel value among
// the candidate columns.
func (r row) cell(candidates []string) (string, bool) {
	for _, name := range candidates {
		v, ok := r[name]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || v == nullSentinel {
			continue
		}
		return v, true
	}
	return "", false
}

// floatField parses a nullable float column. Unparseable values become
// nil, never errors; the gap surfaces later as an exclusion.
func (r row) floatField(candidates []string) *float64 {
	s, ok := r.cell(candidates)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// intField parses a nullable integer column. TLC exports sometimes
// serialize IDs as floats ("142.0"), so a float parse is the fallback.
func (r row) intField(candidates []string) *int64 {
	s, ok := r.cell(candidates)
	if !ok {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int64(f)
	return &v
}

// timeField parses a nullable timestamp column against the candidate
// layouts. Failures become nil.
func (r row) timeField(candidates []string) *time.Time {
	s, ok := r.cell(candidates)
	if !ok {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// stringField returns a string column or "" when absent.
func (r row) stringField(candidates []string) string {
	s, _ := r.cell(candidates)
	return s
}
