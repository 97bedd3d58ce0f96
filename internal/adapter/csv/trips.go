package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

// TripReader loads raw trip records from a tabular source. The source
// file is only ever read, never mutated.
type TripReader struct {
	unit   string // "mi" or "km"
	logger *slog.Logger
}

// NewTripReader creates a reader that normalizes distances from the
// given source unit to kilometers.
func NewTripReader(unit string, logger *slog.Logger) *TripReader {
	return &TripReader{unit: unit, logger: logger}
}

// Read loads every well-formed row from the trip source. Malformed rows
// (wrong field count, CSV syntax errors) are skipped with a warning
// naming the row; the skipped count is returned alongside the records.
// Cell-level problems never skip a row: unparseable values become nil
// fields that the cleaning stage excludes with a reason.
func (tr *TripReader) Read(path string) ([]domain.RawTripRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open trip source %s: %w", path, err)
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read trip header %s: %w", path, err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}

	var (
		records  []domain.RawTripRecord
		skipped  int
		rowIndex int
	)
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowIndex++
		if err != nil {
			skipped++
			tr.logger.Warn("skipping malformed trip row", "path", path, "row", rowIndex, "error", err)
			continue
		}
		if len(cells) != len(header) {
			skipped++
			tr.logger.Warn("skipping trip row with wrong field count",
				"path", path, "row", rowIndex, "fields", len(cells), "want", len(header))
			continue
		}

		rw := make(row, len(header))
		for i, h := range header {
			rw[h] = cells[i]
		}
		records = append(records, tr.parseRecord(rw, rowIndex))
	}

	return records, skipped, nil
}

// parseRecord maps one row onto a RawTripRecord, converting the distance
// to kilometers exactly once.
func (tr *TripReader) parseRecord(rw row, rowIndex int) domain.RawTripRecord {
	distance := rw.floatField(distanceCols)
	if distance != nil && tr.unit == "mi" {
		km := *distance * domain.MilesToKM
		distance = &km
	}

	return domain.RawTripRecord{
		Row:             rowIndex,
		VendorID:        rw.intField(vendorCols),
		PickupTime:      rw.timeField(pickupTimeCols),
		DropoffTime:     rw.timeField(dropoffTimeCols),
		PassengerCount:  rw.intField(passengerCols),
		TripDistanceKM:  distance,
		PULocationID:    rw.intField(puLocationCols),
		DOLocationID:    rw.intField(doLocationCols),
		PickupLat:       rw.floatField(pickupLatCols),
		PickupLon:       rw.floatField(pickupLonCols),
		DropoffLat:      rw.floatField(dropoffLatCols),
		DropoffLon:      rw.floatField(dropoffLonCols),
		PaymentType:     rw.intField(paymentCols),
		StoreAndFwdFlag: rw.stringField(storeFwdCols),
		FareAmount:      rw.floatField(fareCols),
		TipAmount:       rw.floatField(tipCols),
		TotalAmount:     rw.floatField(totalCols),
	}
}
