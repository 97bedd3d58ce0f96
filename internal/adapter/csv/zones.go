package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

var (
	zoneIDCols      = []string{"locationid", "location_id"}
	zoneBoroughCols = []string{"borough"}
	zoneNameCols    = []string{"zone"}
	serviceZoneCols = []string{"service_zone"}
)

// ReadZones loads the zone lookup: one row per location ID.
func ReadZones(path string) ([]domain.ZoneRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zone lookup %s: %w", path, err)
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read zone header %s: %w", path, err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}

	var zones []domain.ZoneRecord
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read zone lookup %s: %w", path, err)
		}

		rw := make(row, len(header))
		for i, h := range header {
			if i < len(cells) {
				rw[h] = cells[i]
			}
		}

		id := rw.intField(zoneIDCols)
		if id == nil {
			continue
		}
		zones = append(zones, domain.ZoneRecord{
			LocationID:  *id,
			Borough:     rw.stringField(zoneBoroughCols),
			Zone:        rw.stringField(zoneNameCols),
			ServiceZone: rw.stringField(serviceZoneCols),
		})
	}

	return zones, nil
}

// WriteZones persists the cleaned zone table atomically.
func WriteZones(path string, zones []domain.ZoneRecord) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := stdcsv.NewWriter(w)
		if err := cw.Write([]string{"locationid", "borough", "zone", "service_zone"}); err != nil {
			return err
		}
		for _, z := range zones {
			rec := []string{
				strconv.FormatInt(z.LocationID, 10),
				z.Borough,
				z.Zone,
				z.ServiceZone,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
