package csv

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTripReaderRead(t *testing.T) {
	t.Run("yellow cab header aliases", func(t *testing.T) {
		path := writeFile(t, "VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count,trip_distance,PULocationID,DOLocationID,fare_amount,tip_amount,total_amount\n"+
			"2,2019-06-03 08:15:00,2019-06-03 08:27:00,1,2.5,142,237,11.50,2.00,14.30\n")

		records, skipped, err := NewTripReader("mi", testLogger()).Read(path)
		require.NoError(t, err)
		assert.Zero(t, skipped)
		require.Len(t, records, 1)

		r := records[0]
		assert.Equal(t, 1, r.Row)
		require.NotNil(t, r.PickupTime)
		assert.Equal(t, time.Date(2019, 6, 3, 8, 15, 0, 0, time.UTC), *r.PickupTime)
		require.NotNil(t, r.TripDistanceKM)
		assert.InDelta(t, 2.5*1.60934, *r.TripDistanceKM, 1e-9)
		require.NotNil(t, r.PULocationID)
		assert.Equal(t, int64(142), *r.PULocationID)
		require.NotNil(t, r.TotalAmount)
		assert.Equal(t, 14.30, *r.TotalAmount)
	})

	t.Run("km source is not converted", func(t *testing.T) {
		path := writeFile(t, "pickup_datetime,dropoff_datetime,trip_distance_km,pulocationid,dolocationid,total_amount\n"+
			"2019-06-03 08:15:00,2019-06-03 08:27:00,4.0,142,237,14.30\n")

		records, _, err := NewTripReader("km", testLogger()).Read(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0].TripDistanceKM)
		assert.Equal(t, 4.0, *records[0].TripDistanceKM)
	})

	t.Run("null sentinel and blanks become nil fields", func(t *testing.T) {
		path := writeFile(t, `pickup_datetime,dropoff_datetime,trip_distance,pulocationid,dolocationid,total_amount`+"\n"+
			`\N,2019-06-03 08:27:00,2.5,142,,14.30`+"\n")

		records, skipped, err := NewTripReader("mi", testLogger()).Read(path)
		require.NoError(t, err)
		assert.Zero(t, skipped, "cell-level gaps never skip the row")
		require.Len(t, records, 1)
		assert.Nil(t, records[0].PickupTime)
		assert.Nil(t, records[0].DOLocationID)
		assert.NotNil(t, records[0].DropoffTime)
	})

	t.Run("unparseable cells become nil fields", func(t *testing.T) {
		path := writeFile(t, "pickup_datetime,dropoff_datetime,trip_distance,pulocationid,dolocationid,total_amount\n"+
			"not-a-date,2019-06-03 08:27:00,abc,142,237,14.30\n")

		records, _, err := NewTripReader("mi", testLogger()).Read(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Nil(t, records[0].PickupTime)
		assert.Nil(t, records[0].TripDistanceKM)
	})

	t.Run("float-serialized location IDs", func(t *testing.T) {
		path := writeFile(t, "pickup_datetime,dropoff_datetime,trip_distance,pulocationid,dolocationid,total_amount\n"+
			"2019-06-03 08:15:00,2019-06-03 08:27:00,2.5,142.0,237.0,14.30\n")

		records, _, err := NewTripReader("mi", testLogger()).Read(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0].PULocationID)
		assert.Equal(t, int64(142), *records[0].PULocationID)
	})

	t.Run("wrong field count skips the row", func(t *testing.T) {
		path := writeFile(t, "pickup_datetime,dropoff_datetime,trip_distance,pulocationid,dolocationid,total_amount\n"+
			"2019-06-03 08:15:00,2019-06-03 08:27:00,2.5\n"+
			"2019-06-03 09:00:00,2019-06-03 09:20:00,3.1,43,100,18.00\n")

		records, skipped, err := NewTripReader("mi", testLogger()).Read(path)
		require.NoError(t, err)
		assert.Equal(t, 1, skipped)
		require.Len(t, records, 1)
		assert.Equal(t, 2, records[0].Row, "row numbers count skipped rows")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := NewTripReader("mi", testLogger()).Read(filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open trip source")
	})
}

func TestReadZones(t *testing.T) {
	t.Run("standard lookup", func(t *testing.T) {
		path := writeFile(t, "LocationID,Borough,Zone,service_zone\n"+
			"4,Manhattan,Alphabet City,Yellow Zone\n"+
			"138,Queens,LaGuardia Airport,Airports\n")

		zones, err := ReadZones(path)
		require.NoError(t, err)
		require.Len(t, zones, 2)
		assert.Equal(t, int64(4), zones[0].LocationID)
		assert.Equal(t, "Alphabet City", zones[0].Zone)
		assert.Equal(t, "Airports", zones[1].ServiceZone)
	})

	t.Run("rows without an ID are dropped", func(t *testing.T) {
		path := writeFile(t, "locationid,borough,zone,service_zone\n"+
			",Manhattan,Ghost Zone,\n"+
			"7,Queens,Astoria,Boro Zone\n")

		zones, err := ReadZones(path)
		require.NoError(t, err)
		require.Len(t, zones, 1)
		assert.Equal(t, int64(7), zones[0].LocationID)
	})
}

func TestWriteZonesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones_cleaned.csv")
	in := []domain.ZoneRecord{
		{LocationID: 4, Borough: "Manhattan", Zone: "Alphabet City", ServiceZone: "Yellow Zone"},
		{LocationID: 1, Borough: "EWR", Zone: "Newark Airport", ServiceZone: "EWR"},
	}

	require.NoError(t, WriteZones(path, in))

	out, err := ReadZones(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
