package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validEnriched returns an enriched record whose derived features all
// pass: Monday 2019-06-03 08:15 pickup, 6 minute ride, 2.5 km, $8.00.
func validEnriched() EnrichedTripRecord {
	rec := EnrichedTripRecord{
		RawTripRecord:  validRaw(),
		PickupBorough:  "Manhattan",
		PickupZone:     "Midtown Center",
		DropoffBorough: "Manhattan",
		DropoffZone:    "Murray Hill",
		PickupPoint:    &Point{Lat: 40.75, Lon: -73.99},
		DropoffPoint:   &Point{Lat: 40.76, Lon: -73.97},
	}
	rec.DropoffTime = ptrT(rec.PickupTime.Add(6 * time.Minute))
	rec.TripDistanceKM = ptrF(2.5)
	rec.TotalAmount = ptrF(8.0)
	return rec
}

func TestHaversineKM(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		p := Point{Lat: 40.7580, Lon: -73.9855}
		assert.Equal(t, 0.0, HaversineKM(p, p))
	})

	t.Run("midtown crosstown hop", func(t *testing.T) {
		d := HaversineKM(Point{Lat: 40.75, Lon: -73.99}, Point{Lat: 40.76, Lon: -73.97})
		assert.InDelta(t, 2.0185, d, 0.001)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 40.6413, Lon: -73.7781} // JFK
		b := Point{Lat: 40.7769, Lon: -73.8740} // LGA
		assert.InDelta(t, HaversineKM(a, b), HaversineKM(b, a), 1e-12)
	})
}

func TestInNYCBounds(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		inside bool
	}{
		{"times square", Point{40.7580, -73.9855}, true},
		{"south-west corner", Point{NYCMinLat, NYCMinLon}, true},
		{"north-east corner", Point{NYCMaxLat, NYCMaxLon}, true},
		{"philadelphia", Point{39.9526, -75.1652}, false},
		{"latitude just above box", Point{NYCMaxLat + 0.0001, -73.98}, false},
		{"longitude west of box", Point{40.75, -74.30}, false},
		{"zero island", Point{0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, InNYCBounds(tt.point))
		})
	}
}

func TestComputeFeatures(t *testing.T) {
	frozen := time.Date(2019, 6, 10, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	t.Run("valid trip", func(t *testing.T) {
		got, reason, ok := ComputeFeatures(validEnriched())

		require.True(t, ok)
		assert.Empty(t, reason)
		assert.Equal(t, 360.0, got.TripDurationSec)
		assert.InDelta(t, 2.0185, got.HaversineKM, 0.001)
		assert.InDelta(t, 25.0, got.AvgSpeedKMH, 1e-9)
		assert.InDelta(t, 3.2, got.RevenuePerKM, 1e-9)
		assert.Equal(t, 8, got.PickupHour)
		assert.Equal(t, 0, got.PickupWeekday) // Monday
		assert.False(t, got.IsWeekend)
		assert.True(t, got.IsPeakHour)
		assert.InDelta(t, 0.1926, got.IdleTimeRatio, 0.001)
		assert.InDelta(t, 0.8074, got.TripEfficiency, 0.001)
		assert.Equal(t, frozen, got.ProcessedAt)
	})

	t.Run("two kilometer crosstown trip", func(t *testing.T) {
		rec := validEnriched()
		rec.TripDistanceKM = ptrF(2.0)

		got, _, ok := ComputeFeatures(rec)
		require.True(t, ok)
		assert.InDelta(t, 20.0, got.AvgSpeedKMH, 1e-9)
		assert.InDelta(t, 4.0, got.RevenuePerKM, 1e-9)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		rec := validEnriched()
		rec.DropoffTime = rec.PickupTime

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidDuration, reason)
	})

	t.Run("missing resolved coordinates", func(t *testing.T) {
		rec := validEnriched()
		rec.PickupPoint = nil

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidCoordinates, reason)
	})

	t.Run("coordinates outside the city", func(t *testing.T) {
		rec := validEnriched()
		rec.DropoffPoint = &Point{Lat: 39.9526, Lon: -75.1652}

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidCoordinates, reason)
	})

	t.Run("speed at exactly the ceiling is accepted", func(t *testing.T) {
		rec := validEnriched()
		rec.TripDistanceKM = ptrF(15.0) // 15 km in 360s = 150 km/h

		got, reason, ok := ComputeFeatures(rec)
		require.True(t, ok, "reason: %s", reason)
		assert.InDelta(t, 150.0, got.AvgSpeedKMH, 1e-9)
	})

	t.Run("speed above the ceiling is rejected", func(t *testing.T) {
		rec := validEnriched()
		rec.TripDistanceKM = ptrF(15.01)

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidSpeed, reason)
	})

	t.Run("zero total amount fails the revenue check", func(t *testing.T) {
		rec := validEnriched()
		rec.TotalAmount = ptrF(0)

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidRevenue, reason)
	})

	t.Run("raw record without essentials", func(t *testing.T) {
		rec := validEnriched()
		rec.TotalAmount = nil

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonMissingEssentials, reason)
	})

	t.Run("duration check runs before coordinate check", func(t *testing.T) {
		rec := validEnriched()
		rec.DropoffTime = ptrT(rec.PickupTime.Add(-time.Minute))
		rec.PickupPoint = nil

		_, reason, ok := ComputeFeatures(rec)
		require.False(t, ok)
		assert.Equal(t, ReasonInvalidDuration, reason)
	})

	t.Run("sub-kilometer trip ratios stay in range", func(t *testing.T) {
		rec := validEnriched()
		rec.TripDistanceKM = ptrF(0.3)
		rec.DropoffPoint = &Point{Lat: 40.7505, Lon: -73.9890}
		rec.DropoffTime = ptrT(rec.PickupTime.Add(3 * time.Minute))

		got, _, ok := ComputeFeatures(rec)
		require.True(t, ok)
		assert.GreaterOrEqual(t, got.IdleTimeRatio, 0.0)
		assert.LessOrEqual(t, got.IdleTimeRatio, 1.0)
		assert.GreaterOrEqual(t, got.TripEfficiency, 0.0)
		assert.LessOrEqual(t, got.TripEfficiency, 1.0)
	})
}

func TestIsPeakHour(t *testing.T) {
	tests := []struct {
		hour    int
		weekend bool
		peak    bool
	}{
		{6, false, false},
		{7, false, true},
		{9, false, true},
		{10, false, false},
		{15, false, false},
		{16, false, true},
		{18, false, true},
		{19, false, false},
		{8, true, false},
		{17, true, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.peak, isPeakHour(tt.hour, tt.weekend),
			"hour=%d weekend=%v", tt.hour, tt.weekend)
	}
}

func TestMondayIndexed(t *testing.T) {
	assert.Equal(t, 0, mondayIndexed(time.Monday))
	assert.Equal(t, 4, mondayIndexed(time.Friday))
	assert.Equal(t, 5, mondayIndexed(time.Saturday))
	assert.Equal(t, 6, mondayIndexed(time.Sunday))
}
