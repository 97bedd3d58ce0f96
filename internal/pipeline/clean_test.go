package pipeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
)

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func ts(v time.Time) *time.Time { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// goodTrip builds a record that survives cleaning, offset by n minutes
// so each call yields a distinct duplicate key.
func goodTrip(n int) domain.RawTripRecord {
	pickup := time.Date(2019, 6, 3, 8, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute)
	dropoff := pickup.Add(10 * time.Minute)
	return domain.RawTripRecord{
		Row:            n + 1,
		PickupTime:     ts(pickup),
		DropoffTime:    ts(dropoff),
		PassengerCount: i64(1),
		TripDistanceKM: f64(3.0),
		PULocationID:   i64(142),
		DOLocationID:   i64(237),
		TotalAmount:    f64(12.0),
	}
}

func TestCleanerClean(t *testing.T) {
	cleaner := NewCleaner(testLogger(), observability.NewMetricsForTesting())

	t.Run("filters run in order and partition disjointly", func(t *testing.T) {
		missing := goodTrip(0)
		missing.PickupTime = nil
		missing.TripDistanceKM = f64(-1) // would also violate, but essentials wins

		invalid := goodTrip(1)
		invalid.TripDistanceKM = f64(0)

		keeper := goodTrip(2)
		dup := keeper // same key, later arrival

		ledger := NewLedger()
		kept := cleaner.Clean([]domain.RawTripRecord{missing, invalid, keeper, dup}, ledger)

		require.Len(t, kept, 1)
		assert.Equal(t, keeper.Row, kept[0].Row)

		entries, err := ledger.Merge()
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, domain.ReasonMissingEssentials, entries[0].Reason)
		assert.Equal(t, domain.ReasonInvalidLogical, entries[1].Reason)
		assert.Equal(t, domain.ReasonDuplicateTrip, entries[2].Reason)
		for _, e := range entries {
			assert.Equal(t, domain.StageCleaning, e.Stage)
		}
	})

	t.Run("duplicate detection keeps the first arrival", func(t *testing.T) {
		first := goodTrip(0)
		second := goodTrip(0)
		second.Row = 50
		second.TotalAmount = f64(99) // fare differences do not break the tie

		ledger := NewLedger()
		kept := cleaner.Clean([]domain.RawTripRecord{first, second}, ledger)

		require.Len(t, kept, 1)
		assert.Equal(t, first.Row, kept[0].Row)

		entries, err := ledger.Merge()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 50, entries[0].Trip.Row)
	})

	t.Run("clean input passes through in arrival order", func(t *testing.T) {
		trips := []domain.RawTripRecord{goodTrip(0), goodTrip(1), goodTrip(2)}
		ledger := NewLedger()

		kept := cleaner.Clean(trips, ledger)

		require.Len(t, kept, 3)
		for i, k := range kept {
			assert.Equal(t, trips[i].Row, k.Row)
		}
		assert.Zero(t, ledger.Len())
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		trips := []domain.RawTripRecord{goodTrip(0), goodTrip(1), goodTrip(0)}

		first := cleaner.Clean(append([]domain.RawTripRecord{}, trips...), NewLedger())
		second := cleaner.Clean(append([]domain.RawTripRecord{}, trips...), NewLedger())

		assert.Equal(t, first, second)
	})
}

func TestLedger(t *testing.T) {
	t.Run("empty ledger merge", func(t *testing.T) {
		_, err := NewLedger().Merge()
		require.ErrorIs(t, err, ErrNoExclusions)
	})

	t.Run("preserves batch order across stages", func(t *testing.T) {
		ledger := NewLedger()
		ledger.Exclude(domain.StageCleaning, domain.ReasonMissingEssentials,
			[]domain.RawTripRecord{{Row: 1}, {Row: 2}})
		ledger.Exclude(domain.StageFeatureEngineering, domain.ReasonInvalidSpeed,
			[]domain.RawTripRecord{{Row: 3}})

		assert.Equal(t, 3, ledger.Len())

		entries, err := ledger.Merge()
		require.NoError(t, err)
		assert.Equal(t, 1, entries[0].Trip.Row)
		assert.Equal(t, 2, entries[1].Trip.Row)
		assert.Equal(t, domain.StageCleaning, entries[1].Stage)
		assert.Equal(t, 3, entries[2].Trip.Row)
		assert.Equal(t, domain.StageFeatureEngineering, entries[2].Stage)
	})
}
