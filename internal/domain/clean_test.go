package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }

func ptrI(v int64) *int64 { return &v }

func ptrT(v time.Time) *time.Time { return &v }

// validRaw returns a record that passes both cleaning filters.
func validRaw() RawTripRecord {
	pickup := time.Date(2019, 6, 3, 8, 15, 0, 0, time.UTC)
	dropoff := pickup.Add(12 * time.Minute)
	return RawTripRecord{
		Row:            2,
		VendorID:       ptrI(1),
		PickupTime:     ptrT(pickup),
		DropoffTime:    ptrT(dropoff),
		PassengerCount: ptrI(2),
		TripDistanceKM: ptrF(3.4),
		PULocationID:   ptrI(142),
		DOLocationID:   ptrI(237),
		FareAmount:     ptrF(11.5),
		TipAmount:      ptrF(2.0),
		TotalAmount:    ptrF(14.3),
	}
}

func TestMissingEssentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RawTripRecord)
		missing bool
	}{
		{"complete record", func(r *RawTripRecord) {}, false},
		{"nil pickup time", func(r *RawTripRecord) { r.PickupTime = nil }, true},
		{"nil dropoff time", func(r *RawTripRecord) { r.DropoffTime = nil }, true},
		{"nil distance", func(r *RawTripRecord) { r.TripDistanceKM = nil }, true},
		{"nil total amount", func(r *RawTripRecord) { r.TotalAmount = nil }, true},
		{"nil pickup location", func(r *RawTripRecord) { r.PULocationID = nil }, true},
		{"nil dropoff location", func(r *RawTripRecord) { r.DOLocationID = nil }, true},
		{"nil fare is tolerated", func(r *RawTripRecord) { r.FareAmount = nil }, false},
		{"nil passenger count is tolerated", func(r *RawTripRecord) { r.PassengerCount = nil }, false},
		{"nil vendor is tolerated", func(r *RawTripRecord) { r.VendorID = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRaw()
			tt.mutate(&rec)
			assert.Equal(t, tt.missing, MissingEssentials(rec))
		})
	}
}

func TestLogicalViolation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*RawTripRecord)
		violates bool
	}{
		{"valid record", func(r *RawTripRecord) {}, false},
		{"zero distance", func(r *RawTripRecord) { r.TripDistanceKM = ptrF(0) }, true},
		{"negative distance", func(r *RawTripRecord) { r.TripDistanceKM = ptrF(-1.2) }, true},
		{"negative total", func(r *RawTripRecord) { r.TotalAmount = ptrF(-0.01) }, true},
		{"zero total is allowed", func(r *RawTripRecord) { r.TotalAmount = ptrF(0) }, false},
		{"negative fare", func(r *RawTripRecord) { r.FareAmount = ptrF(-3) }, true},
		{"zero passengers", func(r *RawTripRecord) { r.PassengerCount = ptrI(0) }, true},
		{"negative passengers", func(r *RawTripRecord) { r.PassengerCount = ptrI(-1) }, true},
		{"dropoff equals pickup", func(r *RawTripRecord) { r.DropoffTime = r.PickupTime }, true},
		{"dropoff before pickup", func(r *RawTripRecord) {
			r.DropoffTime = ptrT(r.PickupTime.Add(-time.Minute))
		}, true},
		{"nil optional fields do not violate", func(r *RawTripRecord) {
			r.FareAmount = nil
			r.PassengerCount = nil
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRaw()
			tt.mutate(&rec)
			assert.Equal(t, tt.violates, LogicalViolation(rec))
		})
	}
}

func TestDuplicateKey(t *testing.T) {
	t.Run("same identity collides", func(t *testing.T) {
		a := validRaw()
		b := validRaw()
		b.Row = 99
		b.FareAmount = ptrF(50) // fare is not part of the identity
		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("different pickup time does not collide", func(t *testing.T) {
		a := validRaw()
		b := validRaw()
		b.PickupTime = ptrT(a.PickupTime.Add(time.Second))
		assert.NotEqual(t, a.Key(), b.Key())
	})

	t.Run("different zone pair does not collide", func(t *testing.T) {
		a := validRaw()
		b := validRaw()
		b.DOLocationID = ptrI(1)
		assert.NotEqual(t, a.Key(), b.Key())
	})
}
