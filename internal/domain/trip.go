package domain

import (
	"time"
)

// RawTripRecord is one ride event as ingested from the trip source.
// Optional fields are pointers: nil means the source cell was empty,
// the `\N` sentinel, or failed to parse. Records are immutable once
// read; a record's lifecycle ends when it is accepted or excluded.
type RawTripRecord struct {
	// Row is the 1-based data row number in the source file, used in
	// warnings and to keep exclusion output in arrival order.
	Row int

	VendorID        *int64
	PickupTime      *time.Time
	DropoffTime     *time.Time
	PassengerCount  *int64
	TripDistanceKM  *float64 // unit-normalized to km at load time
	PULocationID    *int64
	DOLocationID    *int64
	PickupLat       *float64
	PickupLon       *float64
	DropoffLat      *float64
	DropoffLon      *float64
	PaymentType     *int64
	StoreAndFwdFlag string
	FareAmount      *float64
	TipAmount       *float64
	TotalAmount     *float64
}

// DuplicateKey identifies a trip for duplicate detection. Two physically
// different trips sharing timestamps and zone pair collide on purpose;
// the upstream data has no stronger identity to key on.
type DuplicateKey struct {
	PickupUnix  int64
	DropoffUnix int64
	PULocation  int64
	DOLocation  int64
}

// Key returns the duplicate-detection key for a record. It must only be
// called on records that passed the missing-essentials filter, which
// guarantees the timestamp and location fields are non-nil.
func (r RawTripRecord) Key() DuplicateKey {
	return DuplicateKey{
		PickupUnix:  r.PickupTime.Unix(),
		DropoffUnix: r.DropoffTime.Unix(),
		PULocation:  *r.PULocationID,
		DOLocation:  *r.DOLocationID,
	}
}

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// EnrichedTripRecord is a RawTripRecord with both sides of the zone join
// resolved. Pickup and dropoff zone names are always non-empty; a record
// with either side unmatched is excluded before this type is produced.
type EnrichedTripRecord struct {
	RawTripRecord

	PickupBorough  string
	PickupZone     string
	DropoffBorough string
	DropoffZone    string

	// Resolved coordinates for great-circle computations: the raw
	// coordinates when the source carried them, otherwise the center of
	// the matched zone's bounding box. Nil when neither is available.
	PickupPoint  *Point
	DropoffPoint *Point
}

// FeatureRecord is an EnrichedTripRecord plus derived metrics. Every
// numeric field is the result of a successful computation; records
// failing any feature validity check are diverted to exclusion and
// never reach this type.
type FeatureRecord struct {
	EnrichedTripRecord

	TripDurationSec float64
	HaversineKM     float64
	AvgSpeedKMH     float64
	RevenuePerKM    float64
	PickupHour      int // 0-23
	PickupWeekday   int // Monday=0 .. Sunday=6
	IsWeekend       bool
	IsPeakHour      bool
	IdleTimeRatio   float64 // clamped to [0,1]
	TripEfficiency  float64 // clamped to [0,1]

	ProcessedAt time.Time
}

// Stage names a pipeline stage for exclusion bookkeeping.
type Stage string

const (
	StageCleaning           Stage = "cleaning"
	StageFeatureEngineering Stage = "feature_engineering"
)

// Reason is a machine-readable exclusion reason.
type Reason string

const (
	ReasonMissingEssentials  Reason = "missing_essential_values"
	ReasonInvalidLogical     Reason = "invalid_logical_values"
	ReasonDuplicateTrip      Reason = "duplicate_trip"
	ReasonUnmatchedZone      Reason = "unmatched_zone_lookup"
	ReasonInvalidDuration    Reason = "invalid_trip_duration"
	ReasonInvalidCoordinates Reason = "invalid_coordinates"
	ReasonInvalidSpeed       Reason = "invalid_average_speed"
	ReasonInvalidRevenue     Reason = "invalid_revenue_per_km"
)

// ExclusionEntry is a discarded record tagged with the stage that
// rejected it and the first reason that applied. Entries are never
// mutated after creation.
type ExclusionEntry struct {
	Trip   RawTripRecord
	Stage  Stage
	Reason Reason
}

// ZoneRecord is one row of the zone lookup: a named service area keyed
// by location ID and grouped under a borough. Loaded once per run and
// read-only during trip processing.
type ZoneRecord struct {
	LocationID  int64
	Borough     string
	Zone        string
	ServiceZone string
}
