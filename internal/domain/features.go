package domain

import (
	"math"
	"time"
)

const (
	// EarthRadiusKM is the mean Earth radius used for great-circle distances.
	EarthRadiusKM = 6371.0

	// MilesToKM converts statute miles to kilometers.
	MilesToKM = 1.60934

	// MaxAvgSpeedKMH is the plausibility ceiling for average trip speed.
	// Exactly 150 km/h is still accepted.
	MaxAvgSpeedKMH = 150.0
)

// NYC bounding box. Coordinates outside it are not plausible taxi trip
// endpoints and invalidate great-circle derivation.
const (
	NYCMinLat = 40.4774
	NYCMaxLat = 40.9176
	NYCMinLon = -74.2591
	NYCMaxLon = -73.7004
)

// Peak-hour windows, half-open: [07,10) mornings and [16,19) evenings,
// weekdays only.
const (
	morningPeakStart = 7
	morningPeakEnd   = 10
	eveningPeakStart = 16
	eveningPeakEnd   = 19
)

// InNYCBounds reports whether a point lies within the NYC bounding box.
func InNYCBounds(p Point) bool {
	return p.Lat >= NYCMinLat && p.Lat <= NYCMaxLat &&
		p.Lon >= NYCMinLon && p.Lon <= NYCMaxLon
}

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return EarthRadiusKM * 2 * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ComputeFeatures derives all feature metrics for an enriched record.
// Checks run in a fixed order and short-circuit: the returned reason is
// the first one the record violates. On success the record is stamped
// with the package clock's current time.
//
// Both the batch feature stage and the per-record processor call this;
// it is the single definition of the feature validity rules.
func ComputeFeatures(rec EnrichedTripRecord) (FeatureRecord, Reason, bool) {
	// Cleaned records always carry these fields; the guard keeps the
	// per-record entry point safe on raw input.
	if rec.PickupTime == nil || rec.DropoffTime == nil ||
		rec.TripDistanceKM == nil || rec.TotalAmount == nil {
		return FeatureRecord{}, ReasonMissingEssentials, false
	}

	duration := rec.DropoffTime.Sub(*rec.PickupTime).Seconds()
	if duration <= 0 {
		return FeatureRecord{}, ReasonInvalidDuration, false
	}

	if rec.PickupPoint == nil || rec.DropoffPoint == nil ||
		!InNYCBounds(*rec.PickupPoint) || !InNYCBounds(*rec.DropoffPoint) {
		return FeatureRecord{}, ReasonInvalidCoordinates, false
	}
	haversine := HaversineKM(*rec.PickupPoint, *rec.DropoffPoint)

	distanceKM := *rec.TripDistanceKM
	speed := distanceKM / (duration / 3600)
	if speed <= 0 || speed > MaxAvgSpeedKMH {
		return FeatureRecord{}, ReasonInvalidSpeed, false
	}

	revenue := *rec.TotalAmount / distanceKM
	if revenue <= 0 {
		return FeatureRecord{}, ReasonInvalidRevenue, false
	}

	hour := rec.PickupTime.Hour()
	weekday := mondayIndexed(rec.PickupTime.Weekday())
	weekend := weekday >= 5

	// Diagnostic ratios, not validity gates. The divisor floor of 1 km
	// keeps short trips from producing unbounded ratios.
	divisor := math.Max(distanceKM, 1)
	idle := clamp01(1 - haversine/divisor)
	efficiency := clamp01(haversine / divisor)

	return FeatureRecord{
		EnrichedTripRecord: rec,
		TripDurationSec:    duration,
		HaversineKM:        haversine,
		AvgSpeedKMH:        speed,
		RevenuePerKM:       revenue,
		PickupHour:         hour,
		PickupWeekday:      weekday,
		IsWeekend:          weekend,
		IsPeakHour:         isPeakHour(hour, weekend),
		IdleTimeRatio:      idle,
		TripEfficiency:     efficiency,
		ProcessedAt:        clock.Now().UTC(),
	}, "", true
}

// isPeakHour reports whether an hour falls in a weekday rush window.
func isPeakHour(hour int, weekend bool) bool {
	if weekend {
		return false
	}
	return (hour >= morningPeakStart && hour < morningPeakEnd) ||
		(hour >= eveningPeakStart && hour < eveningPeakEnd)
}

// mondayIndexed converts Go's Sunday=0 weekday to Monday=0..Sunday=6.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
