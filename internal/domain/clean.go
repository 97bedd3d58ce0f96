package domain

// Validity predicates for the cleaning stage. Both the batch stage and
// the per-record processor apply these; the rules live here so the two
// cannot drift.

// MissingEssentials reports whether any field required by every later
// stage is absent: pickup/dropoff timestamps, trip distance, total
// amount, and both location IDs.
func MissingEssentials(r RawTripRecord) bool {
	return r.PickupTime == nil ||
		r.DropoffTime == nil ||
		r.TripDistanceKM == nil ||
		r.TotalAmount == nil ||
		r.PULocationID == nil ||
		r.DOLocationID == nil
}

// LogicalViolation reports whether a record carries a logically
// impossible value: non-positive distance, negative money amounts,
// non-positive passenger count, or a dropoff at or before the pickup.
// Optional fields that are nil do not violate; their absence either
// already failed the essentials filter or is tolerated (passenger count
// and fare amount are not essential).
func LogicalViolation(r RawTripRecord) bool {
	if r.TripDistanceKM != nil && *r.TripDistanceKM <= 0 {
		return true
	}
	if r.TotalAmount != nil && *r.TotalAmount < 0 {
		return true
	}
	if r.FareAmount != nil && *r.FareAmount < 0 {
		return true
	}
	if r.PassengerCount != nil && *r.PassengerCount <= 0 {
		return true
	}
	if r.PickupTime != nil && r.DropoffTime != nil && !r.DropoffTime.After(*r.PickupTime) {
		return true
	}
	return false
}
