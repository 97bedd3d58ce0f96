// Package domain models NYC yellow-taxi trip records and the rules that
// decide whether a trip survives the cleaning pipeline.
//
// # Data Source
//
// Trip records follow the TLC yellow tripdata layout: pickup/dropoff
// timestamps (tpep_pickup_datetime, tpep_dropoff_datetime), pickup and
// dropoff location IDs keyed against the TLC taxi zone lookup, trip
// distance in statute miles, fare components, passenger count, a numeric
// payment-type code, and the store-and-forward flag. Older exports carry
// raw pickup/dropoff coordinates instead of location IDs; both shapes are
// supported.
//
// # Units
//
// Reported trip distance arrives in miles and is converted to kilometers
// once, at load time, with the factor [MilesToKM]. Every distance in this
// package is kilometers; every speed is km/h.
//
// # Validity
//
// Cleaning applies three filters in a fixed order, and a record's
// exclusion reason is always the first filter it violates:
//
//	missing_essential_values  any of {pickup time, dropoff time, distance,
//	                          total amount, PU location, DO location} absent
//	invalid_logical_values    distance ≤ 0, total < 0, fare < 0,
//	                          passengers ≤ 0, or dropoff ≤ pickup
//	duplicate_trip            same (pickup, dropoff, PU, DO) key as an
//	                          earlier record; the first arrival is kept
//
// Feature derivation adds a second pass with its own reasons:
// invalid_trip_duration, invalid_coordinates (outside the NYC bounding
// box), invalid_average_speed (over 150 km/h), invalid_revenue_per_km.
//
// # Feature formulas
//
// Great-circle distances use the haversine formula with an Earth radius
// of 6371.0 km. Average speed is reported distance over duration; revenue
// per km is total amount over reported distance. Peak hours are the
// half-open weekday windows [07,10) and [16,19). Idle-time ratio and trip
// efficiency compare haversine to reported distance with a 1 km divisor
// floor, both clamped to [0,1].
package domain
