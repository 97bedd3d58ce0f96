package pipeline

import (
	"log/slog"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
)

// Cleaner applies the record-validity filters in fixed order:
// missing essentials, then logical violations, then duplicates. Each
// filter partitions its input disjointly, so a record's exclusion
// reason is always the first filter it failed and no record re-enters
// a later filter's input.
type Cleaner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCleaner creates the validation stage.
func NewCleaner(logger *slog.Logger, metrics *observability.Metrics) *Cleaner {
	return &Cleaner{logger: logger, metrics: metrics}
}

// Clean filters the raw records, diverting every rejected record into
// the ledger, and returns the survivors in arrival order.
func (c *Cleaner) Clean(trips []domain.RawTripRecord, ledger *Ledger) []domain.RawTripRecord {
	kept, missing := partition(trips, domain.MissingEssentials)
	c.exclude(ledger, domain.ReasonMissingEssentials, missing)

	kept, invalid := partition(kept, domain.LogicalViolation)
	c.exclude(ledger, domain.ReasonInvalidLogical, invalid)

	// Duplicate detection keeps the first arrival of each key; arrival
	// order is what makes re-runs deterministic.
	seen := make(map[domain.DuplicateKey]struct{}, len(kept))
	deduped := kept[:0]
	var duplicates []domain.RawTripRecord
	for _, t := range kept {
		key := t.Key()
		if _, dup := seen[key]; dup {
			duplicates = append(duplicates, t)
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, t)
	}
	c.exclude(ledger, domain.ReasonDuplicateTrip, duplicates)

	c.logger.Info("trip cleaning finished",
		"input", len(trips),
		"kept", len(deduped),
		"missing_essential_values", len(missing),
		"invalid_logical_values", len(invalid),
		"duplicate_trip", len(duplicates),
	)
	return deduped
}

func (c *Cleaner) exclude(ledger *Ledger, reason domain.Reason, trips []domain.RawTripRecord) {
	if len(trips) == 0 {
		return
	}
	ledger.Exclude(domain.StageCleaning, reason, trips)
	c.metrics.RecordsExcluded.
		WithLabelValues(string(domain.StageCleaning), string(reason)).
		Add(float64(len(trips)))
}

// partition splits records into (kept, rejected) by the given predicate,
// preserving relative order on both sides.
func partition(trips []domain.RawTripRecord, reject func(domain.RawTripRecord) bool) (kept, rejected []domain.RawTripRecord) {
	kept = make([]domain.RawTripRecord, 0, len(trips))
	for _, t := range trips {
		if reject(t) {
			rejected = append(rejected, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, rejected
}
