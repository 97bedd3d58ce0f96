package pipeline

import (
	"log/slog"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
)

// FeatureEngineer derives the feature metrics for enriched records.
// The validity rules and formulas live in domain.ComputeFeatures; this
// stage only adapts them to the two consumption shapes — whole-batch
// (the pipeline's path) and single-record (Process, for callers that
// stream trips through one at a time). Both shapes partition records
// identically because every rule is per-record.
type FeatureEngineer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFeatureEngineer creates the feature-derivation stage.
func NewFeatureEngineer(logger *slog.Logger, metrics *observability.Metrics) *FeatureEngineer {
	return &FeatureEngineer{logger: logger, metrics: metrics}
}

// Process derives features for one record. On failure it returns the
// exclusion entry carrying the first reason the record violated.
func (f *FeatureEngineer) Process(rec domain.EnrichedTripRecord) (domain.FeatureRecord, *domain.ExclusionEntry) {
	out, reason, ok := domain.ComputeFeatures(rec)
	if !ok {
		f.metrics.RecordsExcluded.
			WithLabelValues(string(domain.StageFeatureEngineering), string(reason)).
			Inc()
		return domain.FeatureRecord{}, &domain.ExclusionEntry{
			Trip:   rec.RawTripRecord,
			Stage:  domain.StageFeatureEngineering,
			Reason: reason,
		}
	}
	return out, nil
}

// Engineer derives features for a batch, diverting failures into the
// ledger and returning the accepted records in input order.
func (f *FeatureEngineer) Engineer(trips []domain.EnrichedTripRecord, ledger *Ledger) []domain.FeatureRecord {
	accepted := make([]domain.FeatureRecord, 0, len(trips))
	byReason := make(map[domain.Reason]int)

	for _, t := range trips {
		rec, excl := f.Process(t)
		if excl != nil {
			ledger.Exclude(excl.Stage, excl.Reason, []domain.RawTripRecord{excl.Trip})
			byReason[excl.Reason]++
			continue
		}
		accepted = append(accepted, rec)
	}

	f.logger.Info("feature engineering finished",
		"input", len(trips),
		"accepted", len(accepted),
		"invalid_trip_duration", byReason[domain.ReasonInvalidDuration],
		"invalid_coordinates", byReason[domain.ReasonInvalidCoordinates],
		"invalid_average_speed", byReason[domain.ReasonInvalidSpeed],
		"invalid_revenue_per_km", byReason[domain.ReasonInvalidRevenue],
	)
	return accepted
}
