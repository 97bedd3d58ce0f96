package pipeline

import (
	"errors"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
)

// ErrNoExclusions is returned by Merge when every batch was empty, so
// callers can skip writing an empty audit artifact. Distinct from an
// empty-but-present ledger slice.
var ErrNoExclusions = errors.New("no excluded records")

// Ledger accumulates every record the pipeline declines to carry
// forward. It is append-only: each stage stamps its batches with its
// own name and entries are never mutated afterwards. One ledger is
// passed by reference through all stages of a run; order is preserved
// within a batch and across batches, so cleaning exclusions always
// precede feature-engineering exclusions in the final artifact.
type Ledger struct {
	entries []domain.ExclusionEntry
}

// NewLedger creates an empty exclusion ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Exclude appends one batch of rejected records, stamped with the
// originating stage and reason.
func (l *Ledger) Exclude(stage domain.Stage, reason domain.Reason, trips []domain.RawTripRecord) {
	for _, t := range trips {
		l.entries = append(l.entries, domain.ExclusionEntry{Trip: t, Stage: stage, Reason: reason})
	}
}

// Restore appends entries recovered from a prior run's audit artifact,
// keeping their original stage and reason stamps. Called before any
// stage of the current run excludes, so restored entries keep their
// place ahead of fresh ones.
func (l *Ledger) Restore(entries []domain.ExclusionEntry) {
	l.entries = append(l.entries, entries...)
}

// Len reports how many records have been excluded so far.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Merge returns the accumulated entries in exclusion order, or
// ErrNoExclusions when nothing was excluded.
func (l *Ledger) Merge() ([]domain.ExclusionEntry, error) {
	if len(l.entries) == 0 {
		return nil, ErrNoExclusions
	}
	return l.entries, nil
}
