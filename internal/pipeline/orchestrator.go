package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	csvadapter "github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/adapter/csv"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/adapter/geojson"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/config"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
)

// State tracks orchestrator progress through the run.
type State int32

const (
	StateNotStarted State = iota
	StateZonesLoaded
	StateTripsCleaned
	StateFeaturesEngineered
	StateExclusionsMerged
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateZonesLoaded:
		return "ZONES_LOADED"
	case StateTripsCleaned:
		return "TRIPS_CLEANED"
	case StateFeaturesEngineered:
		return "FEATURES_ENGINEERED"
	case StateExclusionsMerged:
		return "EXCLUSIONS_MERGED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Output artifact names inside the output directory.
const (
	CleanedTripsFile = "cleaned_trips.csv"
	CleanedZonesFile = "zones_cleaned.csv"
	CleanedGeoFile   = "zones_geo_cleaned.geojson"
	ExcludedFile     = "excluded_records.csv"
)

// Manifest stage keys.
const (
	stageZones    = "clean_zones"
	stageGeo      = "clean_geometries"
	stageTrips    = "clean_trips"
	stageFeatures = "feature_engineering"
)

// Summary reports what a run did.
type Summary struct {
	RunID         string
	State         State
	RawRecords    int
	SkippedRows   int
	Accepted      int
	Excluded      int
	StagesSkipped []string
	Duration      time.Duration
}

// Orchestrator sequences the pipeline stages, persists artifacts, and
// skips any stage whose output already exists for the same inputs.
// Re-running a completed pipeline is a no-op; a caller wanting fresh
// output must remove the prior artifacts (or the manifest) first.
type Orchestrator struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runID   string
	state   atomic.Int32
}

// NewOrchestrator creates an orchestrator for one run.
func NewOrchestrator(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.With("run_id", runID),
		metrics: metrics,
		runID:   runID,
	}
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// StateName returns the current state's name, for the status endpoint.
func (o *Orchestrator) StateName() string {
	return o.State().String()
}

// CheckReadiness returns nil once the run has completed, or an error
// naming the state it is still in.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if s := o.State(); s != StateDone {
		return fmt.Errorf("pipeline run in state %s", s)
	}
	return nil
}

// Run executes the full pipeline. The unit of restart is a whole stage:
// cancellation is honored between stages, never mid-stage, and a failed
// stage leaves no partial artifact behind.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)

	o.logger.Info("pipeline starting",
		"trips", o.cfg.TripsPath,
		"zones", o.cfg.ZonesPath,
		"geometries", o.cfg.ZonesGeoPath,
		"output", o.cfg.OutputDir,
	)

	if err := os.MkdirAll(o.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", o.cfg.OutputDir, err)
	}
	manifest, err := LoadManifest(o.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: o.runID}
	ledger := NewLedger()

	trips, zones, geoms, err := o.loadRawData(summary)
	if err != nil {
		return nil, err
	}

	if err := o.runZoneStages(manifest, summary, zones, geoms); err != nil {
		return nil, err
	}
	o.setState(StateZonesLoaded)

	if err := ctx.Err(); err != nil {
		summary.State = o.State()
		return summary, err
	}

	enriched, hasFeatures, cleanSkipped, err := o.runCleanStage(manifest, summary, ledger, trips, zones, geoms)
	if err != nil {
		return nil, err
	}
	o.setState(StateTripsCleaned)

	if err := ctx.Err(); err != nil {
		summary.State = o.State()
		return summary, err
	}

	accepted, err := o.runFeatureStage(manifest, summary, ledger, enriched, hasFeatures, cleanSkipped)
	if err != nil {
		return nil, err
	}
	o.setState(StateFeaturesEngineered)
	summary.Accepted = accepted

	if err := o.runExclusionStage(summary, ledger); err != nil {
		return nil, err
	}
	o.setState(StateExclusionsMerged)

	o.setState(StateDone)
	summary.State = StateDone
	summary.Duration = time.Since(start)
	o.logger.Info("pipeline finished",
		"state", summary.State.String(),
		"raw_records", summary.RawRecords,
		"accepted", summary.Accepted,
		"excluded", summary.Excluded,
		"stages_skipped", summary.StagesSkipped,
		"duration", summary.Duration,
	)
	return summary, nil
}

// loadRawData reads the trip, zone, and geometry sources. Any failure
// here is fatal to the run.
func (o *Orchestrator) loadRawData(summary *Summary) ([]domain.RawTripRecord, []domain.ZoneRecord, []domain.ZoneGeometry, error) {
	reader := csvadapter.NewTripReader(o.cfg.DistanceUnit, o.logger)
	trips, skipped, err := reader.Read(o.cfg.TripsPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load stage: %w", err)
	}
	summary.RawRecords = len(trips)
	summary.SkippedRows = skipped
	o.metrics.RecordsLoaded.Add(float64(len(trips)))
	o.metrics.RowsSkipped.Add(float64(skipped))

	zones, err := csvadapter.ReadZones(o.cfg.ZonesPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load stage: %w", err)
	}

	var geoms []domain.ZoneGeometry
	if o.cfg.ZonesGeoPath != "" {
		geoms, err = geojson.ReadZoneGeometries(o.cfg.ZonesGeoPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load stage: %w", err)
		}
	}

	o.logger.Info("raw data loaded",
		"trip_records", len(trips),
		"skipped_rows", skipped,
		"zones", len(zones),
		"geometries", len(geoms),
	)
	return trips, zones, geoms, nil
}

// runZoneStages persists the cleaned zone table and geometry collection.
func (o *Orchestrator) runZoneStages(manifest *Manifest, summary *Summary, zones []domain.ZoneRecord, geoms []domain.ZoneGeometry) error {
	zonesOut := filepath.Join(o.cfg.OutputDir, CleanedZonesFile)
	fp, err := Fingerprint(o.cfg.ZonesPath)
	if err != nil {
		return fmt.Errorf("zones stage: %w", err)
	}
	if manifest.Done(stageZones, fp) {
		o.skip(summary, stageZones, zonesOut)
	} else {
		if err := o.execute(manifest, stageZones, fp, zonesOut, func() error {
			return csvadapter.WriteZones(zonesOut, zones)
		}); err != nil {
			return err
		}
	}

	if o.cfg.ZonesGeoPath == "" {
		return nil
	}
	geoOut := filepath.Join(o.cfg.OutputDir, CleanedGeoFile)
	fp, err = Fingerprint(o.cfg.ZonesGeoPath)
	if err != nil {
		return fmt.Errorf("geometry stage: %w", err)
	}
	if manifest.Done(stageGeo, fp) {
		o.skip(summary, stageGeo, geoOut)
		return nil
	}
	return o.execute(manifest, stageGeo, fp, geoOut, func() error {
		return geojson.WriteZoneGeometries(geoOut, geoms)
	})
}

// runCleanStage validates and zone-joins the trips, or loads the prior
// artifact when the manifest proves the same inputs were already
// cleaned. Returns the enriched records that feed feature engineering,
// whether they already carry feature columns, and whether the stage
// was skipped.
func (o *Orchestrator) runCleanStage(
	manifest *Manifest,
	summary *Summary,
	ledger *Ledger,
	trips []domain.RawTripRecord,
	zones []domain.ZoneRecord,
	geoms []domain.ZoneGeometry,
) ([]domain.EnrichedTripRecord, bool, bool, error) {
	out := filepath.Join(o.cfg.OutputDir, CleanedTripsFile)
	fp, err := Fingerprint(o.cfg.TripsPath, o.cfg.ZonesPath)
	if err != nil {
		return nil, false, false, fmt.Errorf("clean stage: %w", err)
	}

	if manifest.Done(stageTrips, fp) {
		o.skip(summary, stageTrips, out)
		enriched, hasFeatures, err := csvadapter.ReadCleanedTrips(out)
		if err != nil {
			return nil, false, false, fmt.Errorf("clean stage: reload artifact: %w", err)
		}
		return enriched, hasFeatures, true, nil
	}

	// Recleaning rewrites the shared trip artifact without feature
	// columns, so a prior feature completion no longer describes it.
	if err := manifest.Invalidate(stageFeatures); err != nil {
		return nil, false, false, fmt.Errorf("clean stage: %w", err)
	}

	var enriched []domain.EnrichedTripRecord
	err = o.execute(manifest, stageTrips, fp, out, func() error {
		cleaner := NewCleaner(o.logger, o.metrics)
		enricher := NewEnricher(NewZoneIndex(zones, geoms), o.logger, o.metrics)
		enriched = enricher.Enrich(cleaner.Clean(trips, ledger), ledger)
		if err := csvadapter.WriteEnrichedTrips(out, enriched); err != nil {
			return err
		}
		return o.saveExclusions(ledger)
	})
	if err != nil {
		return nil, false, false, err
	}
	return enriched, false, false, nil
}

// runFeatureStage derives features and rewrites the cleaned-trip
// artifact with the feature columns appended. Skipped when the existing
// artifact already carries them or the manifest records completion.
func (o *Orchestrator) runFeatureStage(
	manifest *Manifest,
	summary *Summary,
	ledger *Ledger,
	enriched []domain.EnrichedTripRecord,
	hasFeatures bool,
	cleanSkipped bool,
) (int, error) {
	out := filepath.Join(o.cfg.OutputDir, CleanedTripsFile)
	fp, err := Fingerprint(o.cfg.TripsPath, o.cfg.ZonesPath)
	if err != nil {
		return 0, fmt.Errorf("feature stage: %w", err)
	}

	if hasFeatures || manifest.Done(stageFeatures, fp) {
		o.skip(summary, stageFeatures, out)
		return len(enriched), nil
	}

	var accepted []domain.FeatureRecord
	err = o.execute(manifest, stageFeatures, fp, out, func() error {
		if cleanSkipped {
			if err := o.restoreCleaningExclusions(ledger); err != nil {
				return err
			}
		}
		engineer := NewFeatureEngineer(o.logger, o.metrics)
		accepted = engineer.Engineer(enriched, ledger)
		if err := csvadapter.WriteFeatureTrips(out, accepted); err != nil {
			return err
		}
		return o.saveExclusions(ledger)
	})
	if err != nil {
		return 0, err
	}
	o.metrics.RecordsAccepted.Add(float64(len(accepted)))
	return len(accepted), nil
}

// runExclusionStage merges the exclusion ledger into the run summary.
// The audit artifact was already persisted by whichever stage produced
// the newest entries; an empty ledger also preserves the prior run's
// artifact when every stage was skipped.
func (o *Orchestrator) runExclusionStage(summary *Summary, ledger *Ledger) error {
	entries, err := ledger.Merge()
	if errors.Is(err, ErrNoExclusions) {
		o.logger.Info("no excluded records to save")
		return nil
	}
	if err != nil {
		return fmt.Errorf("exclusion stage: %w", err)
	}

	summary.Excluded = len(entries)
	o.logger.Info("excluded records saved",
		"path", filepath.Join(o.cfg.OutputDir, ExcludedFile),
		"count", len(entries),
	)
	return nil
}

// saveExclusions persists the ledger next to the stage artifact whose
// commit it belongs to, so an interruption after the stage never loses
// exclusions that stage already decided. Writes nothing while the
// ledger is empty.
func (o *Orchestrator) saveExclusions(ledger *Ledger) error {
	entries, err := ledger.Merge()
	if errors.Is(err, ErrNoExclusions) {
		return nil
	}
	if err != nil {
		return err
	}
	return csvadapter.WriteExclusions(filepath.Join(o.cfg.OutputDir, ExcludedFile), entries)
}

// restoreCleaningExclusions reloads the cleaning-stage entries from the
// prior run's audit artifact, so re-running feature engineering alone
// still rewrites a complete exclusion record.
func (o *Orchestrator) restoreCleaningExclusions(ledger *Ledger) error {
	entries, err := csvadapter.ReadExclusions(filepath.Join(o.cfg.OutputDir, ExcludedFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var prior []domain.ExclusionEntry
	for _, e := range entries {
		if e.Stage == domain.StageCleaning {
			prior = append(prior, e)
		}
	}
	ledger.Restore(prior)
	if len(prior) > 0 {
		o.logger.Info("restored exclusions from prior run", "count", len(prior))
	}
	return nil
}

// execute runs one stage body, times it, and records completion in the
// manifest only after the artifact write succeeded.
func (o *Orchestrator) execute(manifest *Manifest, stage, fingerprint, output string, body func() error) error {
	start := time.Now()
	o.logger.Info("stage starting", "stage", stage)
	if err := body(); err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	o.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err := manifest.Record(stage, fingerprint, output, o.runID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	o.logger.Info("stage finished", "stage", stage, "output", output, "duration", time.Since(start))
	return nil
}

// skip logs and counts a stage that reused its existing artifact.
func (o *Orchestrator) skip(summary *Summary, stage, output string) {
	summary.StagesSkipped = append(summary.StagesSkipped, stage)
	o.metrics.StagesSkipped.WithLabelValues(stage).Inc()
	o.logger.Info("stage skipped, output already exists", "stage", stage, "output", output)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.logger.Debug("state transition", "state", s.String())
}
