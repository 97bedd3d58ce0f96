package pipeline

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/domain"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
)

// ZoneIndex is the hash-join side of zone enrichment: one map from
// location ID to zone record, built once per run and probed per trip,
// plus a bounding-box index over the zone geometries for the
// coordinate-fallback join. Read-only after construction.
type ZoneIndex struct {
	byID       map[int64]domain.ZoneRecord
	centerByID map[int64]domain.Point
	boxes      []indexedBox
}

type indexedBox struct {
	box  domain.BoundingBox
	zone domain.ZoneRecord
	area float64
}

// NewZoneIndex builds the join index from the zone lookup and the
// optional geometry catalog. Geometry-only zones (present in the
// polygon file but missing from the lookup) are still joinable through
// the geometry's own borough/zone properties.
func NewZoneIndex(zones []domain.ZoneRecord, geoms []domain.ZoneGeometry) *ZoneIndex {
	ix := &ZoneIndex{
		byID:       make(map[int64]domain.ZoneRecord, len(zones)),
		centerByID: make(map[int64]domain.Point, len(geoms)),
	}
	for _, z := range zones {
		ix.byID[z.LocationID] = z
	}
	for _, g := range geoms {
		b := g.Bounds()
		ix.centerByID[g.LocationID] = b.Center()

		zone, ok := ix.byID[g.LocationID]
		if !ok {
			zone = domain.ZoneRecord{
				LocationID:  g.LocationID,
				Borough:     g.Borough,
				Zone:        g.Zone,
				ServiceZone: g.ServiceZone,
			}
		}
		ix.boxes = append(ix.boxes, indexedBox{box: b, zone: zone, area: b.Area()})
	}
	// Smallest box first, location ID as tiebreaker: overlap resolution
	// must be deterministic across runs.
	sort.Slice(ix.boxes, func(i, j int) bool {
		if ix.boxes[i].area != ix.boxes[j].area {
			return ix.boxes[i].area < ix.boxes[j].area
		}
		return ix.boxes[i].zone.LocationID < ix.boxes[j].zone.LocationID
	})
	return ix
}

// ByID probes the location-ID join key.
func (ix *ZoneIndex) ByID(id int64) (domain.ZoneRecord, bool) {
	z, ok := ix.byID[id]
	return z, ok
}

// ByPoint resolves a coordinate to the smallest zone bounding box that
// contains it. This is the fallback join for sources that carry raw
// coordinates instead of location IDs.
func (ix *ZoneIndex) ByPoint(p domain.Point) (domain.ZoneRecord, bool) {
	for _, ib := range ix.boxes {
		if ib.box.Contains(p) {
			return ib.zone, true
		}
	}
	return domain.ZoneRecord{}, false
}

// Center returns the representative coordinate for a zone, when its
// geometry is known.
func (ix *ZoneIndex) Center(id int64) *domain.Point {
	p, ok := ix.centerByID[id]
	if !ok {
		return nil
	}
	return &p
}

// Enricher joins each trip's pickup and dropoff side against the zone
// catalog. The join is left-outer: unmatched trips pass through the
// join itself, then get excluded with unmatched_zone_lookup. Borough
// title-casing and flag upper-casing happen after the join so
// normalization can never affect key matching.
type Enricher struct {
	index   *ZoneIndex
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates the zone-enrichment stage over a built index.
func NewEnricher(index *ZoneIndex, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{index: index, logger: logger, metrics: metrics}
}

// Enrich resolves both sides of every trip, diverting trips with an
// unmatched side into the ledger.
func (e *Enricher) Enrich(trips []domain.RawTripRecord, ledger *Ledger) []domain.EnrichedTripRecord {
	enriched := make([]domain.EnrichedTripRecord, 0, len(trips))
	var unmatched []domain.RawTripRecord

	for _, t := range trips {
		pickup, pickupPt, okPU := e.resolveSide(t.PULocationID, t.PickupLat, t.PickupLon)
		dropoff, dropoffPt, okDO := e.resolveSide(t.DOLocationID, t.DropoffLat, t.DropoffLon)
		if !okPU || !okDO {
			unmatched = append(unmatched, t)
			continue
		}

		rec := domain.EnrichedTripRecord{
			RawTripRecord:  t,
			PickupBorough:  titleCase(pickup.Borough),
			PickupZone:     pickup.Zone,
			DropoffBorough: titleCase(dropoff.Borough),
			DropoffZone:    dropoff.Zone,
			PickupPoint:    pickupPt,
			DropoffPoint:   dropoffPt,
		}
		rec.StoreAndFwdFlag = strings.ToUpper(rec.StoreAndFwdFlag)
		enriched = append(enriched, rec)
	}

	if len(unmatched) > 0 {
		ledger.Exclude(domain.StageCleaning, domain.ReasonUnmatchedZone, unmatched)
		e.metrics.RecordsExcluded.
			WithLabelValues(string(domain.StageCleaning), string(domain.ReasonUnmatchedZone)).
			Add(float64(len(unmatched)))
	}

	e.logger.Info("zone enrichment finished",
		"input", len(trips),
		"matched", len(enriched),
		"unmatched_zone_lookup", len(unmatched),
	)
	return enriched
}

// resolveSide joins one side of a trip: location ID when present,
// coordinate containment otherwise. The returned point is the side's
// resolved coordinate: raw when the source carried one, else the
// matched zone's bounding-box center.
func (e *Enricher) resolveSide(id *int64, lat, lon *float64) (domain.ZoneRecord, *domain.Point, bool) {
	var raw *domain.Point
	if lat != nil && lon != nil {
		raw = &domain.Point{Lat: *lat, Lon: *lon}
	}

	if id != nil {
		zone, ok := e.index.ByID(*id)
		if !ok {
			return domain.ZoneRecord{}, nil, false
		}
		pt := raw
		if pt == nil {
			pt = e.index.Center(*id)
		}
		return zone, pt, true
	}

	if raw != nil {
		zone, ok := e.index.ByPoint(*raw)
		if !ok {
			return domain.ZoneRecord{}, nil, false
		}
		return zone, raw, true
	}

	return domain.ZoneRecord{}, nil, false
}

// titleCase capitalizes each space-separated word. Short all-caps
// tokens like EWR are borough codes, not words, and pass through.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 3 && w == strings.ToUpper(w) {
			continue
		}
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}
