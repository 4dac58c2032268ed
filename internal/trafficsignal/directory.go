package trafficsignal

import (
	"sort"
	"sync"

	"github.com/greenroute/greenroute/internal/geo"
)

// Directory is an in-memory registry of known signal specs. It is the
// external-collaborator lookup layer the prediction engine itself never
// touches: handlers resolve signal ids through it before calling into the
// predictor.
type Directory struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{specs: make(map[string]Spec)}
}

// Upsert adds or replaces a signal spec. Invalid specs are rejected.
func (d *Directory) Upsert(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.specs[spec.ID] = spec
	return nil
}

// Get returns the spec for the given id.
func (d *Directory) Get(id string) (Spec, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	spec, ok := d.specs[id]
	if !ok {
		return Spec{}, ErrUnknownSignal
	}
	return spec, nil
}

// Resolve maps a list of signal ids to specs, preserving order.
func (d *Directory) Resolve(ids []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(ids))
	for _, id := range ids {
		spec, err := d.Get(id)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// NearLocation returns all signals within radiusKm of the given point,
// closest first.
func (d *Directory) NearLocation(point geo.Coordinate, radiusKm float64) []Spec {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var nearby []Spec
	for _, spec := range d.specs {
		if point.DistanceKm(spec.Location) <= radiusKm {
			nearby = append(nearby, spec)
		}
	}

	sort.Slice(nearby, func(a, b int) bool {
		da := point.DistanceKm(nearby[a].Location)
		db := point.DistanceKm(nearby[b].Location)
		if da != db {
			return da < db
		}
		return nearby[a].ID < nearby[b].ID
	})

	return nearby
}

// AlongRoute returns the signals within bufferMeters of any waypoint of the
// route polyline, ordered by progression along the route. Each signal
// appears once, attributed to its nearest waypoint.
func (d *Directory) AlongRoute(waypoints []geo.Coordinate, bufferMeters float64) []Spec {
	d.mu.RLock()
	defer d.mu.RUnlock()

	type hit struct {
		spec         Spec
		waypointIdx  int
		distToPointM float64
	}

	hits := make(map[string]hit)
	for _, spec := range d.specs {
		for idx, wp := range waypoints {
			dist := wp.DistanceMeters(spec.Location)
			if dist > bufferMeters {
				continue
			}
			existing, seen := hits[spec.ID]
			if !seen || dist < existing.distToPointM {
				hits[spec.ID] = hit{spec: spec, waypointIdx: idx, distToPointM: dist}
			}
		}
	}

	ordered := make([]hit, 0, len(hits))
	for _, h := range hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(a, b int) bool {
		if ordered[a].waypointIdx != ordered[b].waypointIdx {
			return ordered[a].waypointIdx < ordered[b].waypointIdx
		}
		return ordered[a].spec.ID < ordered[b].spec.ID
	})

	specs := make([]Spec, 0, len(ordered))
	for _, h := range ordered {
		specs = append(specs, h.spec)
	}
	return specs
}

// Len returns the number of registered signals.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.specs)
}
