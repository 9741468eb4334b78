// Package measure provides millimeter distance measurements drawn on slices.
// Measurements are stored per slice index: a measurement exists only on the
// slice it was drawn on.
package measure

import (
	"math"
	"sort"

	"ct-viewer/internal/volume"
	"ct-viewer/pkg/geometry"

	"github.com/google/uuid"
)

// Measurement is a finalized two-point distance. Endpoints are in image
// pixel coordinates (x = column, y = row). Immutable once created; the
// stored distance is exactly reproducible from the endpoints and spacing.
type Measurement struct {
	ID         string           `json:"id"`
	Start      geometry.Point2D `json:"start"`
	End        geometry.Point2D `json:"end"`
	DistanceMM float64          `json:"distance_mm"`
}

// Distance converts a pixel displacement to millimeters using anisotropic
// pixel spacing: horizontal pixels scale by column spacing, vertical pixels
// by row spacing.
func Distance(start, end geometry.Point2D, sp volume.Spacing) float64 {
	dx := (end.X - start.X) * sp.Col
	dy := (end.Y - start.Y) * sp.Row
	return math.Sqrt(dx*dx + dy*dy)
}

// New finalizes a measurement between two points.
func New(start, end geometry.Point2D, sp volume.Spacing) Measurement {
	return Measurement{
		ID:         uuid.NewString(),
		Start:      start,
		End:        end,
		DistanceMM: Distance(start, end, sp),
	}
}

// Store keeps measurements keyed by slice index, in creation order.
// Access is confined to the owning state's lock; Store itself does not
// synchronize.
type Store struct {
	bySlice map[int][]Measurement
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{bySlice: make(map[int][]Measurement)}
}

// Add appends a measurement to a slice's list.
func (s *Store) Add(slice int, m Measurement) {
	s.bySlice[slice] = append(s.bySlice[slice], m)
}

// ForSlice returns the measurements drawn on a slice, in creation order.
// The returned list is a copy.
func (s *Store) ForSlice(slice int) []Measurement {
	list := s.bySlice[slice]
	if len(list) == 0 {
		return nil
	}
	out := make([]Measurement, len(list))
	copy(out, list)
	return out
}

// Remove deletes a measurement by id. Returns false if not found.
func (s *Store) Remove(slice int, id string) bool {
	list := s.bySlice[slice]
	for i, m := range list {
		if m.ID == id {
			s.bySlice[slice] = append(list[:i], list[i+1:]...)
			if len(s.bySlice[slice]) == 0 {
				delete(s.bySlice, slice)
			}
			return true
		}
	}
	return false
}

// ClearSlice removes every measurement on one slice and reports how many.
func (s *Store) ClearSlice(slice int) int {
	n := len(s.bySlice[slice])
	delete(s.bySlice, slice)
	return n
}

// Clear removes all measurements on all slices.
func (s *Store) Clear() {
	s.bySlice = make(map[int][]Measurement)
}

// SliceCount returns the number of measurements on one slice.
func (s *Store) SliceCount(slice int) int {
	return len(s.bySlice[slice])
}

// Total returns the number of measurements across all slices.
func (s *Store) Total() int {
	total := 0
	for _, list := range s.bySlice {
		total += len(list)
	}
	return total
}

// Slices returns the slice indices that hold measurements, ascending.
func (s *Store) Slices() []int {
	out := make([]int, 0, len(s.bySlice))
	for k := range s.bySlice {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Snapshot copies the full store contents, for session persistence.
func (s *Store) Snapshot() map[int][]Measurement {
	out := make(map[int][]Measurement, len(s.bySlice))
	for k, list := range s.bySlice {
		cp := make([]Measurement, len(list))
		copy(cp, list)
		out[k] = cp
	}
	return out
}

// Restore replaces the store contents, for session loading.
func (s *Store) Restore(data map[int][]Measurement) {
	s.bySlice = make(map[int][]Measurement, len(data))
	for k, list := range data {
		if len(list) == 0 {
			continue
		}
		cp := make([]Measurement, len(list))
		copy(cp, list)
		s.bySlice[k] = cp
	}
}

// HitTest finds the measurement on a slice whose segment lies within
// tolerance pixels of p. The nearest wins; ties go to the most recent.
func (s *Store) HitTest(slice int, p geometry.Point2D, tolerance float64) (Measurement, bool) {
	var best Measurement
	bestDist := tolerance
	found := false
	for _, m := range s.bySlice[slice] {
		d := geometry.DistanceToSegment(p, m.Start, m.End)
		if d <= bestDist {
			best = m
			bestDist = d
			found = true
		}
	}
	return best, found
}
