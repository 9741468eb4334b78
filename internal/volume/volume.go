// Package volume provides the in-memory CT volume, binary masks, display
// windowing and masked statistics.
package volume

import (
	"fmt"
)

// Spacing holds the physical size of a voxel in millimeters.
type Spacing struct {
	Row       float64 `json:"row"`       // mm between rows (Y step)
	Col       float64 `json:"col"`       // mm between columns (X step)
	Thickness float64 `json:"thickness"` // mm between slices (Z step)
}

// DefaultSpacing is assumed when calibration metadata is absent or malformed.
func DefaultSpacing() Spacing {
	return Spacing{Row: 1.0, Col: 1.0, Thickness: 1.0}
}

// Volume is a dense 3D stack of calibrated intensity values (Hounsfield
// units for CT). Data is row-major: index = z*H*W + y*W + x. A volume is
// replaced wholesale on series load and treated as immutable afterwards,
// so background workers may read it without locking.
type Volume struct {
	Data    []float64
	Z, H, W int
	Spacing Spacing
}

// New allocates a zero-filled volume of the given shape.
func New(z, h, w int) *Volume {
	return &Volume{
		Data:    make([]float64, z*h*w),
		Z:       z,
		H:       h,
		W:       w,
		Spacing: DefaultSpacing(),
	}
}

// Stack builds a volume from pre-sorted slice buffers. Every slice must
// have exactly h*w samples.
func Stack(slices [][]float64, h, w int) (*Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("volume: no usable slice data")
	}
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("volume: invalid slice shape %dx%d", h, w)
	}

	vol := New(len(slices), h, w)
	n := h * w
	for z, s := range slices {
		if len(s) != n {
			return nil, fmt.Errorf("volume: slice %d has %d samples, want %d", z, len(s), n)
		}
		copy(vol.Data[z*n:(z+1)*n], s)
	}
	return vol, nil
}

// At returns the voxel value at (z, y, x). Callers are responsible for bounds.
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[(z*v.H+y)*v.W+x]
}

// Set writes the voxel value at (z, y, x).
func (v *Volume) Set(z, y, x int, val float64) {
	v.Data[(z*v.H+y)*v.W+x] = val
}

// SliceView returns the z-th slice as a view into the volume's backing
// array. Mutating the returned buffer mutates the volume.
func (v *Volume) SliceView(z int) []float64 {
	n := v.H * v.W
	return v.Data[z*n : (z+1)*n]
}

// SliceCopy returns an independent copy of the z-th slice.
func (v *Volume) SliceCopy(z int) []float64 {
	s := make([]float64, v.H*v.W)
	copy(s, v.SliceView(z))
	return s
}

// InBounds reports whether a slice index is valid for this volume.
func (v *Volume) InBounds(z int) bool {
	return z >= 0 && z < v.Z
}

// Mask is a dense binary 3D mask with the same layout as Volume.
// Values are 0 or 1.
type Mask struct {
	Data    []uint8
	Z, H, W int
}

// NewMask allocates a zero-filled mask of the given shape.
func NewMask(z, h, w int) *Mask {
	return &Mask{
		Data: make([]uint8, z*h*w),
		Z:    z,
		H:    h,
		W:    w,
	}
}

// At returns the mask value at (z, y, x).
func (m *Mask) At(z, y, x int) uint8 {
	return m.Data[(z*m.H+y)*m.W+x]
}

// SliceView returns the z-th mask slice as a view into the backing array.
func (m *Mask) SliceView(z int) []uint8 {
	n := m.H * m.W
	return m.Data[z*n : (z+1)*n]
}

// SetSlice copies a 2D mask buffer into the z-th slice. The buffer length
// must be exactly H*W.
func (m *Mask) SetSlice(z int, data []uint8) error {
	n := m.H * m.W
	if len(data) != n {
		return fmt.Errorf("volume: mask slice %d has %d samples, want %d", z, len(data), n)
	}
	copy(m.Data[z*n:(z+1)*n], data)
	return nil
}

// CountNonzero returns the number of set voxels.
func (m *Mask) CountNonzero() int {
	count := 0
	for _, v := range m.Data {
		if v != 0 {
			count++
		}
	}
	return count
}

// MatchesShape reports whether the mask has exactly the volume's shape.
func (m *Mask) MatchesShape(v *Volume) bool {
	return v != nil && m.Z == v.Z && m.H == v.H && m.W == v.W
}
