package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MaskStats summarizes the voxels selected by a binary mask.
type MaskStats struct {
	Voxels   int
	MeanHU   float64
	StdHU    float64
	MinHU    float64
	MaxHU    float64
	VolumeML float64
}

// ComputeMaskStats gathers intensity statistics over the masked region.
// The mask must match the volume's shape exactly.
func ComputeMaskStats(v *Volume, m *Mask) (MaskStats, error) {
	if v == nil || m == nil {
		return MaskStats{}, fmt.Errorf("volume: stats require a volume and a mask")
	}
	if !m.MatchesShape(v) {
		return MaskStats{}, fmt.Errorf("volume: mask shape %dx%dx%d does not match volume %dx%dx%d",
			m.Z, m.H, m.W, v.Z, v.H, v.W)
	}

	values := make([]float64, 0, 1024)
	minHU := math.Inf(1)
	maxHU := math.Inf(-1)
	for i, sel := range m.Data {
		if sel == 0 {
			continue
		}
		hu := v.Data[i]
		values = append(values, hu)
		if hu < minHU {
			minHU = hu
		}
		if hu > maxHU {
			maxHU = hu
		}
	}

	if len(values) == 0 {
		return MaskStats{}, nil
	}

	voxelML := v.Spacing.Row * v.Spacing.Col * v.Spacing.Thickness / 1000.0
	return MaskStats{
		Voxels:   len(values),
		MeanHU:   stat.Mean(values, nil),
		StdHU:    stat.StdDev(values, nil),
		MinHU:    minHU,
		MaxHU:    maxHU,
		VolumeML: float64(len(values)) * voxelML,
	}, nil
}

// ComputeSliceMaskStats gathers intensity statistics over one slice's masked
// pixels. The mask must hold exactly H*W entries for the volume.
func ComputeSliceMaskStats(v *Volume, z int, mask []uint8) (MaskStats, error) {
	if v == nil || mask == nil {
		return MaskStats{}, fmt.Errorf("volume: stats require a volume and a mask")
	}
	if !v.InBounds(z) {
		return MaskStats{}, fmt.Errorf("volume: slice %d out of range [0,%d)", z, v.Z)
	}
	if len(mask) != v.H*v.W {
		return MaskStats{}, fmt.Errorf("volume: slice mask holds %d pixels, volume slice is %dx%d",
			len(mask), v.H, v.W)
	}

	slice := v.SliceView(z)
	values := make([]float64, 0, 256)
	minHU := math.Inf(1)
	maxHU := math.Inf(-1)
	for i, sel := range mask {
		if sel == 0 {
			continue
		}
		hu := slice[i]
		values = append(values, hu)
		if hu < minHU {
			minHU = hu
		}
		if hu > maxHU {
			maxHU = hu
		}
	}

	if len(values) == 0 {
		return MaskStats{}, nil
	}

	voxelML := v.Spacing.Row * v.Spacing.Col * v.Spacing.Thickness / 1000.0
	return MaskStats{
		Voxels:   len(values),
		MeanHU:   stat.Mean(values, nil),
		StdHU:    stat.StdDev(values, nil),
		MinHU:    minHU,
		MaxHU:    maxHU,
		VolumeML: float64(len(values)) * voxelML,
	}, nil
}
