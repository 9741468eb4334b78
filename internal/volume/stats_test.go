package volume

import (
	"math"
	"testing"
)

func TestComputeMaskStats(t *testing.T) {
	vol := New(2, 2, 2)
	vol.Spacing = Spacing{Row: 1.0, Col: 0.5, Thickness: 2.0}
	// Slice 0: -800 -700 / -600 -500, slice 1: zeros
	copy(vol.SliceView(0), []float64{-800, -700, -600, -500})

	m := NewMask(2, 2, 2)
	m.SetSlice(0, []uint8{1, 1, 1, 1})

	stats, err := ComputeMaskStats(vol, m)
	if err != nil {
		t.Fatalf("ComputeMaskStats: %v", err)
	}
	if stats.Voxels != 4 {
		t.Errorf("Voxels = %d, want 4", stats.Voxels)
	}
	if math.Abs(stats.MeanHU-(-650)) > 1e-9 {
		t.Errorf("MeanHU = %v, want -650", stats.MeanHU)
	}
	if stats.MinHU != -800 || stats.MaxHU != -500 {
		t.Errorf("Min/Max = %v/%v, want -800/-500", stats.MinHU, stats.MaxHU)
	}
	// 4 voxels * (1.0 * 0.5 * 2.0) mm3 = 4 mm3 = 0.004 mL
	if math.Abs(stats.VolumeML-0.004) > 1e-12 {
		t.Errorf("VolumeML = %v, want 0.004", stats.VolumeML)
	}
}

func TestComputeMaskStatsEmptyMask(t *testing.T) {
	vol := New(1, 2, 2)
	m := NewMask(1, 2, 2)

	stats, err := ComputeMaskStats(vol, m)
	if err != nil {
		t.Fatalf("ComputeMaskStats: %v", err)
	}
	if stats.Voxels != 0 || stats.VolumeML != 0 {
		t.Errorf("empty mask stats = %+v, want zeros", stats)
	}
}

func TestComputeMaskStatsShapeMismatch(t *testing.T) {
	vol := New(2, 2, 2)
	m := NewMask(1, 2, 2)
	if _, err := ComputeMaskStats(vol, m); err == nil {
		t.Error("shape mismatch should fail")
	}
	if _, err := ComputeMaskStats(nil, m); err == nil {
		t.Error("nil volume should fail")
	}
}

func TestComputeSliceMaskStats(t *testing.T) {
	vol := New(3, 2, 2)
	vol.Spacing = Spacing{Row: 1.0, Col: 0.5, Thickness: 2.0}
	copy(vol.SliceView(1), []float64{-800, -700, -600, -500})

	stats, err := ComputeSliceMaskStats(vol, 1, []uint8{1, 0, 0, 1})
	if err != nil {
		t.Fatalf("ComputeSliceMaskStats: %v", err)
	}
	if stats.Voxels != 2 {
		t.Errorf("Voxels = %d, want 2", stats.Voxels)
	}
	if math.Abs(stats.MeanHU-(-650)) > 1e-9 {
		t.Errorf("MeanHU = %v, want -650", stats.MeanHU)
	}
	if stats.MinHU != -800 || stats.MaxHU != -500 {
		t.Errorf("Min/Max = %v/%v, want -800/-500", stats.MinHU, stats.MaxHU)
	}
	if math.Abs(stats.VolumeML-0.002) > 1e-12 {
		t.Errorf("VolumeML = %v, want 0.002", stats.VolumeML)
	}
}

func TestComputeSliceMaskStatsValidation(t *testing.T) {
	vol := New(2, 2, 2)
	good := []uint8{1, 0, 0, 0}

	if _, err := ComputeSliceMaskStats(vol, 5, good); err == nil {
		t.Error("out-of-range slice should fail")
	}
	if _, err := ComputeSliceMaskStats(vol, 0, []uint8{1, 0}); err == nil {
		t.Error("wrong mask length should fail")
	}
	if _, err := ComputeSliceMaskStats(nil, 0, good); err == nil {
		t.Error("nil volume should fail")
	}
}
