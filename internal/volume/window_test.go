package volume

import (
	"math"
	"testing"
)

func TestWindowLevels(t *testing.T) {
	w := Window{Center: -600, Width: 1500}
	lo, hi := w.Levels()
	if lo != -1350 || hi != 150 {
		t.Errorf("Levels = (%v, %v), want (-1350, 150)", lo, hi)
	}
}

func TestWindowNormalize(t *testing.T) {
	w := Window{Center: 0, Width: 100}

	tests := []struct {
		v    float64
		want float64
	}{
		{-1000, 0}, // below window clamps to black
		{-50, 0},   // exactly at low bound
		{0, 0.5},   // center maps to mid-gray
		{50, 1},    // exactly at high bound
		{1000, 1},  // above window clamps to white
		{25, 0.75}, // linear in between
	}

	for _, tt := range tests {
		if got := w.Normalize(tt.v); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestWindowGray(t *testing.T) {
	w := Window{Center: 0, Width: 100}
	if got := w.Gray(-1000); got != 0 {
		t.Errorf("Gray below window = %d, want 0", got)
	}
	if got := w.Gray(1000); got != 255 {
		t.Errorf("Gray above window = %d, want 255", got)
	}
	if got := w.Gray(0); got != 128 {
		t.Errorf("Gray at center = %d, want 128", got)
	}
}

func TestWindowDegenerateWidth(t *testing.T) {
	w := Window{Center: 0, Width: 0}
	if got := w.Normalize(100); got != 0 {
		t.Errorf("Normalize with zero width = %v, want 0", got)
	}
}

func TestPresetByName(t *testing.T) {
	w, ok := PresetByName("lung")
	if !ok || w.Center != -600 || w.Width != 1500 {
		t.Errorf("PresetByName(lung) = %+v, %v", w, ok)
	}

	w, ok = PresetByName("bone")
	if !ok || w.Center != 400 || w.Width != 1800 {
		t.Errorf("PresetByName(bone) = %+v, %v", w, ok)
	}

	// Unknown names fall back to the lung window with ok=false
	w, ok = PresetByName("soft-serve")
	if ok {
		t.Error("unknown preset reported ok")
	}
	if w.Center != -600 || w.Width != 1500 {
		t.Errorf("unknown preset fallback = %+v, want lung window", w)
	}
}

func TestPresetsOrder(t *testing.T) {
	ps := Presets()
	if len(ps) != 5 {
		t.Fatalf("Presets() has %d entries, want 5", len(ps))
	}
	if ps[0].Name != "lung" {
		t.Errorf("first preset = %q, want lung", ps[0].Name)
	}
}

func TestAutoWindow(t *testing.T) {
	// Linear ramp 0..9999: percentile window should span most of the range
	vol := New(1, 100, 100)
	for i := range vol.Data {
		vol.Data[i] = float64(i)
	}

	w := AutoWindow(vol)
	lo, hi := w.Levels()
	if lo < 0 || lo > 300 {
		t.Errorf("auto lo = %v, want near 1st percentile (~100)", lo)
	}
	if hi < 9700 || hi > 9999 {
		t.Errorf("auto hi = %v, want near 99th percentile (~9900)", hi)
	}
	if w.Width < 9000 {
		t.Errorf("auto width = %v, want most of the ramp", w.Width)
	}
}

func TestAutoWindowEmptyVolume(t *testing.T) {
	w := AutoWindow(nil)
	if w.Center != -600 || w.Width != 1500 {
		t.Errorf("AutoWindow(nil) = %+v, want lung fallback", w)
	}
}
