package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Window maps calibrated intensities to display grays. Center/Width follow
// radiological convention: values at or below center-width/2 render black,
// values at or above center+width/2 render white. Windowing is display-only;
// voxel data is never mutated.
type Window struct {
	Center float64 `json:"center"`
	Width  float64 `json:"width"`
}

// Levels returns the low and high intensity bounds of the window.
func (w Window) Levels() (lo, hi float64) {
	return w.Center - w.Width/2, w.Center + w.Width/2
}

// Normalize maps an intensity into [0,1] through the window.
func (w Window) Normalize(v float64) float64 {
	lo, hi := w.Levels()
	if hi <= lo {
		return 0
	}
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 1
	}
	return (v - lo) / (hi - lo)
}

// Gray maps an intensity to an 8-bit display gray through the window.
func (w Window) Gray(v float64) uint8 {
	return uint8(w.Normalize(v)*255 + 0.5)
}

// Preset is a named window setting.
type Preset struct {
	Name   string
	Window Window
}

// presets holds the standard CT review windows, in menu order.
var presets = []Preset{
	{"lung", Window{Center: -600, Width: 1500}},
	{"mediastinum", Window{Center: 50, Width: 350}},
	{"bone", Window{Center: 400, Width: 1800}},
	{"brain", Window{Center: 40, Width: 80}},
	{"abdomen", Window{Center: 60, Width: 400}},
}

// Presets returns the preset table in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByName looks up a preset. Unknown names return the lung window
// with ok=false so callers always get a usable setting.
func PresetByName(name string) (Window, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p.Window, true
		}
	}
	return presets[0].Window, false
}

// autoWindowMaxSamples caps the number of voxels sampled by AutoWindow so
// the estimate stays cheap on large volumes.
const autoWindowMaxSamples = 65536

// AutoWindow derives a window from the 1st and 99th intensity percentiles
// of a deterministic voxel sample. Returns the lung preset for empty volumes.
func AutoWindow(v *Volume) Window {
	if v == nil || len(v.Data) == 0 {
		return presets[0].Window
	}

	stride := len(v.Data) / autoWindowMaxSamples
	if stride < 1 {
		stride = 1
	}

	sample := make([]float64, 0, len(v.Data)/stride+1)
	for i := 0; i < len(v.Data); i += stride {
		sample = append(sample, v.Data[i])
	}
	sort.Float64s(sample)

	lo := stat.Quantile(0.01, stat.Empirical, sample, nil)
	hi := stat.Quantile(0.99, stat.Empirical, sample, nil)
	if hi-lo < 1 {
		hi = lo + 1
	}

	return Window{Center: (lo + hi) / 2, Width: hi - lo}
}
