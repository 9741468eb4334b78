package dicomdir

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ct-viewer/internal/volume"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// LoadSeries decodes every slice of a scanned series into a volume.
// Slices that fail to decode, or whose shape disagrees with the first
// usable slice, are skipped with a log entry. Calibration comes from the
// first slice that carries it; otherwise (1.0, 1.0, 1.0) with a warning.
func LoadSeries(s *Series) (*volume.Volume, error) {
	if s == nil || len(s.Slices) == 0 {
		return nil, fmt.Errorf("dicomdir: series has no slices")
	}

	var buffers [][]float64
	var h, w int
	spacing := volume.DefaultSpacing()
	spacingSet := false

	for _, ref := range s.Slices {
		dec, err := decodeFile(ref.Path)
		if err != nil {
			slog.Warn("dicomdir: skipping slice", "path", ref.Path, "error", err)
			continue
		}
		if h == 0 {
			h, w = dec.rows, dec.cols
		} else if dec.rows != h || dec.cols != w {
			slog.Warn("dicomdir: skipping slice with mismatched shape",
				"path", ref.Path, "rows", dec.rows, "cols", dec.cols, "want_rows", h, "want_cols", w)
			continue
		}
		if !spacingSet && dec.hasSpacing {
			spacing = dec.spacing
			spacingSet = true
		}
		buffers = append(buffers, dec.pixels)
	}

	if len(buffers) == 0 {
		return nil, fmt.Errorf("dicomdir: no usable slice data in series %s", s.SeriesUID)
	}

	if !spacingSet {
		slog.Warn("dicomdir: no pixel spacing in series, assuming 1.0mm", "series", s.SeriesUID)
	}

	vol, err := volume.Stack(buffers, h, w)
	if err != nil {
		return nil, fmt.Errorf("dicomdir: %w", err)
	}
	vol.Spacing = spacing

	slog.Info("dicomdir: series loaded",
		"series", s.DisplayName(), "slices", vol.Z, "rows", h, "cols", w,
		"row_mm", spacing.Row, "col_mm", spacing.Col, "thickness_mm", spacing.Thickness)
	return vol, nil
}

// decoded holds one slice's rescaled pixels plus the calibration it carried.
type decoded struct {
	pixels     []float64
	rows, cols int
	spacing    volume.Spacing
	hasSpacing bool
}

// decodeFile parses one DICOM file and rescales its first frame to
// calibrated intensity (HU for CT).
func decodeFile(path string) (*decoded, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	pdEl, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("no pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(pdEl.Value)
	if info.IsEncapsulated {
		return nil, fmt.Errorf("encapsulated transfer syntax not supported")
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("pixel data holds no frames")
	}

	fr := info.Frames[0]
	native, err := fr.GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("native frame: %w", err)
	}
	if native.Rows <= 0 || native.Cols <= 0 || len(native.Data) != native.Rows*native.Cols {
		return nil, fmt.Errorf("frame shape %dx%d with %d pixels", native.Rows, native.Cols, len(native.Data))
	}

	slope := 1.0
	if v, ok := elementFloats(ds, tag.RescaleSlope); ok && len(v) > 0 {
		slope = v[0]
	}
	intercept := 0.0
	if v, ok := elementFloats(ds, tag.RescaleIntercept); ok && len(v) > 0 {
		intercept = v[0]
	}
	signed := false
	if v, ok := elementInt(ds, tag.PixelRepresentation); ok {
		signed = v == 1
	}
	if photo, ok := elementString(ds, tag.PhotometricInterpretation); ok && photo == "MONOCHROME1" {
		slog.Warn("dicomdir: MONOCHROME1 slice rendered without inversion", "path", path)
	}

	pixels := make([]float64, len(native.Data))
	for i, samples := range native.Data {
		pixels[i] = rescale(samples[0], signed, slope, intercept)
	}

	dec := &decoded{pixels: pixels, rows: native.Rows, cols: native.Cols}
	if sp, ok := readSpacing(ds); ok {
		dec.spacing = sp
		dec.hasSpacing = true
	}
	return dec, nil
}

// rescale converts one raw stored value to calibrated intensity. Raw values
// are read as unsigned words; signed data (PixelRepresentation=1) is
// reinterpreted as two's-complement int16 before the linear rescale.
func rescale(raw int, signed bool, slope, intercept float64) float64 {
	v := float64(raw)
	if signed {
		v = float64(int16(uint16(raw)))
	}
	return slope*v + intercept
}

// SeriesSpacing reads calibration from a series' first slice without
// decoding pixels. Returns ok=false when the header carries none.
func SeriesSpacing(s *Series) (volume.Spacing, bool) {
	if s == nil || len(s.Slices) == 0 {
		return volume.Spacing{}, false
	}
	ds, err := dicom.ParseFile(s.Slices[0].Path, nil, dicom.SkipPixelData())
	if err != nil {
		return volume.Spacing{}, false
	}
	return readSpacing(ds)
}

// readSpacing extracts PixelSpacing (row, col mm) and SliceThickness.
// Returns ok=false when the spacing is absent or malformed.
func readSpacing(ds dicom.Dataset) (volume.Spacing, bool) {
	vals, ok := elementFloats(ds, tag.PixelSpacing)
	if !ok || len(vals) < 2 || vals[0] <= 0 || vals[1] <= 0 {
		return volume.Spacing{}, false
	}
	sp := volume.Spacing{Row: vals[0], Col: vals[1], Thickness: 1.0}
	if th, ok := elementFloats(ds, tag.SliceThickness); ok && len(th) > 0 && th[0] > 0 {
		sp.Thickness = th[0]
	}
	return sp, true
}

// elementString returns the first string value of a tag, trimmed of the
// padding DICOM string encoding allows.
func elementString(ds dicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return "", false
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0]), true
		}
	case string:
		return strings.TrimSpace(v), true
	}
	return "", false
}

// elementInt returns the first integer value of a tag, accepting both
// binary integer VRs and IS (integer string) encoding.
func elementInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(v[0])); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// elementFloats returns all numeric values of a tag, accepting binary
// float VRs, DS (decimal string) encoding, and integer VRs.
func elementFloats(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return nil, false
	}
	switch v := el.Value.GetValue().(type) {
	case []float64:
		return v, len(v) > 0
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, len(out) > 0
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, len(out) > 0
	}
	return nil, false
}
