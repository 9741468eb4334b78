// Package segment runs the pretrained lung segmentation network over CT
// slices and volumes. The preprocessing here must stay bit-faithful to the
// pipeline the model was trained with; treat the constants as an external
// contract, not tunables.
package segment

// InputSize is the square resolution the network consumes and produces.
const InputSize = 256

// The training pipeline clamped intensities to the lung window
// (center -600, width 1500) before normalizing.
const (
	clampLo = -1350.0
	clampHi = 150.0
)

// Preprocess clamps a slice to the training window and normalizes it to
// [0,1] float32. Resizing to InputSize happens afterwards, on the
// normalized image.
func Preprocess(slice []float64) []float32 {
	out := make([]float32, len(slice))
	scale := clampHi - clampLo
	for i, v := range slice {
		if v < clampLo {
			v = clampLo
		} else if v > clampHi {
			v = clampHi
		}
		out[i] = float32((v - clampLo) / scale)
	}
	return out
}

// Threshold converts logits to a binary mask: positive logit means lung.
// Equivalent to probability 0.5 after the sigmoid the model omits.
func Threshold(logits []float32) []uint8 {
	out := make([]uint8, len(logits))
	for i, v := range logits {
		if v > 0 {
			out[i] = 1
		}
	}
	return out
}
