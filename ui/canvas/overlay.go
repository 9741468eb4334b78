// Package canvas provides overlay types for the slice canvas.
package canvas

import (
	"ct-viewer/pkg/geometry"
)

// MeasureLine is one finalized measurement to draw over the slice.
// Coordinates are in image pixels; the canvas scales them by zoom.
type MeasureLine struct {
	ID       string
	Start    geometry.Point2D
	End      geometry.Point2D
	Label    string // distance text drawn near the segment midpoint
	Selected bool
}

// transientLine is the in-progress measurement between the anchor click and
// the cursor. It is display-only until the second click finalizes it.
type transientLine struct {
	Start geometry.Point2D
	End   geometry.Point2D
	Label string
}
