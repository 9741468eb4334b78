// Package colorutil provides color constants and conversion helpers.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Common colors used for overlays and annotations.
var (
	Black   = color.RGBA{0, 0, 0, 255}
	White   = color.RGBA{255, 255, 255, 255}
	Red     = color.RGBA{255, 0, 0, 255}
	Green   = color.RGBA{0, 255, 0, 255}
	Blue    = color.RGBA{0, 0, 255, 255}
	Cyan    = color.RGBA{0, 255, 255, 255}
	Magenta = color.RGBA{255, 0, 255, 255}
	Yellow  = color.RGBA{255, 255, 0, 255}
	Orange  = color.RGBA{255, 165, 0, 255}
)

// overlayPalette maps config color names to RGBA values.
var overlayPalette = map[string]color.RGBA{
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"cyan":    Cyan,
	"magenta": Magenta,
	"yellow":  Yellow,
	"orange":  Orange,
}

// ByName returns a named palette color. Unknown names fall back to red,
// the conventional color for segmentation overlays.
func ByName(name string) (color.RGBA, bool) {
	c, ok := overlayPalette[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Red, false
	}
	return c, true
}

// ParseHex parses a #RRGGBB or #RRGGBBAA hex color string.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var c color.RGBA
	c.A = 255
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length %q", s)
	}
	return c, nil
}

// WithAlpha returns the color with its alpha channel replaced.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	c.A = alpha
	return c
}

// BlendOver alpha-blends src over dst using src's alpha channel.
// The result is opaque.
func BlendOver(dst, src color.RGBA) color.RGBA {
	a := uint32(src.A)
	ia := 255 - a
	return color.RGBA{
		R: uint8((uint32(src.R)*a + uint32(dst.R)*ia) / 255),
		G: uint8((uint32(src.G)*a + uint32(dst.G)*ia) / 255),
		B: uint8((uint32(src.B)*a + uint32(dst.B)*ia) / 255),
		A: 255,
	}
}

// RGBToHSV converts RGB (0-255) to HSV using OpenCV conventions:
// H in 0-180, S and V in 0-255.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}

	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}

	v = max * 255.0
	delta := max - min

	if max > 0 {
		s = (delta / max) * 255.0
	}

	if delta > 0 {
		switch max {
		case rf:
			h = 60 * (gf - bf) / delta
		case gf:
			h = 120 + 60*(bf-rf)/delta
		case bf:
			h = 240 + 60*(rf-gf)/delta
		}
		if h < 0 {
			h += 360
		}
		// OpenCV convention: H in 0-180
		h /= 2
	}

	return h, s, v
}
