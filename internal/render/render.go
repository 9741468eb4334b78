// Package render turns volume slices and masks into displayable images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"ct-viewer/internal/volume"
	"ct-viewer/pkg/colorutil"
)

// GrayImage renders one slice through a display window into an 8-bit
// grayscale image.
func GrayImage(vol *volume.Volume, z int, win volume.Window) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, vol.W, vol.H))
	data := vol.SliceView(z)
	for i, v := range data {
		img.Pix[i] = win.Gray(v)
	}
	return img
}

// RGBAImage renders one slice through a display window into an RGBA image,
// ready for overlay compositing.
func RGBAImage(vol *volume.Volume, z int, win volume.Window) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, vol.W, vol.H))
	data := vol.SliceView(z)
	for i, v := range data {
		g := win.Gray(v)
		o := i * 4
		img.Pix[o] = g
		img.Pix[o+1] = g
		img.Pix[o+2] = g
		img.Pix[o+3] = 255
	}
	return img
}

// MinMaxWindow derives a display window spanning one slice's full intensity
// range, used when windowing is turned off.
func MinMaxWindow(vol *volume.Volume, z int) volume.Window {
	data := vol.SliceView(z)
	if len(data) == 0 {
		return volume.Window{Center: 0, Width: 1}
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo < 1 {
		hi = lo + 1
	}
	return volume.Window{Center: (lo + hi) / 2, Width: hi - lo}
}

// Gray16Image renders one slice into a 16-bit grayscale image, min-max
// scaled over the slice so the full dynamic range survives export.
func Gray16Image(vol *volume.Volume, z int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, vol.W, vol.H))
	data := vol.SliceView(z)
	win := MinMaxWindow(vol, z)
	lo, hi := win.Levels()
	scale := 65535.0 / (hi - lo)
	for i, v := range data {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		g := uint16((v - lo) * scale)
		img.Pix[i*2] = uint8(g >> 8)
		img.Pix[i*2+1] = uint8(g)
	}
	return img
}

// OverlayMask tints masked pixels in place. The mask shape must match the
// image exactly; mismatches are refused so a stale mask can never be drawn
// over the wrong slice.
func OverlayMask(img *image.RGBA, mask []uint8, mh, mw int, tint color.RGBA) error {
	b := img.Bounds()
	if mh != b.Dy() || mw != b.Dx() {
		return fmt.Errorf("render: mask %dx%d does not match image %dx%d", mh, mw, b.Dy(), b.Dx())
	}
	if len(mask) != mh*mw {
		return fmt.Errorf("render: mask has %d samples, want %d", len(mask), mh*mw)
	}

	for i, sel := range mask {
		if sel == 0 {
			continue
		}
		o := i * 4
		base := color.RGBA{img.Pix[o], img.Pix[o+1], img.Pix[o+2], 255}
		out := colorutil.BlendOver(base, tint)
		img.Pix[o] = out.R
		img.Pix[o+1] = out.G
		img.Pix[o+2] = out.B
	}
	return nil
}
