// Package mask tracks which segmentation result, if any, is authoritative
// for display. Single-slice and full-volume masks are mutually exclusive:
// holding one means the other is gone, so the overlay renderer never has to
// arbitrate between competing sources.
package mask

import (
	"fmt"

	"ct-viewer/internal/volume"
)

// Kind discriminates the authority variants.
type Kind int

const (
	// KindNone means no segmentation result is held.
	KindNone Kind = iota
	// KindSlice means a single-slice result bound to one slice index.
	KindSlice
	// KindVolume means a full mask volume covering every slice.
	KindVolume
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSlice:
		return "slice"
	case KindVolume:
		return "volume"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Authority is the tagged union. The zero value is None. Authorities are
// immutable values: transitions construct a new Authority rather than
// mutating in place.
type Authority struct {
	kind Kind

	// Slice variant
	sliceIndex int
	sliceData  []uint8
	sliceH     int
	sliceW     int

	// Volume variant
	vol *volume.Mask
}

// None returns the empty authority.
func None() Authority {
	return Authority{kind: KindNone}
}

// ForSlice binds a 2D mask to one slice index. The buffer length must be h*w.
func ForSlice(index int, data []uint8, h, w int) (Authority, error) {
	if len(data) != h*w {
		return Authority{}, fmt.Errorf("mask: slice mask has %d samples, want %d", len(data), h*w)
	}
	return Authority{
		kind:       KindSlice,
		sliceIndex: index,
		sliceData:  data,
		sliceH:     h,
		sliceW:     w,
	}, nil
}

// ForVolume wraps a complete mask volume.
func ForVolume(m *volume.Mask) (Authority, error) {
	if m == nil {
		return Authority{}, fmt.Errorf("mask: nil mask volume")
	}
	return Authority{kind: KindVolume, vol: m}, nil
}

// Kind returns the active variant.
func (a Authority) Kind() Kind {
	return a.kind
}

// IsNone reports whether no result is held.
func (a Authority) IsNone() bool {
	return a.kind == KindNone
}

// BoundSlice returns the slice index a single-slice authority is bound to.
func (a Authority) BoundSlice() (int, bool) {
	if a.kind != KindSlice {
		return 0, false
	}
	return a.sliceIndex, true
}

// VolumeMask returns the held mask volume, if any.
func (a Authority) VolumeMask() (*volume.Mask, bool) {
	if a.kind != KindVolume {
		return nil, false
	}
	return a.vol, true
}

// EffectiveSlice returns the mask buffer to composite over slice z, with its
// dimensions. A volume authority re-indexes in O(1). A slice authority only
// answers for the slice it is bound to; every other slice renders bare.
func (a Authority) EffectiveSlice(z int) (data []uint8, h, w int, ok bool) {
	switch a.kind {
	case KindVolume:
		if z < 0 || z >= a.vol.Z {
			return nil, 0, 0, false
		}
		return a.vol.SliceView(z), a.vol.H, a.vol.W, true
	case KindSlice:
		if z != a.sliceIndex {
			return nil, 0, 0, false
		}
		return a.sliceData, a.sliceH, a.sliceW, true
	default:
		return nil, 0, 0, false
	}
}

// String describes the authority for logs.
func (a Authority) String() string {
	switch a.kind {
	case KindSlice:
		return fmt.Sprintf("slice mask (slice %d, %dx%d)", a.sliceIndex, a.sliceH, a.sliceW)
	case KindVolume:
		return fmt.Sprintf("volume mask (%dx%dx%d)", a.vol.Z, a.vol.H, a.vol.W)
	default:
		return "no mask"
	}
}
