package volume

import (
	"testing"
)

func TestStack(t *testing.T) {
	slices := [][]float64{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
	}

	vol, err := Stack(slices, 2, 3)
	if err != nil {
		t.Fatalf("Stack: %v", err)
	}
	if vol.Z != 2 || vol.H != 2 || vol.W != 3 {
		t.Fatalf("shape = %dx%dx%d, want 2x2x3", vol.Z, vol.H, vol.W)
	}

	// Row-major layout: At(z,y,x) = slices[z][y*W+x]
	if got := vol.At(0, 0, 0); got != 1 {
		t.Errorf("At(0,0,0) = %v, want 1", got)
	}
	if got := vol.At(0, 1, 2); got != 6 {
		t.Errorf("At(0,1,2) = %v, want 6", got)
	}
	if got := vol.At(1, 0, 1); got != 8 {
		t.Errorf("At(1,0,1) = %v, want 8", got)
	}
}

func TestStackRejectsBadInput(t *testing.T) {
	if _, err := Stack(nil, 2, 2); err == nil {
		t.Error("Stack(nil) should fail")
	}
	if _, err := Stack([][]float64{{1, 2, 3}}, 2, 2); err == nil {
		t.Error("Stack with short slice should fail")
	}
	if _, err := Stack([][]float64{{1}}, 0, 1); err == nil {
		t.Error("Stack with zero height should fail")
	}
}

func TestSliceViewAliasesVolume(t *testing.T) {
	vol := New(2, 2, 2)
	view := vol.SliceView(1)
	view[3] = 42
	if got := vol.At(1, 1, 1); got != 42 {
		t.Errorf("At(1,1,1) = %v after writing through view, want 42", got)
	}

	cp := vol.SliceCopy(1)
	cp[0] = 99
	if got := vol.At(1, 0, 0); got != 0 {
		t.Errorf("SliceCopy must not alias the volume, At(1,0,0) = %v", got)
	}
}

func TestInBounds(t *testing.T) {
	vol := New(5, 1, 1)
	if !vol.InBounds(0) || !vol.InBounds(4) {
		t.Error("valid indices reported out of bounds")
	}
	if vol.InBounds(-1) || vol.InBounds(5) {
		t.Error("invalid indices reported in bounds")
	}
}

func TestMaskSetSlice(t *testing.T) {
	m := NewMask(3, 2, 2)
	if err := m.SetSlice(1, []uint8{1, 0, 0, 1}); err != nil {
		t.Fatalf("SetSlice: %v", err)
	}
	if m.At(1, 0, 0) != 1 || m.At(1, 1, 1) != 1 {
		t.Error("SetSlice did not land at expected voxels")
	}
	if m.At(0, 0, 0) != 0 || m.At(2, 0, 0) != 0 {
		t.Error("SetSlice leaked into neighboring slices")
	}
	if got := m.CountNonzero(); got != 2 {
		t.Errorf("CountNonzero = %d, want 2", got)
	}

	if err := m.SetSlice(0, []uint8{1}); err == nil {
		t.Error("SetSlice with short buffer should fail")
	}
}

func TestMaskMatchesShape(t *testing.T) {
	vol := New(4, 8, 8)
	if !NewMask(4, 8, 8).MatchesShape(vol) {
		t.Error("matching shapes reported as mismatch")
	}
	if NewMask(4, 8, 9).MatchesShape(vol) {
		t.Error("W mismatch reported as match")
	}
	if NewMask(3, 8, 8).MatchesShape(vol) {
		t.Error("Z mismatch reported as match")
	}
	if NewMask(4, 8, 8).MatchesShape(nil) {
		t.Error("nil volume reported as match")
	}
}
