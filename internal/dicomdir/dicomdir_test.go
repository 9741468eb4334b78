package dicomdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustElement(t *testing.T, tg tag.Tag, value interface{}) *dicom.Element {
	t.Helper()
	el, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return el
}

func TestRescale(t *testing.T) {
	tests := []struct {
		name             string
		raw              int
		signed           bool
		slope, intercept float64
		want             float64
	}{
		{"unsigned identity", 1000, false, 1, 0, 1000},
		{"ct offset", 1000, false, 1, -1024, -24},
		{"slope applied", 100, false, 2, 0, 200},
		// 0xF830 read as unsigned 63536; as int16 it is -2000
		{"signed wraparound", 63536, true, 1, 0, -2000},
		{"signed positive unchanged", 1500, true, 1, 0, 1500},
		{"signed with rescale", 63536, true, 1, -1024, -3024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rescale(tt.raw, tt.signed, tt.slope, tt.intercept)
			if got != tt.want {
				t.Errorf("rescale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortSlices(t *testing.T) {
	refs := []SliceRef{
		{Path: "c.dcm", InstanceNumber: 3},
		{Path: "a.dcm", InstanceNumber: 1},
		{Path: "b.dcm", InstanceNumber: 2},
	}
	sortSlices(refs)
	if refs[0].Path != "a.dcm" || refs[2].Path != "c.dcm" {
		t.Errorf("instance sort order: %v", refs)
	}

	// Equal instance numbers fall back to slice location
	refs = []SliceRef{
		{Path: "x.dcm", InstanceNumber: 1, SliceLocation: 30.0},
		{Path: "y.dcm", InstanceNumber: 1, SliceLocation: -12.5},
	}
	sortSlices(refs)
	if refs[0].Path != "y.dcm" {
		t.Errorf("location sort order: %v", refs)
	}

	// And finally to path for stability
	refs = []SliceRef{{Path: "2.dcm"}, {Path: "1.dcm"}}
	sortSlices(refs)
	if refs[0].Path != "1.dcm" {
		t.Errorf("path sort order: %v", refs)
	}
}

func TestGroupSeries(t *testing.T) {
	metas := []fileMeta{
		{path: "s2/b.dcm", studyUID: "st1", seriesUID: "se2", seriesNumber: 2, instanceNumber: 1, seriesDesc: "LUNG 1.0"},
		{path: "s1/a2.dcm", studyUID: "st1", seriesUID: "se1", seriesNumber: 1, instanceNumber: 2},
		{path: "s1/a1.dcm", studyUID: "st1", seriesUID: "se1", seriesNumber: 1, instanceNumber: 1, patient: "DOE^JANE"},
	}

	series := groupSeries(metas)
	if len(series) != 2 {
		t.Fatalf("groups = %d, want 2", len(series))
	}

	// Series sorted by series number within the study
	if series[0].SeriesUID != "se1" || series[1].SeriesUID != "se2" {
		t.Errorf("series order: %s, %s", series[0].SeriesUID, series[1].SeriesUID)
	}

	// Slices sorted by instance number
	se1 := series[0]
	if len(se1.Slices) != 2 || se1.Slices[0].Path != "s1/a1.dcm" {
		t.Errorf("se1 slices: %v", se1.Slices)
	}

	// Metadata captured from the first file that carried it
	if se1.PatientName != "DOE^JANE" {
		t.Errorf("patient = %q", se1.PatientName)
	}
	if series[1].DisplayName() != "LUNG 1.0" {
		t.Errorf("DisplayName = %q", series[1].DisplayName())
	}
	if se1.DisplayName() != "Series 1" {
		t.Errorf("fallback DisplayName = %q", se1.DisplayName())
	}
}

func TestLooksLikeDICOM(t *testing.T) {
	dir := t.TempDir()

	// Proper preamble: 128 zero bytes then DICM
	withMagic := filepath.Join(dir, "slice001")
	buf := make([]byte, 160)
	copy(buf[128:], "DICM")
	if err := os.WriteFile(withMagic, buf, 0644); err != nil {
		t.Fatal(err)
	}
	if !looksLikeDICOM(withMagic) {
		t.Error("file with DICM magic not recognized")
	}

	// Extension shortcut, no magic needed
	byExt := filepath.Join(dir, "slice.dcm")
	if err := os.WriteFile(byExt, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !looksLikeDICOM(byExt) {
		t.Error(".dcm extension not recognized")
	}

	// Plain file: neither
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, make([]byte, 200), 0644); err != nil {
		t.Fatal(err)
	}
	if looksLikeDICOM(plain) {
		t.Error("plain file misrecognized as DICOM")
	}

	// Too short to hold a preamble
	short := filepath.Join(dir, "tiny")
	if err := os.WriteFile(short, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if looksLikeDICOM(short) {
		t.Error("tiny file misrecognized as DICOM")
	}
}

func TestElementHelpers(t *testing.T) {
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PatientName, []string{"DOE^JOHN "}),
		mustElement(t, tag.InstanceNumber, []string{"42"}),
		mustElement(t, tag.Rows, []int{512}),
		mustElement(t, tag.PixelSpacing, []string{"0.8", "0.703125"}),
	}}

	if got, ok := elementString(ds, tag.PatientName); !ok || got != "DOE^JOHN" {
		t.Errorf("elementString = %q, %v", got, ok)
	}
	if _, ok := elementString(ds, tag.StudyDescription); ok {
		t.Error("absent tag reported present")
	}

	// IS encoding arrives as strings
	if got, ok := elementInt(ds, tag.InstanceNumber); !ok || got != 42 {
		t.Errorf("elementInt(IS) = %d, %v", got, ok)
	}
	// US encoding arrives as ints
	if got, ok := elementInt(ds, tag.Rows); !ok || got != 512 {
		t.Errorf("elementInt(US) = %d, %v", got, ok)
	}

	// DS encoding arrives as strings
	vals, ok := elementFloats(ds, tag.PixelSpacing)
	if !ok || len(vals) != 2 || vals[0] != 0.8 || vals[1] != 0.703125 {
		t.Errorf("elementFloats = %v, %v", vals, ok)
	}
}

func TestReadSpacing(t *testing.T) {
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PixelSpacing, []string{"1.0", "0.5"}),
		mustElement(t, tag.SliceThickness, []string{"2.5"}),
	}}

	sp, ok := readSpacing(ds)
	if !ok {
		t.Fatal("readSpacing = not ok")
	}
	if sp.Row != 1.0 || sp.Col != 0.5 || sp.Thickness != 2.5 {
		t.Errorf("spacing = %+v", sp)
	}
}

func TestReadSpacingMalformed(t *testing.T) {
	// Absent entirely
	if _, ok := readSpacing(dicom.Dataset{}); ok {
		t.Error("empty dataset reported spacing")
	}

	// Non-numeric content
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PixelSpacing, []string{"bogus", "0.5"}),
	}}
	if _, ok := readSpacing(ds); ok {
		t.Error("malformed spacing reported ok")
	}

	// Non-positive values
	ds = dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PixelSpacing, []string{"0", "0.5"}),
	}}
	if _, ok := readSpacing(ds); ok {
		t.Error("zero spacing reported ok")
	}
}

func TestLoadSeriesEmptyFails(t *testing.T) {
	if _, err := LoadSeries(nil); err == nil {
		t.Error("LoadSeries(nil) should fail")
	}
	if _, err := LoadSeries(&Series{}); err == nil {
		t.Error("LoadSeries of empty series should fail")
	}
}
