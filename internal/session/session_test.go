package session

import (
	"os"
	"path/filepath"
	"testing"

	"ct-viewer/internal/measure"
	"ct-viewer/internal/volume"
	"ct-viewer/pkg/geometry"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	sess := New("/data/ct/chest-01", "1.2.840.99")
	sess.CurrentSlice = 42
	sess.Window = volume.Window{Center: 50, Width: 350}
	sess.PresetName = "mediastinum"

	store := measure.NewStore()
	sp := volume.Spacing{Row: 1.0, Col: 0.5, Thickness: 2.0}
	store.Add(42, measure.New(geometry.NewPoint2D(10, 10), geometry.NewPoint2D(20, 10), sp))
	store.Add(7, measure.New(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(3, 4), sp))
	sess.CaptureMeasurements(store)

	path := filepath.Join(t.TempDir(), "chest"+Ext)
	if err := sess.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != 1 {
		t.Errorf("version = %d, want 1", loaded.Version)
	}
	if loaded.SeriesUID != "1.2.840.99" {
		t.Errorf("series uid = %q", loaded.SeriesUID)
	}
	if loaded.CurrentSlice != 42 {
		t.Errorf("current slice = %d, want 42", loaded.CurrentSlice)
	}
	if loaded.Window != sess.Window {
		t.Errorf("window = %+v, want %+v", loaded.Window, sess.Window)
	}
	if len(loaded.Measurements[42]) != 1 || len(loaded.Measurements[7]) != 1 {
		t.Fatalf("measurements lost in roundtrip: %+v", loaded.Measurements)
	}
	got := loaded.Measurements[42][0]
	if got.DistanceMM != 5.0 {
		t.Errorf("restored distance = %v, want 5.0", got.DistanceMM)
	}

	restored := measure.NewStore()
	loaded.RestoreMeasurements(restored)
	if restored.Total() != 2 {
		t.Errorf("restored store holds %d measurements, want 2", restored.Total())
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad"+Ext)
	if err := os.WriteFile(path, []byte(`{"version": 9}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted an unsupported version")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent"+Ext)); err == nil {
		t.Error("Load of a missing file did not fail")
	}
}

func TestClampTo(t *testing.T) {
	sp := volume.DefaultSpacing()
	sess := New("dir", "uid")
	sess.CurrentSlice = 50
	sess.Measurements = map[int][]measure.Measurement{
		2:  {measure.New(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(1, 0), sp)},
		5:  {measure.New(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(2, 0), sp)},
		99: {measure.New(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(3, 0), sp), measure.New(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(4, 0), sp)},
	}

	dropped := sess.ClampTo(10)
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if sess.CurrentSlice != 9 {
		t.Errorf("current slice = %d, want 9", sess.CurrentSlice)
	}
	if _, ok := sess.Measurements[99]; ok {
		t.Error("out-of-range slice survived clamp")
	}
	if len(sess.Measurements[2]) != 1 || len(sess.Measurements[5]) != 1 {
		t.Error("in-range measurements lost during clamp")
	}

	sess.CurrentSlice = -3
	sess.ClampTo(10)
	if sess.CurrentSlice != 0 {
		t.Errorf("negative slice clamped to %d, want 0", sess.CurrentSlice)
	}
}

func TestSeriesDirRelative(t *testing.T) {
	base := t.TempDir()
	sessPath := filepath.Join(base, "study", "chest"+Ext)
	seriesDir := filepath.Join(base, "study", "series01")

	sess := New("", "uid")
	sess.SetSeriesDir(sessPath, seriesDir)
	if filepath.IsAbs(sess.SeriesDir) {
		t.Errorf("stored series dir %q is absolute, want relative", sess.SeriesDir)
	}
	if got := sess.GetSeriesDir(sessPath); got != seriesDir {
		t.Errorf("GetSeriesDir = %q, want %q", got, seriesDir)
	}
}

func TestSeriesDirEmpty(t *testing.T) {
	sess := New("", "uid")
	if got := sess.GetSeriesDir("/tmp/x" + Ext); got != "" {
		t.Errorf("GetSeriesDir on empty = %q, want empty", got)
	}
}
