// Package session provides viewer session file handling and persistence.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ct-viewer/internal/measure"
	"ct-viewer/internal/volume"
)

// Ext is the session file extension.
const Ext = ".ctsession"

// File represents a saved viewer session (.ctsession).
type File struct {
	Version  int       `json:"version"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Series location (relative to session file when possible)
	SeriesDir string `json:"series_dir,omitempty"`
	SeriesUID string `json:"series_uid,omitempty"`

	// View state
	CurrentSlice int           `json:"current_slice"`
	Window       volume.Window `json:"window"`
	PresetName   string        `json:"preset,omitempty"`

	// Measurements keyed by slice index
	Measurements map[int][]measure.Measurement `json:"measurements,omitempty"`
}

// New creates a new session file for a series.
func New(seriesDir, seriesUID string) *File {
	now := time.Now()
	win, _ := volume.PresetByName("lung")
	return &File{
		Version:    1,
		Created:    now,
		Modified:   now,
		SeriesDir:  seriesDir,
		SeriesUID:  seriesUID,
		Window:     win,
		PresetName: "lung",
	}
}

// Load loads a session from a .ctsession file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sess File
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.Version != 1 {
		return nil, fmt.Errorf("session: unsupported version %d", sess.Version)
	}

	return &sess, nil
}

// Save saves the session to a file.
func (s *File) Save(path string) error {
	s.Modified = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetSeriesDir sets the series directory (relative to the session file).
func (s *File) SetSeriesDir(sessionPath, dir string) {
	rel, err := filepath.Rel(filepath.Dir(sessionPath), dir)
	if err != nil {
		s.SeriesDir = dir
	} else {
		s.SeriesDir = rel
	}
	s.Modified = time.Now()
}

// GetSeriesDir returns the absolute path to the series directory.
func (s *File) GetSeriesDir(sessionPath string) string {
	if s.SeriesDir == "" {
		return ""
	}
	if filepath.IsAbs(s.SeriesDir) {
		return s.SeriesDir
	}
	return filepath.Join(filepath.Dir(sessionPath), s.SeriesDir)
}

// CaptureMeasurements copies the store's contents into the session.
func (s *File) CaptureMeasurements(store *measure.Store) {
	s.Measurements = store.Snapshot()
	s.Modified = time.Now()
}

// RestoreMeasurements replaces the store's contents from the session.
func (s *File) RestoreMeasurements(store *measure.Store) {
	store.Restore(s.Measurements)
}

// ClampTo fits the session to a volume with z slices: the current slice is
// clamped into range and measurements on slices past the end are dropped.
// Returns the number of measurements dropped.
func (s *File) ClampTo(z int) int {
	if s.CurrentSlice < 0 {
		s.CurrentSlice = 0
	}
	if s.CurrentSlice >= z {
		s.CurrentSlice = z - 1
	}

	dropped := 0
	for slice, ms := range s.Measurements {
		if slice < 0 || slice >= z {
			dropped += len(ms)
			delete(s.Measurements, slice)
		}
	}
	return dropped
}
