// Package dicomdir discovers DICOM series under a directory and loads them
// into volumes. Scanning reads headers only; pixel decoding happens when a
// series is loaded.
package dicomdir

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// SliceRef points at one DICOM file within a series, with the fields its
// series sorts by. Missing sort fields default to zero, matching the
// behavior of treating absent ordering metadata as "first".
type SliceRef struct {
	Path           string
	InstanceNumber int
	SliceLocation  float64
}

// Series is one scan series discovered under a directory, slices pre-sorted
// into anatomical order.
type Series struct {
	StudyUID          string
	SeriesUID         string
	PatientName       string
	PatientID         string
	StudyDescription  string
	SeriesDescription string
	Modality          string
	SeriesNumber      int
	Slices            []SliceRef
}

// DisplayName returns a human-readable label for series lists.
func (s *Series) DisplayName() string {
	if s.SeriesDescription != "" {
		return s.SeriesDescription
	}
	if s.SeriesNumber > 0 {
		return fmt.Sprintf("Series %d", s.SeriesNumber)
	}
	return s.SeriesUID
}

// Scan walks dir for DICOM files, parses headers only, and groups them into
// series. Unreadable or non-DICOM files are skipped with a log entry; an
// unreadable root directory is an error.
func Scan(dir string) ([]Series, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dicomdir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dicomdir: %s is not a directory", dir)
	}

	var metas []fileMeta
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("dicomdir: skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !looksLikeDICOM(path) {
			return nil
		}

		meta, err := readFileMeta(path)
		if err != nil {
			slog.Warn("dicomdir: skipping file", "path", path, "error", err)
			return nil
		}
		metas = append(metas, meta)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("dicomdir: walking %s: %w", dir, walkErr)
	}

	series := groupSeries(metas)
	slog.Info("dicomdir: scan complete", "dir", dir, "files", len(metas), "series", len(series))
	return series, nil
}

// looksLikeDICOM cheaply filters scan candidates: a .dcm/.dicom extension
// or the DICM magic at byte 128.
func looksLikeDICOM(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".dcm" || ext == ".dicom" {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 132)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return string(header[128:132]) == "DICM"
}

// fileMeta is the header subset scanning needs from each file.
type fileMeta struct {
	path string

	studyUID   string
	seriesUID  string
	patient    string
	patientID  string
	studyDesc  string
	seriesDesc string
	modality   string

	seriesNumber   int
	instanceNumber int
	sliceLocation  float64
}

// readFileMeta parses a file's headers, skipping pixel data entirely.
func readFileMeta(path string) (fileMeta, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return fileMeta{}, fmt.Errorf("parse: %w", err)
	}

	m := fileMeta{path: path}
	m.studyUID, _ = elementString(ds, tag.StudyInstanceUID)
	m.seriesUID, _ = elementString(ds, tag.SeriesInstanceUID)
	if m.seriesUID == "" {
		return fileMeta{}, fmt.Errorf("no SeriesInstanceUID")
	}
	m.patient, _ = elementString(ds, tag.PatientName)
	m.patientID, _ = elementString(ds, tag.PatientID)
	m.studyDesc, _ = elementString(ds, tag.StudyDescription)
	m.seriesDesc, _ = elementString(ds, tag.SeriesDescription)
	m.modality, _ = elementString(ds, tag.Modality)
	m.seriesNumber, _ = elementInt(ds, tag.SeriesNumber)
	m.instanceNumber, _ = elementInt(ds, tag.InstanceNumber)
	if loc, ok := elementFloats(ds, tag.SliceLocation); ok && len(loc) > 0 {
		m.sliceLocation = loc[0]
	}
	return m, nil
}

// groupSeries buckets file metadata by (study, series) and sorts each
// bucket's slices by (InstanceNumber, SliceLocation, Path).
func groupSeries(metas []fileMeta) []Series {
	buckets := make(map[string]*Series)
	for _, m := range metas {
		key := m.studyUID + "\x00" + m.seriesUID
		s, ok := buckets[key]
		if !ok {
			s = &Series{
				StudyUID:          m.studyUID,
				SeriesUID:         m.seriesUID,
				PatientName:       m.patient,
				PatientID:         m.patientID,
				StudyDescription:  m.studyDesc,
				SeriesDescription: m.seriesDesc,
				Modality:          m.modality,
				SeriesNumber:      m.seriesNumber,
			}
			buckets[key] = s
		}
		s.Slices = append(s.Slices, SliceRef{
			Path:           m.path,
			InstanceNumber: m.instanceNumber,
			SliceLocation:  m.sliceLocation,
		})
	}

	out := make([]Series, 0, len(buckets))
	for _, s := range buckets {
		sortSlices(s.Slices)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudyUID != out[j].StudyUID {
			return out[i].StudyUID < out[j].StudyUID
		}
		if out[i].SeriesNumber != out[j].SeriesNumber {
			return out[i].SeriesNumber < out[j].SeriesNumber
		}
		return out[i].SeriesUID < out[j].SeriesUID
	})
	return out
}

// sortSlices orders slices by instance number, then slice location, then
// path for a stable tiebreak.
func sortSlices(refs []SliceRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].InstanceNumber != refs[j].InstanceNumber {
			return refs[i].InstanceNumber < refs[j].InstanceNumber
		}
		if refs[i].SliceLocation != refs[j].SliceLocation {
			return refs[i].SliceLocation < refs[j].SliceLocation
		}
		return refs[i].Path < refs[j].Path
	})
}
