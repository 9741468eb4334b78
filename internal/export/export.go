// Package export writes the loaded series back out as DICOM copies or
// rendered images. Jobs run on a background goroutine and report through an
// event channel, like segmentation runs: progress events, then exactly one
// terminal event, then close.
package export

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ct-viewer/internal/dicomdir"
	"ct-viewer/internal/render"
	"ct-viewer/internal/volume"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
	"golang.org/x/image/tiff"
)

// Format selects the output encoding.
type Format int

const (
	// FormatDICOM copies source files, optionally anonymized.
	FormatDICOM Format = iota
	// FormatPNG writes 8-bit windowed grayscale images.
	FormatPNG
	// FormatTIFF writes 16-bit grayscale images spanning each slice's range.
	FormatTIFF
)

func (f Format) String() string {
	switch f {
	case FormatDICOM:
		return "dicom"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Options controls one export job.
type Options struct {
	Format Format
	OutDir string

	// DICOM only
	Anonymize bool

	// PNG only. With ApplyWindow off, each slice is min-max normalized.
	ApplyWindow bool
	Window      volume.Window
	BurnMask    bool
	MaskTint    color.RGBA
}

// Request is the input snapshot an export job works from.
type Request struct {
	Series *dicomdir.Series // DICOM copy source
	Volume *volume.Volume   // image export source
	Mask   *volume.Mask     // optional, for BurnMask
	Opts   Options
}

// EventKind discriminates job events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventCancelled
	EventFailed
)

// Event is what a job reports. Completed events carry the summary counts.
type Event struct {
	Kind           EventKind
	Current, Total int
	Exported       int
	Skipped        int
	Err            error
}

const progressEvery = 5
const eventBuffer = 16

// Job is one in-flight export.
type Job struct {
	id     string
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the job's correlation id.
func (j *Job) ID() string { return j.id }

// Events returns the job's event stream.
func (j *Job) Events() <-chan Event { return j.events }

// Cancel requests cooperative cancellation between files.
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the worker has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

// Start validates the request and launches the worker. Validation failures
// are synchronous so the UI can show them immediately.
func Start(req Request) (*Job, error) {
	switch req.Opts.Format {
	case FormatDICOM:
		if req.Series == nil || len(req.Series.Slices) == 0 {
			return nil, fmt.Errorf("export: no series to copy")
		}
	case FormatPNG, FormatTIFF:
		if req.Volume == nil || req.Volume.Z == 0 {
			return nil, fmt.Errorf("export: no volume to render")
		}
		if req.Opts.BurnMask {
			if req.Opts.Format != FormatPNG {
				return nil, fmt.Errorf("export: mask burn requires png format")
			}
			if req.Mask == nil || !req.Mask.MatchesShape(req.Volume) {
				return nil, fmt.Errorf("export: mask burn requires a mask matching the volume")
			}
		}
	default:
		return nil, fmt.Errorf("export: unknown format %v", req.Opts.Format)
	}

	if req.Opts.OutDir == "" {
		return nil, fmt.Errorf("export: no output directory")
	}
	if err := os.MkdirAll(req.Opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("export: creating output directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		id:     uuid.NewString(),
		events: make(chan Event, eventBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go j.worker(req)
	return j, nil
}

func (j *Job) worker(req Request) {
	defer close(j.done)
	defer close(j.events)

	start := time.Now()
	total := j.totalFiles(req)
	slog.Info("export: job started", "job", j.id, "format", req.Opts.Format, "files", total, "dir", req.Opts.OutDir)

	exported, skipped := 0, 0
	for i := 0; i < total; i++ {
		select {
		case <-j.ctx.Done():
			slog.Info("export: job cancelled", "job", j.id, "exported", exported)
			j.events <- Event{Kind: EventCancelled, Exported: exported, Skipped: skipped}
			return
		default:
		}

		var err error
		switch req.Opts.Format {
		case FormatDICOM:
			err = j.copyDICOM(req, i)
		case FormatPNG:
			err = j.writePNG(req, i)
		case FormatTIFF:
			err = j.writeTIFF(req, i)
		}
		if err != nil {
			slog.Warn("export: skipping file", "job", j.id, "index", i, "error", err)
			skipped++
		} else {
			exported++
		}

		if cur := i + 1; cur%progressEvery == 0 || cur == total {
			select {
			case j.events <- Event{Kind: EventProgress, Current: cur, Total: total}:
			default:
			}
		}
	}

	slog.Info("export: job completed", "job", j.id,
		"exported", exported, "skipped", skipped, "elapsed", time.Since(start))
	j.events <- Event{Kind: EventCompleted, Exported: exported, Skipped: skipped}
}

func (j *Job) totalFiles(req Request) int {
	if req.Opts.Format == FormatDICOM {
		return len(req.Series.Slices)
	}
	return req.Volume.Z
}

// copyDICOM re-reads one source file and writes it, optionally anonymized,
// under the same base name.
func (j *Job) copyDICOM(req Request, i int) error {
	src := req.Series.Slices[i].Path
	ds, err := dicom.ParseFile(src, nil)
	if err != nil {
		return fmt.Errorf("parse %s: %w", src, err)
	}

	if req.Opts.Anonymize {
		removed := Anonymize(&ds)
		slog.Debug("export: anonymized", "job", j.id, "file", src, "removed_tags", removed)
	}

	dst := filepath.Join(req.Opts.OutDir, filepath.Base(src))
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()

	if err := dicom.Write(f, ds, dicom.SkipVRVerification()); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func (j *Job) writePNG(req Request, z int) error {
	win := req.Opts.Window
	if !req.Opts.ApplyWindow {
		win = render.MinMaxWindow(req.Volume, z)
	}

	img := render.RGBAImage(req.Volume, z, win)
	if req.Opts.BurnMask {
		sliceMask := req.Mask.SliceView(z)
		if err := render.OverlayMask(img, sliceMask, req.Mask.H, req.Mask.W, req.Opts.MaskTint); err != nil {
			return err
		}
	}

	dst := filepath.Join(req.Opts.OutDir, fmt.Sprintf("slice_%04d.png", z+1))
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

func (j *Job) writeTIFF(req Request, z int) error {
	img := render.Gray16Image(req.Volume, z)

	dst := filepath.Join(req.Opts.OutDir, fmt.Sprintf("slice_%04d.tiff", z+1))
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()
	return tiff.Encode(f, img, nil)
}
