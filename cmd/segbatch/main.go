// Command segbatch runs lung segmentation over a DICOM series without the
// UI, writing per-slice mask images and a summary report.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ct-viewer/internal/dicomdir"
	"ct-viewer/internal/segment"
	"ct-viewer/internal/volume"
)

func main() {
	dir := flag.String("dir", "", "Directory containing the DICOM series")
	model := flag.String("model", "", "Path to the ONNX segmentation model")
	out := flag.String("out", "masks", "Output directory for mask images")
	seriesIdx := flag.Int("series", 0, "Series index when the directory holds several")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if *dir == "" || *model == "" {
		fmt.Println("Usage: segbatch -dir <path> -model <path.onnx> [-out masks] [-series N]")
		os.Exit(1)
	}

	series, err := dicomdir.Scan(*dir)
	if err != nil {
		fatal("Scan failed: %v", err)
	}
	if len(series) == 0 {
		fatal("No DICOM series found under %s", *dir)
	}
	if *seriesIdx < 0 || *seriesIdx >= len(series) {
		fatal("No series at index %d (found %d)", *seriesIdx, len(series))
	}

	s := &series[*seriesIdx]
	fmt.Printf("Loading %s (%d slices)...\n", s.DisplayName(), len(s.Slices))
	vol, err := dicomdir.LoadSeries(s)
	if err != nil {
		fatal("Load failed: %v", err)
	}

	mdl, err := segment.LoadModel(*model)
	if err != nil {
		fatal("Model load failed: %v", err)
	}
	defer mdl.Close()
	fmt.Printf("Model: %s\n", filepath.Base(*model))

	run, err := segment.StartVolumeRun(vol, mdl)
	if err != nil {
		fatal("Segmentation failed to start: %v", err)
	}

	// Ctrl-C requests cooperative cancellation; the run acknowledges
	// between slices.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nCancelling...")
		run.Cancel()
	}()

	var result *volume.Mask
	for ev := range run.Events() {
		switch ev.Kind {
		case segment.EventProgress:
			fmt.Printf("\rSegmenting slice %d of %d", ev.Current, ev.Total)
		case segment.EventCompleted:
			fmt.Println()
			result = ev.MaskVolume
		case segment.EventCancelled:
			fmt.Println("Cancelled; no output written")
			os.Exit(130)
		case segment.EventFailed:
			fmt.Println()
			fatal("Segmentation failed: %v", ev.Err)
		}
	}
	if result == nil {
		fatal("Run finished without a result")
	}

	if err := writeMasks(result, *out); err != nil {
		fatal("Writing masks: %v", err)
	}
	fmt.Printf("Wrote %d mask images to %s\n", result.Z, *out)

	stats, err := volume.ComputeMaskStats(vol, result)
	if err != nil {
		fatal("Stats failed: %v", err)
	}
	report := formatReport(s, stats)
	fmt.Print(report)
	reportPath := filepath.Join(*out, "report.txt")
	if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
		fatal("Writing report: %v", err)
	}
	fmt.Printf("Report written to %s\n", reportPath)
}

// writeMasks saves each mask slice as an 8-bit PNG, 255 where segmented.
func writeMasks(m *volume.Mask, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for z := 0; z < m.Z; z++ {
		img := image.NewGray(image.Rect(0, 0, m.W, m.H))
		slice := m.SliceView(z)
		for i, v := range slice {
			if v != 0 {
				img.Pix[i] = 255
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("mask_%04d.png", z))
		if err := writePNG(path, img); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatReport(s *dicomdir.Series, stats volume.MaskStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nSegmentation report\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(&b, "Series:      %s\n", s.DisplayName())
	fmt.Fprintf(&b, "Patient:     %s\n", s.PatientName)
	fmt.Fprintf(&b, "Voxels:      %d\n", stats.Voxels)
	fmt.Fprintf(&b, "Volume:      %.1f mL\n", stats.VolumeML)
	fmt.Fprintf(&b, "Mean HU:     %.1f (std %.1f)\n", stats.MeanHU, stats.StdHU)
	fmt.Fprintf(&b, "HU range:    %.0f to %.0f\n", stats.MinHU, stats.MaxHU)
	return b.String()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
