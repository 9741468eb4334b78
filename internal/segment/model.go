package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

// Sentinel errors for capability gating. Callers disable segmentation
// actions on ErrNoModel rather than treating it as a crash.
var (
	ErrNoModel  = errors.New("segment: no model loaded")
	ErrNoVolume = errors.New("segment: no volume loaded")
)

// Predictor is the per-slice inference contract: one calibrated 2D slice in,
// one binary mask of identical shape out. Implementations never panic on bad
// input; they return an error.
type Predictor interface {
	Predict(slice []float64, h, w int) ([]uint8, error)
}

// Model wraps an ONNX network loaded through the OpenCV DNN backend.
// Predict calls are not safe for concurrent use; the orchestrator
// serializes them.
type Model struct {
	path string
	net  gocv.Net
}

// LoadModel reads an ONNX file. A corrupt or unreadable file fails the load;
// no half-initialized model is ever returned.
func LoadModel(path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("segment: model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("segment: failed to read ONNX model %s", path)
	}

	slog.Info("segment: model loaded", "path", path)
	return &Model{path: path, net: net}, nil
}

// Path returns the file the model was loaded from.
func (m *Model) Path() string {
	return m.path
}

// Close releases the network.
func (m *Model) Close() error {
	return m.net.Close()
}

// Predict runs one slice through the network: clamp/normalize, bilinear
// resize to InputSize, forward pass, threshold logits at zero, then
// nearest-neighbor resize back to (h, w) to keep the mask binary.
func (m *Model) Predict(slice []float64, h, w int) ([]uint8, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if h <= 0 || w <= 0 || len(slice) != h*w {
		return nil, fmt.Errorf("segment: invalid slice shape %dx%d with %d samples", h, w, len(slice))
	}

	norm := Preprocess(slice)
	buf := make([]byte, len(norm)*4)
	for i, v := range norm {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV32F, buf)
	if err != nil {
		return nil, fmt.Errorf("segment: wrapping slice: %w", err)
	}
	defer src.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(InputSize, InputSize), 0, 0, gocv.InterpolationLinear)

	blob := gocv.BlobFromImage(resized, 1.0, image.Pt(InputSize, InputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	logits, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("segment: reading network output: %w", err)
	}
	if len(logits) != InputSize*InputSize {
		return nil, fmt.Errorf("segment: network produced %d outputs, want %d", len(logits), InputSize*InputSize)
	}

	small, err := gocv.NewMatFromBytes(InputSize, InputSize, gocv.MatTypeCV8U, Threshold(logits))
	if err != nil {
		return nil, fmt.Errorf("segment: wrapping mask: %w", err)
	}
	defer small.Close()

	full := gocv.NewMat()
	defer full.Close()
	gocv.Resize(small, &full, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)

	data, err := full.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("segment: reading mask: %w", err)
	}
	mask := make([]uint8, h*w)
	copy(mask, data)
	return mask, nil
}

// modelExtensions lists recognized weight file extensions, in no particular
// preference order; discovery takes the first match in name order.
var modelExtensions = []string{".onnx"}

// Discover scans a directory (non-recursively) for a model file. Returns
// ErrNoModel when the directory exists but holds nothing recognizable;
// segmentation then stays unavailable rather than failing the app.
func Discover(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("segment: reading model dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		for _, want := range modelExtensions {
			if ext == want {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", ErrNoModel
}
