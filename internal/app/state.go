// Package app provides application lifecycle management, state, and events.
package app

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ct-viewer/internal/config"
	"ct-viewer/internal/dicomdir"
	"ct-viewer/internal/mask"
	"ct-viewer/internal/measure"
	"ct-viewer/internal/segment"
	"ct-viewer/internal/session"
	"ct-viewer/internal/volume"
	"ct-viewer/pkg/colorutil"
	"ct-viewer/pkg/geometry"
)

// RunState tracks the segmentation lifecycle the UI gates on.
type RunState int

const (
	RunIdle RunState = iota
	RunSliceActive
	RunVolumeActive
	RunCancelling
)

func (r RunState) String() string {
	switch r {
	case RunIdle:
		return "idle"
	case RunSliceActive:
		return "slice run"
	case RunVolumeActive:
		return "volume run"
	case RunCancelling:
		return "cancelling"
	default:
		return fmt.Sprintf("runstate(%d)", int(r))
	}
}

// EventType identifies different application events.
type EventType int

const (
	EventSeriesLoaded EventType = iota
	EventSliceChanged
	EventWindowChanged
	EventOverlayChanged
	EventMaskChanged
	EventMeasurementsChanged
	EventRunStateChanged
	EventRunProgress
	EventRunFailed
	EventModelChanged
	EventSessionLoaded
	EventSessionSaved
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Progress is the payload carried by EventRunProgress.
type Progress struct {
	Current int
	Total   int
}

// State holds the application state: the loaded series, view settings,
// mask authority, measurements, and the segmentation run lifecycle.
type State struct {
	mu sync.RWMutex

	// Loaded series
	SeriesDir string
	Series    *dicomdir.Series
	Volume    *volume.Volume
	Modified  bool

	// View state
	CurrentSlice int
	Window       volume.Window
	PresetName   string

	// Mask overlay
	Authority      mask.Authority
	OverlayVisible bool
	OverlayColor   color.RGBA
	OverlayOpacity float64

	// Measurements (guarded by mu, the store has no lock of its own)
	Measurements *measure.Store

	// Segmentation
	ModelPath string
	RunState  RunState

	cfg       *config.Config
	predictor segment.Predictor
	model     *segment.Model
	activeRun *segment.Run

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates a new application state from configuration.
func NewState(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	win, ok := volume.PresetByName(cfg.DefaultPreset)
	preset := cfg.DefaultPreset
	if !ok {
		preset = "lung"
	}
	return &State{
		Window:         win,
		PresetName:     preset,
		OverlayVisible: true,
		OverlayColor:   overlayColor(cfg.Overlay.Color),
		OverlayOpacity: cfg.Overlay.Opacity,
		Measurements:   measure.NewStore(),
		cfg:            cfg,
		listeners:      make(map[EventType][]EventListener),
	}
}

func overlayColor(name string) color.RGBA {
	if strings.HasPrefix(name, "#") {
		if c, err := colorutil.ParseHex(name); err == nil {
			return c
		}
	}
	c, _ := colorutil.ByName(name)
	return c
}

// Config returns the configuration the state was built from.
func (s *State) Config() *config.Config {
	return s.cfg
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// IsModified reports whether the session has unsaved changes.
func (s *State) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Modified
}

// LoadSeries decodes a scanned series into a volume and makes it current.
// Any in-flight segmentation run is cancelled first; the previous mask and
// measurements do not carry over.
func (s *State) LoadSeries(series dicomdir.Series) error {
	s.cancelActiveRun()

	vol, err := dicomdir.LoadSeries(&series)
	if err != nil {
		return err
	}

	win, ok := volume.PresetByName(s.cfg.DefaultPreset)
	preset := s.cfg.DefaultPreset
	if !ok {
		preset = "lung"
	}

	s.mu.Lock()
	s.Series = &series
	s.SeriesDir = seriesDir(&series)
	s.Volume = vol
	s.CurrentSlice = 0
	s.Authority = mask.None()
	s.Measurements.Clear()
	s.Window = win
	s.PresetName = preset
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventSeriesLoaded, &series)
	s.Emit(EventSliceChanged, 0)
	s.Emit(EventWindowChanged, win)
	s.Emit(EventMaskChanged, nil)
	s.Emit(EventMeasurementsChanged, nil)
	return nil
}

func seriesDir(series *dicomdir.Series) string {
	if len(series.Slices) == 0 {
		return ""
	}
	return filepath.Dir(series.Slices[0].Path)
}

// CurrentVolume returns the loaded volume, or nil.
func (s *State) CurrentVolume() *volume.Volume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Volume
}

// LoadedSeries returns the metadata of the loaded series, or nil.
func (s *State) LoadedSeries() *dicomdir.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Series
}

// SliceCount returns the number of slices in the loaded volume.
func (s *State) SliceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Volume == nil {
		return 0
	}
	return s.Volume.Z
}

// Slice returns the current slice index.
func (s *State) Slice() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentSlice
}

// SetSlice moves to the given slice, clamped into range.
func (s *State) SetSlice(i int) {
	s.mu.Lock()
	if s.Volume == nil {
		s.mu.Unlock()
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= s.Volume.Z {
		i = s.Volume.Z - 1
	}
	if i == s.CurrentSlice {
		s.mu.Unlock()
		return
	}
	s.CurrentSlice = i
	s.mu.Unlock()
	s.Emit(EventSliceChanged, i)
}

// WheelStep returns how many slices one scroll notch moves. Small stacks
// step one slice at a time; larger stacks scale so a full pass through the
// volume stays around fifty notches.
func (s *State) WheelStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Volume == nil {
		return 1
	}
	return wheelStep(s.Volume.Z)
}

func wheelStep(z int) int {
	if z <= 100 {
		return 1
	}
	if step := z / 50; step > 1 {
		return step
	}
	return 1
}

// StepSlice moves the current slice by the given number of scroll notches.
func (s *State) StepSlice(notches int) {
	s.mu.RLock()
	cur := s.CurrentSlice
	loaded := s.Volume != nil
	s.mu.RUnlock()
	if !loaded {
		return
	}
	s.SetSlice(cur + notches*s.WheelStep())
}

// CurrentWindow returns the active window settings.
func (s *State) CurrentWindow() volume.Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Window
}

// Preset returns the name of the active window preset, or "custom".
func (s *State) Preset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PresetName
}

// SetWindow applies custom window levels.
func (s *State) SetWindow(w volume.Window) {
	if w.Width < 1 {
		w.Width = 1
	}
	s.mu.Lock()
	s.Window = w
	s.PresetName = "custom"
	s.Modified = true
	s.mu.Unlock()
	s.Emit(EventWindowChanged, w)
}

// ApplyPreset switches to a named window preset. Unknown names fall back
// to the lung preset.
func (s *State) ApplyPreset(name string) {
	win, ok := volume.PresetByName(name)
	if !ok {
		slog.Warn("app: unknown window preset, using lung", "preset", name)
		name = "lung"
	}
	s.mu.Lock()
	s.Window = win
	s.PresetName = name
	s.Modified = true
	s.mu.Unlock()
	s.Emit(EventWindowChanged, win)
}

// AutoWindow derives window levels from the volume's intensity distribution.
func (s *State) AutoWindow() {
	s.mu.RLock()
	vol := s.Volume
	s.mu.RUnlock()
	if vol == nil {
		return
	}

	win := volume.AutoWindow(vol)
	s.mu.Lock()
	s.Window = win
	s.PresetName = "auto"
	s.Modified = true
	s.mu.Unlock()
	s.Emit(EventWindowChanged, win)
}

// SetOverlayVisible toggles mask overlay drawing.
func (s *State) SetOverlayVisible(visible bool) {
	s.mu.Lock()
	if s.OverlayVisible == visible {
		s.mu.Unlock()
		return
	}
	s.OverlayVisible = visible
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, visible)
}

// SetOverlayStyle changes the overlay color and opacity.
func (s *State) SetOverlayStyle(c color.RGBA, opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	s.mu.Lock()
	s.OverlayColor = c
	s.OverlayOpacity = opacity
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, nil)
}

// Tint returns the overlay color with the opacity folded into alpha,
// ready for blending.
func (s *State) Tint() color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.OverlayColor
	c.A = uint8(s.OverlayOpacity*255 + 0.5)
	return c
}

// MaskForSlice returns the mask pixels to draw on slice z, honoring both the
// overlay toggle and the authority's visibility rules. A slice-bound mask is
// only returned on the slice it was computed for.
func (s *State) MaskForSlice(z int) (data []uint8, h, w int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.OverlayVisible {
		return nil, 0, 0, false
	}
	return s.Authority.EffectiveSlice(z)
}

// HasMask reports whether any mask authority is active.
func (s *State) HasMask() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.Authority.IsNone()
}

// VolumeMask returns the full mask volume when the authority holds one.
// A slice-bound mask does not qualify.
func (s *State) VolumeMask() (*volume.Mask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Authority.VolumeMask()
}

// ClearMask discards the active mask authority.
func (s *State) ClearMask() {
	s.mu.Lock()
	if s.Authority.IsNone() {
		s.mu.Unlock()
		return
	}
	s.Authority = mask.None()
	s.mu.Unlock()
	s.Emit(EventMaskChanged, nil)
}

// MaskStats computes intensity statistics over the active mask. For a
// slice-bound mask the statistics cover that slice only.
func (s *State) MaskStats() (volume.MaskStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Volume == nil {
		return volume.MaskStats{}, false
	}

	switch s.Authority.Kind() {
	case mask.KindVolume:
		m, _ := s.Authority.VolumeMask()
		stats, err := volume.ComputeMaskStats(s.Volume, m)
		if err != nil {
			slog.Error("app: mask stats failed", "error", err)
			return volume.MaskStats{}, false
		}
		return stats, true
	case mask.KindSlice:
		z, _ := s.Authority.BoundSlice()
		data, _, _, ok := s.Authority.EffectiveSlice(z)
		if !ok {
			return volume.MaskStats{}, false
		}
		stats, err := volume.ComputeSliceMaskStats(s.Volume, z, data)
		if err != nil {
			slog.Error("app: mask stats failed", "error", err)
			return volume.MaskStats{}, false
		}
		return stats, true
	}
	return volume.MaskStats{}, false
}

// AddMeasurement records a distance measurement on the current slice using
// the volume's pixel spacing.
func (s *State) AddMeasurement(start, end geometry.Point2D) (measure.Measurement, error) {
	s.mu.Lock()
	if s.Volume == nil {
		s.mu.Unlock()
		return measure.Measurement{}, fmt.Errorf("app: no volume loaded")
	}
	m := measure.New(start, end, s.Volume.Spacing)
	slice := s.CurrentSlice
	s.Measurements.Add(slice, m)
	s.Modified = true
	s.mu.Unlock()

	s.Emit(EventMeasurementsChanged, slice)
	return m, nil
}

// MeasurementsForSlice returns the measurements recorded on a slice.
func (s *State) MeasurementsForSlice(z int) []measure.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Measurements.ForSlice(z)
}

// RemoveMeasurement deletes one measurement by id.
func (s *State) RemoveMeasurement(slice int, id string) bool {
	s.mu.Lock()
	removed := s.Measurements.Remove(slice, id)
	if removed {
		s.Modified = true
	}
	s.mu.Unlock()

	if removed {
		s.Emit(EventMeasurementsChanged, slice)
	}
	return removed
}

// ClearSliceMeasurements removes all measurements on the current slice.
func (s *State) ClearSliceMeasurements() int {
	s.mu.Lock()
	slice := s.CurrentSlice
	n := s.Measurements.ClearSlice(slice)
	if n > 0 {
		s.Modified = true
	}
	s.mu.Unlock()

	if n > 0 {
		s.Emit(EventMeasurementsChanged, slice)
	}
	return n
}

// ClearAllMeasurements removes every measurement on every slice.
func (s *State) ClearAllMeasurements() {
	s.mu.Lock()
	s.Measurements.Clear()
	s.Modified = true
	s.mu.Unlock()
	s.Emit(EventMeasurementsChanged, nil)
}

// HitTestMeasurement finds the measurement nearest to p on the current
// slice, within tolerance pixels.
func (s *State) HitTestMeasurement(p geometry.Point2D, tolerance float64) (measure.Measurement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Measurements.HitTest(s.CurrentSlice, p, tolerance)
}

// LoadModel opens an ONNX model file and makes it the inference backend.
func (s *State) LoadModel(path string) error {
	m, err := segment.LoadModel(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.model
	s.model = m
	s.predictor = m
	s.ModelPath = path
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.Emit(EventModelChanged, path)
	return nil
}

// SetPredictor replaces the inference backend directly. Used by headless
// tools and tests; the display name stands in for a model path.
func (s *State) SetPredictor(p segment.Predictor, name string) {
	s.mu.Lock()
	old := s.model
	s.model = nil
	s.predictor = p
	s.ModelPath = name
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.Emit(EventModelChanged, name)
}

// HasModel reports whether an inference backend is loaded.
func (s *State) HasModel() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor != nil
}

// ModelFile returns the path of the loaded model, or "".
func (s *State) ModelFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ModelPath
}

// Status returns the segmentation run state.
func (s *State) Status() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RunState
}

// StartVolumeRun begins segmenting every slice of the loaded volume. The
// completed mask becomes the volume authority; only one run may be active.
func (s *State) StartVolumeRun() error {
	s.mu.Lock()
	if s.RunState != RunIdle {
		s.mu.Unlock()
		return fmt.Errorf("app: a segmentation run is already active")
	}
	run, err := segment.StartVolumeRun(s.Volume, s.predictor)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.activeRun = run
	s.RunState = RunVolumeActive
	s.mu.Unlock()

	s.Emit(EventRunStateChanged, RunVolumeActive)
	go s.consumeRun(run, true)
	return nil
}

// StartSliceRun begins segmenting just the current slice. The completed
// mask binds to the slice that was current when the run started.
func (s *State) StartSliceRun() error {
	s.mu.Lock()
	if s.RunState != RunIdle {
		s.mu.Unlock()
		return fmt.Errorf("app: a segmentation run is already active")
	}
	if s.Volume == nil {
		s.mu.Unlock()
		return segment.ErrNoVolume
	}
	z := s.CurrentSlice
	run, err := segment.StartSliceRun(s.Volume.SliceCopy(z), z, s.Volume.H, s.Volume.W, s.predictor)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.activeRun = run
	s.RunState = RunSliceActive
	s.mu.Unlock()

	s.Emit(EventRunStateChanged, RunSliceActive)
	go s.consumeRun(run, false)
	return nil
}

// CancelRun requests cancellation of the active run and returns without
// waiting. The state flips back to idle when the worker acknowledges.
func (s *State) CancelRun() {
	s.mu.Lock()
	run := s.activeRun
	if run == nil || s.RunState == RunCancelling {
		s.mu.Unlock()
		return
	}
	s.RunState = RunCancelling
	s.mu.Unlock()

	s.Emit(EventRunStateChanged, RunCancelling)
	run.Cancel()
}

// consumeRun drains one run's event stream and applies its outcome. Results
// from a run that has been superseded (a new series loaded meanwhile) are
// dropped.
func (s *State) consumeRun(run *segment.Run, volumeRun bool) {
	for ev := range run.Events() {
		switch ev.Kind {
		case segment.EventProgress:
			s.Emit(EventRunProgress, Progress{Current: ev.Current, Total: ev.Total})

		case segment.EventCompleted:
			s.mu.Lock()
			if s.activeRun != run {
				s.mu.Unlock()
				slog.Warn("app: dropping mask from superseded run", "run", run.ID())
				continue
			}
			var authErr error
			if volumeRun {
				s.Authority, authErr = mask.ForVolume(ev.MaskVolume)
			} else {
				h, w := 0, 0
				if s.Volume != nil {
					h, w = s.Volume.H, s.Volume.W
				}
				s.Authority, authErr = mask.ForSlice(ev.SliceIndex, ev.SliceMask, h, w)
			}
			s.activeRun = nil
			s.RunState = RunIdle
			s.mu.Unlock()

			if authErr != nil {
				slog.Error("app: rejecting completed mask", "run", run.ID(), "error", authErr)
				s.Emit(EventRunFailed, authErr)
			}
			s.Emit(EventRunStateChanged, RunIdle)
			s.Emit(EventMaskChanged, nil)

		case segment.EventCancelled:
			if s.clearRun(run) {
				s.Emit(EventRunStateChanged, RunIdle)
			}

		case segment.EventFailed:
			slog.Error("app: segmentation run failed", "run", run.ID(), "error", ev.Err)
			if s.clearRun(run) {
				s.Emit(EventRunStateChanged, RunIdle)
			}
			s.Emit(EventRunFailed, ev.Err)
		}
	}
}

// clearRun resets the run slot if the given run still owns it.
func (s *State) clearRun(run *segment.Run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRun != run {
		return false
	}
	s.activeRun = nil
	s.RunState = RunIdle
	return true
}

// cancelActiveRun cancels any in-flight run and waits for it to stop, up to
// the configured grace period. A run that overstays is abandoned: its slot
// is cleared so its eventual result gets dropped.
func (s *State) cancelActiveRun() {
	s.mu.Lock()
	run := s.activeRun
	if run == nil {
		s.mu.Unlock()
		return
	}
	s.RunState = RunCancelling
	grace := time.Duration(s.cfg.CancelGraceS) * time.Second
	s.mu.Unlock()

	s.Emit(EventRunStateChanged, RunCancelling)
	run.Cancel()
	if !run.WaitFinished(grace) {
		slog.Warn("app: run ignored cancellation inside grace period, abandoning",
			"run", run.ID(), "grace", grace)
	}
	if s.clearRun(run) {
		s.Emit(EventRunStateChanged, RunIdle)
	}
}

// SaveSession writes the view state and measurements to a session file.
func (s *State) SaveSession(path string) error {
	s.mu.RLock()
	if s.Volume == nil || s.Series == nil {
		s.mu.RUnlock()
		return fmt.Errorf("app: no series loaded")
	}
	sess := session.New("", s.Series.SeriesUID)
	sess.CurrentSlice = s.CurrentSlice
	sess.Window = s.Window
	sess.PresetName = s.PresetName
	sess.Measurements = s.Measurements.Snapshot()
	dir := s.SeriesDir
	s.mu.RUnlock()

	sess.SetSeriesDir(path, dir)
	if err := sess.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.Modified = false
	s.mu.Unlock()
	s.Emit(EventSessionSaved, path)
	return nil
}

// LoadSession restores a saved session: the series it names is rescanned
// and loaded, then the view state and measurements are applied on top.
func (s *State) LoadSession(path string) error {
	sess, err := session.Load(path)
	if err != nil {
		return err
	}

	dir := sess.GetSeriesDir(path)
	if dir == "" {
		return fmt.Errorf("app: session names no series directory")
	}
	found, err := dicomdir.Scan(dir)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("app: no DICOM series under %s", dir)
	}

	series := found[0]
	matched := false
	for i := range found {
		if found[i].SeriesUID == sess.SeriesUID {
			series = found[i]
			matched = true
			break
		}
	}
	if !matched && sess.SeriesUID != "" {
		slog.Warn("app: session series not found, loading first available",
			"wanted", sess.SeriesUID, "using", series.SeriesUID)
	}

	if err := s.LoadSeries(series); err != nil {
		return err
	}

	s.mu.Lock()
	dropped := sess.ClampTo(s.Volume.Z)
	s.CurrentSlice = sess.CurrentSlice
	s.Window = sess.Window
	s.PresetName = sess.PresetName
	if s.PresetName == "" {
		s.PresetName = "custom"
	}
	sess.RestoreMeasurements(s.Measurements)
	s.Modified = false
	slice, win := s.CurrentSlice, s.Window
	s.mu.Unlock()

	if dropped > 0 {
		slog.Warn("app: dropped measurements outside the volume", "count", dropped)
	}

	s.Emit(EventSliceChanged, slice)
	s.Emit(EventWindowChanged, win)
	s.Emit(EventMeasurementsChanged, nil)
	s.Emit(EventSessionLoaded, path)
	return nil
}

// Shutdown cancels any active run and releases the model.
func (s *State) Shutdown() {
	s.cancelActiveRun()

	s.mu.Lock()
	m := s.model
	s.model = nil
	s.predictor = nil
	s.mu.Unlock()

	if m != nil {
		m.Close()
	}
}
