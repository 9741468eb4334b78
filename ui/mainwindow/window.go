// Package mainwindow provides the viewer's main application window.
package mainwindow

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"ct-viewer/internal/app"
	"ct-viewer/internal/dicomdir"
	"ct-viewer/internal/export"
	"ct-viewer/internal/measure"
	"ct-viewer/internal/render"
	"ct-viewer/internal/session"
	"ct-viewer/internal/version"
	"ct-viewer/internal/volume"
	"ct-viewer/pkg/geometry"
	"ct-viewer/ui/canvas"
	"ct-viewer/ui/dialogs"
	"ct-viewer/ui/panels"
	"ct-viewer/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir     = "lastDirectory"
	prefKeyLastSession = "lastSessionDirectory"
	prefKeyWidth       = "window.width"
	prefKeyHeight      = "window.height"
	prefKeyFit         = "view.fitToWindow"

	// Segment hit-test tolerance, in image pixels.
	hitTolerance = 6.0
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.SliceCanvas
	sidePanel *panels.SidePanel

	statusBar   *widget.Label
	progressBar *widget.ProgressBar

	sliceSlider *widget.Slider
	sliceLabel  *widget.Label
	sliderHeld  bool

	// Menu items that enable/disable with state
	mainMenu        *fyne.MainMenu
	segSliceItem    *fyne.MenuItem
	segVolumeItem   *fyne.MenuItem
	cancelItem      *fyne.MenuItem
	overlayItem     *fyne.MenuItem
	drawItem        *fyne.MenuItem
	deleteItem      *fyne.MenuItem
	clearItem       *fyne.MenuItem
	exportItem      *fyne.MenuItem
	saveSessionItem *fyne.MenuItem
	fitToWindowItem *fyne.MenuItem

	exportJob *export.Job
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State) *MainWindow {
	win := fyneApp.NewWindow("CT Viewer")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  prefs.Load(),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeys()
	mw.updateActions()

	width := float32(mw.prefs.Float(prefKeyWidth, 1200))
	height := float32(mw.prefs.Float(prefKeyHeight, 840))
	win.Resize(fyne.NewSize(width, height))

	fit := mw.prefs.Bool(prefKeyFit, true)
	mw.canvas.SetFitToWindow(fit)
	mw.fitToWindowItem.Checked = fit
	mw.mainMenu.Refresh()

	return mw
}

// SavePreferences persists window geometry and view settings. Called once
// on shutdown.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefKeyWidth, float64(size.Width))
		mw.prefs.SetFloat(prefKeyHeight, float64(size.Height))
	}
	mw.prefs.SetBool(prefKeyFit, mw.canvas.GetFitToWindow())
	if err := mw.prefs.Save(); err != nil {
		slog.Warn("mainwindow: saving preferences", "error", err)
	}
}

// setupUI creates the main layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewSliceCanvas()
	mw.canvas.SetFitToWindow(true)

	mw.sidePanel = panels.NewSidePanel(mw.state)
	mw.sidePanel.SetWindow(mw.Window)
	mw.sidePanel.Measurements().OnChanged(func() {
		mw.refreshOverlay()
	})

	mw.statusBar = widget.NewLabel("Ready")
	mw.progressBar = widget.NewProgressBar()
	mw.progressBar.Hide()

	mw.setupCanvasCallbacks()

	toolbar := mw.createToolbar()
	sliceBar := mw.createSliceBar()

	canvasArea := container.NewBorder(
		toolbar,
		sliceBar,
		nil,
		nil,
		mw.canvas.Container(),
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	status := container.NewBorder(nil, nil, nil, mw.progressBar, mw.statusBar)

	content := container.NewBorder(
		nil,
		container.NewPadded(status),
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
}

// setupCanvasCallbacks wires the viewport to the application state.
func (mw *MainWindow) setupCanvasCallbacks() {
	mw.canvas.OnWheel(func(notches int) {
		mw.state.StepSlice(notches)
	})

	mw.canvas.OnHover(func(x, y float64, inside bool) {
		mw.sidePanel.Info().SetCursor(int(x), int(y), inside)
	})

	mw.canvas.SetLiveLabel(func(start, end geometry.Point2D) string {
		vol := mw.state.CurrentVolume()
		if vol == nil {
			return ""
		}
		return fmt.Sprintf("%.1f mm", measure.Distance(start, end, vol.Spacing))
	})

	mw.canvas.OnMeasureDone(func(start, end geometry.Point2D) {
		m, err := mw.state.AddMeasurement(start, end)
		if err != nil {
			mw.updateStatus(err.Error())
			return
		}
		mw.updateStatus(fmt.Sprintf("Measured %.1f mm", m.DistanceMM))
		mw.updateActions()
	})

	mw.canvas.OnSelectAt(func(x, y float64) {
		p := geometry.Point2D{X: x, Y: y}
		if m, ok := mw.state.HitTestMeasurement(p, hitTolerance); ok {
			mw.sidePanel.Measurements().Select(m.ID)
		} else {
			mw.sidePanel.Measurements().ClearSelection()
		}
	})

	mw.canvas.OnContextAt(func(x, y float64) {
		p := geometry.Point2D{X: x, Y: y}
		m, ok := mw.state.HitTestMeasurement(p, hitTolerance)
		if !ok {
			return
		}
		mw.sidePanel.Measurements().Select(m.ID)
		dialog.ShowConfirm("Delete Measurement",
			fmt.Sprintf("Delete the %.1f mm measurement?", m.DistanceMM),
			func(confirmed bool) {
				if confirmed {
					mw.sidePanel.Measurements().DeleteSelected()
				}
			}, mw.Window)
	})
}

// createToolbar creates the zoom and segmentation shortcut bar.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)
	fitBtn := widget.NewButton("Fit", mw.onToggleFitToWindow)
	actualBtn := widget.NewButton("1:1", mw.onActualSize)
	drawBtn := widget.NewButton("Measure", mw.onDrawDistance)

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
		widget.NewSeparator(),
		drawBtn,
	)
}

// createSliceBar creates the slice navigation strip under the viewport.
func (mw *MainWindow) createSliceBar() fyne.CanvasObject {
	prevBtn := widget.NewButton("<", func() { mw.state.SetSlice(mw.state.Slice() - 1) })
	nextBtn := widget.NewButton(">", func() { mw.state.SetSlice(mw.state.Slice() + 1) })

	mw.sliceSlider = widget.NewSlider(0, 0)
	mw.sliceSlider.Step = 1
	mw.sliceSlider.OnChanged = func(v float64) {
		mw.sliderHeld = true
		mw.state.SetSlice(int(v))
		mw.sliderHeld = false
	}

	mw.sliceLabel = widget.NewLabel("- / -")

	return container.NewBorder(nil, nil,
		prevBtn,
		container.NewHBox(nextBtn, mw.sliceLabel),
		mw.sliceSlider,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.saveSessionItem = fyne.NewMenuItem("Save Session...", mw.onSaveSession)
	mw.exportItem = fyne.NewMenuItem("Export...", mw.onExport)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Folder...", mw.onOpenFolder),
		fyne.NewMenuItemSeparator(),
		mw.saveSessionItem,
		fyne.NewMenuItem("Load Session...", mw.onLoadSession),
		fyne.NewMenuItemSeparator(),
		mw.exportItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	presetItems := make([]*fyne.MenuItem, 0, 8)
	for _, p := range volume.Presets() {
		name := p.Name
		presetItems = append(presetItems, fyne.NewMenuItem(name, func() {
			mw.state.ApplyPreset(name)
		}))
	}
	presetsItem := fyne.NewMenuItem("Window Preset", nil)
	presetsItem.ChildMenu = fyne.NewMenu("", presetItems...)

	mw.overlayItem = fyne.NewMenuItem("Mask Overlay", mw.onToggleOverlay)
	mw.overlayItem.Checked = true
	mw.fitToWindowItem = fyne.NewMenuItem("Fit to Window", mw.onToggleFitToWindow)
	mw.fitToWindowItem.Checked = true

	viewMenu := fyne.NewMenu("View",
		presetsItem,
		fyne.NewMenuItem("Auto Window", func() { mw.state.AutoWindow() }),
		fyne.NewMenuItem("Custom Levels...", mw.onCustomLevels),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		mw.overlayItem,
	)

	mw.segSliceItem = fyne.NewMenuItem("Segment Current Slice", mw.onSegmentSlice)
	mw.segVolumeItem = fyne.NewMenuItem("Segment Volume", mw.onSegmentVolume)
	mw.cancelItem = fyne.NewMenuItem("Cancel Run", mw.onCancelRun)

	segMenu := fyne.NewMenu("Segmentation",
		fyne.NewMenuItem("Load Model...", mw.onLoadModel),
		fyne.NewMenuItemSeparator(),
		mw.segSliceItem,
		mw.segVolumeItem,
		fyne.NewMenuItemSeparator(),
		mw.cancelItem,
	)

	mw.drawItem = fyne.NewMenuItem("Draw Distance", mw.onDrawDistance)
	mw.deleteItem = fyne.NewMenuItem("Delete Selected", mw.onDeleteSelected)
	mw.clearItem = fyne.NewMenuItem("Clear Slice Measurements", mw.onClearSlice)

	measureMenu := fyne.NewMenu("Measure",
		mw.drawItem,
		mw.deleteItem,
		mw.clearItem,
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.mainMenu = fyne.NewMainMenu(fileMenu, viewMenu, segMenu, measureMenu, helpMenu)
	mw.SetMainMenu(mw.mainMenu)
}

// setupEventHandlers registers for application state events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSeriesLoaded, func(data interface{}) {
		mw.refreshSliceBar()
		mw.refreshDisplay()
		mw.canvas.SetFitToWindow(mw.fitToWindowItem.Checked)
		mw.updateActions()
		if series := mw.state.LoadedSeries(); series != nil {
			mw.SetTitle("CT Viewer - " + series.DisplayName())
			mw.updateStatus(fmt.Sprintf("Loaded %s: %d slices",
				series.DisplayName(), mw.state.SliceCount()))
		}
	})

	mw.state.On(app.EventSliceChanged, func(data interface{}) {
		mw.refreshSliceBar()
		mw.refreshDisplay()
	})

	mw.state.On(app.EventWindowChanged, func(data interface{}) {
		mw.refreshDisplay()
	})

	mw.state.On(app.EventMaskChanged, func(data interface{}) {
		mw.refreshDisplay()
		mw.updateActions()
	})

	mw.state.On(app.EventOverlayChanged, func(data interface{}) {
		mw.refreshDisplay()
	})

	mw.state.On(app.EventMeasurementsChanged, func(data interface{}) {
		mw.refreshOverlay()
		mw.updateActions()
	})

	mw.state.On(app.EventModelChanged, func(data interface{}) {
		mw.updateActions()
		if path, ok := data.(string); ok && path != "" {
			mw.updateStatus("Model loaded: " + filepath.Base(path))
		}
	})

	mw.state.On(app.EventRunStateChanged, func(data interface{}) {
		rs, _ := data.(app.RunState)
		switch rs {
		case app.RunIdle:
			mw.progressBar.Hide()
			mw.updateStatus("Ready")
		case app.RunSliceActive:
			mw.updateStatus("Segmenting current slice...")
		case app.RunVolumeActive:
			mw.progressBar.SetValue(0)
			mw.progressBar.Show()
			mw.updateStatus("Segmenting volume...")
		case app.RunCancelling:
			mw.updateStatus("Cancelling segmentation...")
		}
		mw.updateActions()
	})

	mw.state.On(app.EventRunProgress, func(data interface{}) {
		p, ok := data.(app.Progress)
		if !ok || p.Total == 0 {
			return
		}
		mw.progressBar.SetValue(float64(p.Current) / float64(p.Total))
		mw.updateStatus(fmt.Sprintf("Segmenting slice %d of %d", p.Current, p.Total))
	})

	mw.state.On(app.EventRunFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Segmentation failed: " + err.Error())
			dialog.ShowError(err, mw.Window)
		}
	})

	mw.state.On(app.EventSessionSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Session saved: " + filepath.Base(path))
		}
	})

	mw.state.On(app.EventSessionLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Session loaded: " + filepath.Base(path))
		}
	})
}

// setupKeys binds keyboard shortcuts on the window canvas.
func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.onDeleteSelected()
		case fyne.KeyUp, fyne.KeyLeft, fyne.KeyPageUp:
			mw.state.SetSlice(mw.state.Slice() - 1)
		case fyne.KeyDown, fyne.KeyRight, fyne.KeyPageDown:
			mw.state.SetSlice(mw.state.Slice() + 1)
		case fyne.KeyEscape:
			mw.canvas.AbortMeasure()
		case fyne.KeyPlus, fyne.KeyEqual:
			mw.onZoomIn()
		case fyne.KeyMinus:
			mw.onZoomOut()
		}
	})
}

// refreshDisplay re-renders the current slice through the active window,
// composites the authoritative mask if visible, and redraws measurements.
func (mw *MainWindow) refreshDisplay() {
	vol := mw.state.CurrentVolume()
	if vol == nil {
		mw.canvas.SetSlice(nil)
		mw.canvas.SetMeasureLines(nil)
		return
	}

	z := mw.state.Slice()
	img := render.RGBAImage(vol, z, mw.state.CurrentWindow())

	if data, h, w, ok := mw.state.MaskForSlice(z); ok {
		if err := render.OverlayMask(img, data, h, w, mw.state.Tint()); err != nil {
			// A shape mismatch means the mask belongs to different data;
			// drawing it would lie about anatomy.
			slog.Error("mainwindow: refusing mask overlay", "slice", z, "error", err)
		}
	}

	mw.canvas.SetSlice(img)
	mw.refreshOverlay()
}

// refreshOverlay redraws the measurement lines for the current slice.
func (mw *MainWindow) refreshOverlay() {
	selected := mw.sidePanel.Measurements().Selected()
	ms := mw.state.MeasurementsForSlice(mw.state.Slice())
	lines := make([]canvas.MeasureLine, 0, len(ms))
	for _, m := range ms {
		lines = append(lines, canvas.MeasureLine{
			ID:       m.ID,
			Start:    m.Start,
			End:      m.End,
			Label:    fmt.Sprintf("%.1f mm", m.DistanceMM),
			Selected: m.ID == selected,
		})
	}
	mw.canvas.SetMeasureLines(lines)
}

// refreshSliceBar syncs the slider and label with the current slice.
func (mw *MainWindow) refreshSliceBar() {
	z := mw.state.SliceCount()
	if z == 0 {
		mw.sliceLabel.SetText("- / -")
		return
	}
	cur := mw.state.Slice()
	mw.sliceSlider.Max = float64(z - 1)
	if !mw.sliderHeld {
		mw.sliceSlider.SetValue(float64(cur))
	}
	mw.sliceLabel.SetText(fmt.Sprintf("%d / %d", cur+1, z))
}

// updateActions enables/disables menu actions to mirror the state: running
// segmentation requires a model and data, cancel only applies to an active
// run, measuring requires a volume.
func (mw *MainWindow) updateActions() {
	hasVolume := mw.state.CurrentVolume() != nil
	hasModel := mw.state.HasModel()
	status := mw.state.Status()
	idle := status == app.RunIdle

	mw.segSliceItem.Disabled = !hasVolume || !hasModel || !idle
	mw.segVolumeItem.Disabled = !hasVolume || !hasModel || !idle
	mw.cancelItem.Disabled = idle || status == app.RunCancelling
	mw.drawItem.Disabled = !hasVolume
	mw.deleteItem.Disabled = mw.sidePanel.Measurements().Selected() == ""
	mw.clearItem.Disabled = !hasVolume
	mw.exportItem.Disabled = !hasVolume
	mw.saveSessionItem.Disabled = !hasVolume
	mw.overlayItem.Disabled = !mw.state.HasMask()

	mw.mainMenu.Refresh()
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir(key string) fyne.ListableURI {
	path := mw.prefs.String(key, "")
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given path under a preference key.
func (mw *MainWindow) saveLastDir(key, path string) {
	mw.prefs.SetString(key, filepath.Dir(path))
}

// Menu action handlers

func (mw *MainWindow) onOpenFolder() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		dir := uri.Path()
		mw.prefs.SetString(prefKeyLastDir, dir)
		mw.scanFolder(dir)
	}, mw.Window)
	if loc := mw.getLastDir(prefKeyLastDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// ScanFolder scans a directory for DICOM series and hands the results to
// the series browser. Exposed so startup arguments can open a folder.
func (mw *MainWindow) ScanFolder(dir string) {
	mw.scanFolder(dir)
}

func (mw *MainWindow) scanFolder(dir string) {
	mw.updateStatus("Scanning " + dir + "...")
	go func() {
		series, err := dicomdir.Scan(dir)
		if err != nil {
			slog.Error("mainwindow: scan failed", "dir", dir, "error", err)
			mw.updateStatus("Scan failed: " + err.Error())
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Found %d series", len(series)))
		mw.sidePanel.SetSeries(series)
	}()
}

func (mw *MainWindow) onSaveSession() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != session.Ext {
			path += session.Ext
		}
		mw.saveLastDir(prefKeyLastSession, path)
		if err := mw.state.SaveSession(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("viewer" + session.Ext)
	if loc := mw.getLastDir(prefKeyLastSession); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onLoadSession() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(prefKeyLastSession, path)
		mw.updateStatus("Loading session...")
		go func() {
			if err := mw.state.LoadSession(path); err != nil {
				slog.Error("mainwindow: session load failed", "path", path, "error", err)
				mw.updateStatus("Session load failed: " + err.Error())
				dialog.ShowError(err, mw.Window)
			}
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{session.Ext}))
	if loc := mw.getLastDir(prefKeyLastSession); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	if mw.exportJob != nil {
		mw.updateStatus("An export is already running")
		return
	}

	cfg := mw.state.Config()
	defaults := export.Options{
		OutDir:      mw.prefs.String(prefKeyLastDir, ""),
		Anonymize:   cfg.Export.Anonymize,
		ApplyWindow: true,
		BurnMask:    cfg.Export.BurnMask,
	}
	switch cfg.Export.Format {
	case "dicom":
		defaults.Format = export.FormatDICOM
	case "tiff":
		defaults.Format = export.FormatTIFF
	default:
		defaults.Format = export.FormatPNG
	}

	_, hasMask := mw.state.VolumeMask()
	dlg := dialogs.NewExportDialog(mw.Window, defaults, hasMask, func(opts export.Options) {
		mw.startExport(opts)
	})
	dlg.Show()
}

// startExport launches the export job and follows its event stream.
func (mw *MainWindow) startExport(opts export.Options) {
	opts.Window = mw.state.CurrentWindow()
	opts.MaskTint = mw.state.Tint()

	req := export.Request{
		Series: mw.state.LoadedSeries(),
		Volume: mw.state.CurrentVolume(),
		Opts:   opts,
	}
	if opts.BurnMask {
		req.Mask, _ = mw.state.VolumeMask()
	}

	job, err := export.Start(req)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.exportJob = job
	mw.progressBar.SetValue(0)
	mw.progressBar.Show()
	mw.updateStatus("Exporting...")

	go func() {
		for ev := range job.Events() {
			switch ev.Kind {
			case export.EventProgress:
				if ev.Total > 0 {
					mw.progressBar.SetValue(float64(ev.Current) / float64(ev.Total))
					mw.updateStatus(fmt.Sprintf("Exporting %d of %d", ev.Current, ev.Total))
				}
			case export.EventCompleted:
				mw.updateStatus(fmt.Sprintf("Export finished: %d written, %d skipped",
					ev.Exported, ev.Skipped))
			case export.EventCancelled:
				mw.updateStatus("Export cancelled")
			case export.EventFailed:
				mw.updateStatus("Export failed: " + ev.Err.Error())
				dialog.ShowError(ev.Err, mw.Window)
			}
		}
		mw.exportJob = nil
		mw.progressBar.Hide()
	}()
}

func (mw *MainWindow) onLoadModel() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		go func() {
			if err := mw.state.LoadModel(path); err != nil {
				slog.Error("mainwindow: model load failed", "path", path, "error", err)
				mw.updateStatus("Model load failed: " + err.Error())
				dialog.ShowError(err, mw.Window)
			}
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".onnx"}))
	fd.Show()
}

func (mw *MainWindow) onSegmentSlice() {
	if err := mw.state.StartSliceRun(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onSegmentVolume() {
	if err := mw.state.StartVolumeRun(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onCancelRun() {
	mw.state.CancelRun()
}

func (mw *MainWindow) onToggleOverlay() {
	mw.overlayItem.Checked = !mw.overlayItem.Checked
	mw.state.SetOverlayVisible(mw.overlayItem.Checked)
	mw.mainMenu.Refresh()
}

func (mw *MainWindow) onCustomLevels() {
	dlg := dialogs.NewWindowLevelDialog(mw.Window, mw.state.CurrentWindow(),
		func(win volume.Window) {
			mw.state.SetWindow(win)
		})
	dlg.Show()
}

func (mw *MainWindow) onDrawDistance() {
	if mw.state.CurrentVolume() == nil {
		mw.updateStatus("Load a series before measuring")
		return
	}
	// Entering drawing mode clears any selection
	mw.sidePanel.Measurements().ClearSelection()
	mw.canvas.StartMeasure()
	mw.updateStatus("Click two points to measure")
}

func (mw *MainWindow) onDeleteSelected() {
	mw.sidePanel.Measurements().DeleteSelected()
}

func (mw *MainWindow) onClearSlice() {
	n := mw.state.ClearSliceMeasurements()
	if n > 0 {
		mw.updateStatus(fmt.Sprintf("Removed %d measurements", n))
	}
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.GetFitToWindow()
	mw.canvas.SetFitToWindow(enabled)
	mw.fitToWindowItem.Checked = enabled
	mw.mainMenu.Refresh()
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.GetFitToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Checked = false
		mw.mainMenu.Refresh()
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About CT Viewer",
		fmt.Sprintf("CT Viewer v%s\n\n"+
			"A DICOM series viewer with lung segmentation\n"+
			"and millimeter measurements.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
