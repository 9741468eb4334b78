package panels

import (
	"fmt"
	"path/filepath"

	"ct-viewer/internal/app"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// InfoPanel shows series metadata, calibration, the cursor readout, and
// mask statistics when a segmentation result is active.
type InfoPanel struct {
	state     *app.State
	container fyne.CanvasObject

	patientLabel *widget.Label
	studyLabel   *widget.Label
	seriesLabel  *widget.Label
	spacingLabel *widget.Label
	sliceLabel   *widget.Label
	windowLabel  *widget.Label
	cursorLabel  *widget.Label
	modelLabel   *widget.Label
	maskLabel    *widget.Label
}

// NewInfoPanel creates the info panel.
func NewInfoPanel(state *app.State) *InfoPanel {
	ip := &InfoPanel{state: state}

	ip.patientLabel = wrapLabel("-")
	ip.studyLabel = wrapLabel("-")
	ip.seriesLabel = wrapLabel("-")
	ip.spacingLabel = widget.NewLabel("-")
	ip.sliceLabel = widget.NewLabel("-")
	ip.windowLabel = widget.NewLabel("-")
	ip.cursorLabel = widget.NewLabel("-")
	ip.modelLabel = wrapLabel("No model loaded")
	ip.maskLabel = wrapLabel("No segmentation result")

	ip.container = container.NewVBox(
		widget.NewCard("Series", "", widget.NewForm(
			widget.NewFormItem("Patient", ip.patientLabel),
			widget.NewFormItem("Study", ip.studyLabel),
			widget.NewFormItem("Series", ip.seriesLabel),
			widget.NewFormItem("Spacing", ip.spacingLabel),
		)),
		widget.NewCard("View", "", widget.NewForm(
			widget.NewFormItem("Slice", ip.sliceLabel),
			widget.NewFormItem("Window", ip.windowLabel),
			widget.NewFormItem("Cursor", ip.cursorLabel),
		)),
		widget.NewCard("Segmentation", "", container.NewVBox(
			ip.modelLabel,
			ip.maskLabel,
		)),
	)

	state.On(app.EventSeriesLoaded, func(interface{}) { ip.refreshSeries() })
	state.On(app.EventSliceChanged, func(interface{}) { ip.refreshView() })
	state.On(app.EventWindowChanged, func(interface{}) { ip.refreshView() })
	state.On(app.EventMaskChanged, func(interface{}) { ip.refreshMask() })
	state.On(app.EventModelChanged, func(data interface{}) {
		if path, ok := data.(string); ok && path != "" {
			ip.modelLabel.SetText("Model: " + filepath.Base(path))
		} else {
			ip.modelLabel.SetText("No model loaded")
		}
	})

	return ip
}

// Container returns the panel container.
func (ip *InfoPanel) Container() fyne.CanvasObject {
	return ip.container
}

func (ip *InfoPanel) refreshSeries() {
	series := ip.state.LoadedSeries()
	vol := ip.state.CurrentVolume()
	if series == nil || vol == nil {
		ip.patientLabel.SetText("-")
		ip.studyLabel.SetText("-")
		ip.seriesLabel.SetText("-")
		ip.spacingLabel.SetText("-")
		ip.refreshView()
		return
	}

	patient := series.PatientName
	if series.PatientID != "" {
		patient += " (" + series.PatientID + ")"
	}
	ip.patientLabel.SetText(orDash(patient))
	ip.studyLabel.SetText(orDash(series.StudyDescription))
	ip.seriesLabel.SetText(fmt.Sprintf("%s, %s", series.DisplayName(), orDash(series.Modality)))
	ip.spacingLabel.SetText(formatSpacing(vol.Spacing.Row, vol.Spacing.Col))
	ip.refreshView()
	ip.refreshMask()
}

func (ip *InfoPanel) refreshView() {
	vol := ip.state.CurrentVolume()
	if vol == nil {
		ip.sliceLabel.SetText("-")
		ip.windowLabel.SetText("-")
		return
	}
	ip.sliceLabel.SetText(fmt.Sprintf("%d / %d", ip.state.Slice()+1, vol.Z))

	win := ip.state.CurrentWindow()
	ip.windowLabel.SetText(fmt.Sprintf("%s (C %.0f / W %.0f)",
		ip.state.Preset(), win.Center, win.Width))
}

func (ip *InfoPanel) refreshMask() {
	if !ip.state.HasMask() {
		ip.maskLabel.SetText("No segmentation result")
		return
	}

	stats, ok := ip.state.MaskStats()
	if !ok || stats.Voxels == 0 {
		ip.maskLabel.SetText("Mask present (empty region)")
		return
	}
	ip.maskLabel.SetText(fmt.Sprintf(
		"Masked: %d voxels, %.1f mL\nMean %s, range %s to %s",
		stats.Voxels, stats.VolumeML,
		formatHU(stats.MeanHU), formatHU(stats.MinHU), formatHU(stats.MaxHU)))
}

// SetCursor updates the hover readout with the voxel under the cursor.
func (ip *InfoPanel) SetCursor(x, y int, inside bool) {
	vol := ip.state.CurrentVolume()
	if !inside || vol == nil {
		ip.cursorLabel.SetText("-")
		return
	}
	z := ip.state.Slice()
	if y < 0 || y >= vol.H || x < 0 || x >= vol.W || !vol.InBounds(z) {
		ip.cursorLabel.SetText("-")
		return
	}
	v := vol.At(z, y, x)
	ip.cursorLabel.SetText(fmt.Sprintf("(%d, %d)  %s", x, y, formatHU(v)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
