// Package panels provides the side panel sections of the viewer window.
package panels

import (
	"fmt"
	"log/slog"

	"ct-viewer/internal/app"
	"ct-viewer/internal/dicomdir"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// SeriesPanel lists the series found by the last folder scan and loads the
// one the user picks.
type SeriesPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	series    []dicomdir.Series
	list      *widget.List
	scanLabel *widget.Label
	busy      bool
}

// NewSeriesPanel creates the series browser.
func NewSeriesPanel(state *app.State) *SeriesPanel {
	sp := &SeriesPanel{state: state}

	sp.scanLabel = wrapLabel("Open a folder to scan for DICOM series.")

	sp.list = widget.NewList(
		func() int { return len(sp.series) },
		func() fyne.CanvasObject {
			title := widget.NewLabel("series")
			title.TextStyle = fyne.TextStyle{Bold: true}
			detail := widget.NewLabel("")
			return container.NewVBox(title, detail)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(sp.series) {
				return
			}
			s := &sp.series[id]
			box := obj.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(s.DisplayName())
			box.Objects[1].(*widget.Label).SetText(
				fmt.Sprintf("%s  %d slices", s.Modality, len(s.Slices)))
		},
	)
	sp.list.OnSelected = func(id widget.ListItemID) {
		sp.loadSeries(id)
	}

	sp.container = container.NewBorder(
		container.NewVBox(headerLabel("Series"), sp.scanLabel),
		nil, nil, nil,
		sp.list,
	)

	state.On(app.EventSeriesLoaded, func(data interface{}) {
		if s, ok := data.(*dicomdir.Series); ok && s != nil {
			sp.scanLabel.SetText(fmt.Sprintf("Loaded: %s (%d slices)",
				s.DisplayName(), len(s.Slices)))
		}
	})

	return sp
}

// Container returns the panel container.
func (sp *SeriesPanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for error dialogs.
func (sp *SeriesPanel) SetWindow(w fyne.Window) {
	sp.window = w
}

// SetSeries replaces the scan results. A single result loads immediately.
func (sp *SeriesPanel) SetSeries(series []dicomdir.Series) {
	sp.series = series
	sp.list.UnselectAll()
	sp.list.Refresh()

	switch len(series) {
	case 0:
		sp.scanLabel.SetText("No DICOM series found in this folder.")
	case 1:
		sp.scanLabel.SetText("Found 1 series.")
		sp.loadSeries(0)
	default:
		sp.scanLabel.SetText(fmt.Sprintf("Found %d series. Select one to load.", len(series)))
	}
}

// loadSeries decodes the selected series into the app state. Pixel decoding
// can take a while on large stacks, so it runs off the event loop.
func (sp *SeriesPanel) loadSeries(id int) {
	if id < 0 || id >= len(sp.series) || sp.busy {
		return
	}
	sp.busy = true
	series := sp.series[id]
	sp.scanLabel.SetText("Loading " + series.DisplayName() + "...")

	go func() {
		err := sp.state.LoadSeries(series)
		sp.busy = false
		if err != nil {
			slog.Error("panels: series load failed", "series", series.SeriesUID, "error", err)
			sp.scanLabel.SetText("Load failed: " + err.Error())
			if sp.window != nil {
				dialog.ShowError(err, sp.window)
			}
		}
	}()
}
