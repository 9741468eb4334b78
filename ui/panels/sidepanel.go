package panels

import (
	"ct-viewer/internal/app"
	"ct-viewer/internal/dicomdir"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
)

// SidePanel provides the tabbed side panel: series browser, measurement
// list, and series/view information.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	seriesPanel  *SeriesPanel
	measurePanel *MeasurePanel
	infoPanel    *InfoPanel
}

// NewSidePanel creates the side panel.
func NewSidePanel(state *app.State) *SidePanel {
	sp := &SidePanel{state: state}

	sp.seriesPanel = NewSeriesPanel(state)
	sp.measurePanel = NewMeasurePanel(state)
	sp.infoPanel = NewInfoPanel(state)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Series", sp.seriesPanel.Container()),
		container.NewTabItem("Measure", sp.measurePanel.Container()),
		container.NewTabItem("Info", sp.infoPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.seriesPanel.SetWindow(w)
}

// SetSeries hands scan results to the series browser and brings it forward.
func (sp *SidePanel) SetSeries(series []dicomdir.Series) {
	sp.seriesPanel.SetSeries(series)
	sp.container.SelectIndex(0)
}

// Measurements returns the measurement list panel.
func (sp *SidePanel) Measurements() *MeasurePanel {
	return sp.measurePanel
}

// Info returns the info panel.
func (sp *SidePanel) Info() *InfoPanel {
	return sp.infoPanel
}
