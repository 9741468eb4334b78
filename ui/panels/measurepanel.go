package panels

import (
	"fmt"

	"ct-viewer/internal/app"
	"ct-viewer/internal/measure"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// MeasurePanel lists the measurements on the current slice and owns the
// exclusive selection. Selection clears on slice changes and when drawing
// mode is entered.
type MeasurePanel struct {
	state     *app.State
	container fyne.CanvasObject

	items      []measure.Measurement
	selectedID string
	list       *widget.List
	header     *widget.Label
	deleteBtn  *widget.Button
	clearBtn   *widget.Button

	// onChanged fires whenever the selection changes, so the canvas can
	// redraw its highlight.
	onChanged func()
}

// NewMeasurePanel creates the measurement list panel.
func NewMeasurePanel(state *app.State) *MeasurePanel {
	mp := &MeasurePanel{state: state}

	mp.header = widget.NewLabel("No measurements on this slice")

	mp.list = widget.NewList(
		func() int { return len(mp.items) },
		func() fyne.CanvasObject {
			return widget.NewLabel("measurement")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(mp.items) {
				return
			}
			m := mp.items[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%d:  %s  (%.0f,%.0f) to (%.0f,%.0f)",
				id+1, formatMM(m.DistanceMM), m.Start.X, m.Start.Y, m.End.X, m.End.Y))
		},
	)
	mp.list.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(mp.items) {
			return
		}
		mp.selectedID = mp.items[id].ID
		mp.updateButtons()
		mp.notify()
	}
	mp.list.OnUnselected = func(id widget.ListItemID) {
		if id >= 0 && id < len(mp.items) && mp.items[id].ID == mp.selectedID {
			mp.selectedID = ""
			mp.updateButtons()
			mp.notify()
		}
	}

	mp.deleteBtn = widget.NewButton("Delete Selected", func() {
		mp.DeleteSelected()
	})
	mp.clearBtn = widget.NewButton("Clear Slice", func() {
		mp.state.ClearSliceMeasurements()
	})
	mp.updateButtons()

	mp.container = container.NewBorder(
		container.NewVBox(headerLabel("Measurements"), mp.header),
		container.NewHBox(mp.deleteBtn, mp.clearBtn),
		nil, nil,
		mp.list,
	)

	state.On(app.EventSliceChanged, func(interface{}) {
		mp.ClearSelection()
		mp.Reload()
	})
	state.On(app.EventMeasurementsChanged, func(interface{}) {
		mp.Reload()
	})
	state.On(app.EventSeriesLoaded, func(interface{}) {
		mp.ClearSelection()
		mp.Reload()
	})

	return mp
}

// Container returns the panel container.
func (mp *MeasurePanel) Container() fyne.CanvasObject {
	return mp.container
}

// OnChanged sets the selection-change callback.
func (mp *MeasurePanel) OnChanged(callback func()) {
	mp.onChanged = callback
}

func (mp *MeasurePanel) notify() {
	if mp.onChanged != nil {
		mp.onChanged()
	}
}

// Reload refreshes the list from the current slice's measurements. A
// selection whose measurement no longer exists is dropped.
func (mp *MeasurePanel) Reload() {
	mp.items = mp.state.MeasurementsForSlice(mp.state.Slice())

	if len(mp.items) == 0 {
		mp.header.SetText("No measurements on this slice")
	} else {
		mp.header.SetText(fmt.Sprintf("%d on this slice, %d total",
			len(mp.items), mp.state.Measurements.Total()))
	}

	if mp.selectedID != "" {
		found := false
		for _, m := range mp.items {
			if m.ID == mp.selectedID {
				found = true
				break
			}
		}
		if !found {
			mp.selectedID = ""
			mp.notify()
		}
	}

	mp.list.Refresh()
	mp.syncListSelection()
	mp.updateButtons()
}

// Selected returns the selected measurement's id, or "".
func (mp *MeasurePanel) Selected() string {
	return mp.selectedID
}

// Select makes one measurement the exclusive selection.
func (mp *MeasurePanel) Select(id string) {
	if mp.selectedID == id {
		return
	}
	mp.selectedID = id
	mp.syncListSelection()
	mp.updateButtons()
	mp.notify()
}

// ClearSelection drops the selection, if any.
func (mp *MeasurePanel) ClearSelection() {
	if mp.selectedID == "" {
		return
	}
	mp.selectedID = ""
	mp.list.UnselectAll()
	mp.updateButtons()
	mp.notify()
}

// DeleteSelected removes the selected measurement from the store. No-op
// when nothing is selected.
func (mp *MeasurePanel) DeleteSelected() {
	if mp.selectedID == "" {
		return
	}
	id := mp.selectedID
	mp.selectedID = ""
	mp.state.RemoveMeasurement(mp.state.Slice(), id)
}

func (mp *MeasurePanel) syncListSelection() {
	if mp.selectedID == "" {
		mp.list.UnselectAll()
		return
	}
	for i, m := range mp.items {
		if m.ID == mp.selectedID {
			mp.list.Select(i)
			return
		}
	}
}

func (mp *MeasurePanel) updateButtons() {
	if mp.selectedID == "" {
		mp.deleteBtn.Disable()
	} else {
		mp.deleteBtn.Enable()
	}
	if len(mp.items) == 0 {
		mp.clearBtn.Disable()
	} else {
		mp.clearBtn.Enable()
	}
}
