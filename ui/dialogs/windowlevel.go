package dialogs

import (
	"fmt"
	"strconv"

	"ct-viewer/internal/volume"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// WindowLevelDialog edits custom display window levels.
type WindowLevelDialog struct {
	window fyne.Window

	centerEntry *widget.Entry
	widthEntry  *widget.Entry
	rangeLabel  *widget.Label

	onApply func(volume.Window)
}

// NewWindowLevelDialog creates the dialog seeded with the current window.
func NewWindowLevelDialog(window fyne.Window, current volume.Window, onApply func(volume.Window)) *WindowLevelDialog {
	d := &WindowLevelDialog{
		window:  window,
		onApply: onApply,
	}

	d.centerEntry = widget.NewEntry()
	d.centerEntry.SetText(fmt.Sprintf("%.0f", current.Center))
	d.widthEntry = widget.NewEntry()
	d.widthEntry.SetText(fmt.Sprintf("%.0f", current.Width))
	d.rangeLabel = widget.NewLabel("")

	d.centerEntry.OnChanged = func(string) { d.updateRange() }
	d.widthEntry.OnChanged = func(string) { d.updateRange() }
	d.updateRange()

	return d
}

// Show displays the dialog.
func (d *WindowLevelDialog) Show() {
	form := widget.NewForm(
		widget.NewFormItem("Center (HU)", d.centerEntry),
		widget.NewFormItem("Width (HU)", d.widthEntry),
	)

	content := container.NewVBox(form, d.rangeLabel)

	dlg := dialog.NewCustomConfirm(
		"Window Levels",
		"Apply",
		"Cancel",
		content,
		func(confirmed bool) {
			if !confirmed {
				return
			}
			win, err := d.parse()
			if err != nil {
				dialog.ShowError(err, d.window)
				return
			}
			if d.onApply != nil {
				d.onApply(win)
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(360, 220))
	dlg.Show()
}

func (d *WindowLevelDialog) parse() (volume.Window, error) {
	center, err := strconv.ParseFloat(d.centerEntry.Text, 64)
	if err != nil {
		return volume.Window{}, fmt.Errorf("invalid center %q", d.centerEntry.Text)
	}
	width, err := strconv.ParseFloat(d.widthEntry.Text, 64)
	if err != nil {
		return volume.Window{}, fmt.Errorf("invalid width %q", d.widthEntry.Text)
	}
	if width < 1 {
		return volume.Window{}, fmt.Errorf("width must be at least 1 HU")
	}
	return volume.Window{Center: center, Width: width}, nil
}

func (d *WindowLevelDialog) updateRange() {
	win, err := d.parse()
	if err != nil {
		d.rangeLabel.SetText("")
		return
	}
	lo, hi := win.Levels()
	d.rangeLabel.SetText(fmt.Sprintf("Display range: %.0f to %.0f HU", lo, hi))
}
