// Package dialogs provides the viewer's modal dialogs.
package dialogs

import (
	"errors"

	"ct-viewer/internal/export"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ExportDialog collects export options before a job starts. The mask burn
// option only unlocks when a full-volume mask is available.
type ExportDialog struct {
	window  fyne.Window
	hasMask bool

	formatRadio *widget.RadioGroup
	anonCheck   *widget.Check
	windowCheck *widget.Check
	maskCheck   *widget.Check
	dirEntry    *widget.Entry

	onExport func(opts export.Options)
}

// NewExportDialog creates an export dialog. Defaults come from the caller's
// configuration; onExport receives the validated options.
func NewExportDialog(window fyne.Window, defaults export.Options, hasMask bool, onExport func(export.Options)) *ExportDialog {
	d := &ExportDialog{
		window:   window,
		hasMask:  hasMask,
		onExport: onExport,
	}

	d.formatRadio = widget.NewRadioGroup([]string{"DICOM", "PNG", "TIFF"}, func(string) {
		d.updateEnablement()
	})
	d.anonCheck = widget.NewCheck("Remove patient identity tags", nil)
	d.windowCheck = widget.NewCheck("Apply current display window", nil)
	d.maskCheck = widget.NewCheck("Burn mask overlay into images", nil)
	d.dirEntry = widget.NewEntry()
	d.dirEntry.SetPlaceHolder("Destination folder")

	switch defaults.Format {
	case export.FormatDICOM:
		d.formatRadio.SetSelected("DICOM")
	case export.FormatTIFF:
		d.formatRadio.SetSelected("TIFF")
	default:
		d.formatRadio.SetSelected("PNG")
	}
	d.anonCheck.SetChecked(defaults.Anonymize)
	d.windowCheck.SetChecked(defaults.ApplyWindow)
	d.maskCheck.SetChecked(defaults.BurnMask && hasMask)
	d.dirEntry.SetText(defaults.OutDir)

	d.updateEnablement()
	return d
}

// Show displays the dialog.
func (d *ExportDialog) Show() {
	browseBtn := widget.NewButton("Browse...", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			d.dirEntry.SetText(uri.Path())
		}, d.window)
		fd.Show()
	})

	content := container.NewVBox(
		widget.NewLabel("Format"),
		d.formatRadio,
		widget.NewSeparator(),
		d.anonCheck,
		d.windowCheck,
		d.maskCheck,
		widget.NewSeparator(),
		widget.NewLabel("Destination"),
		container.NewBorder(nil, nil, nil, browseBtn, d.dirEntry),
	)

	dlg := dialog.NewCustomConfirm(
		"Export Series",
		"Export",
		"Cancel",
		content,
		func(confirmed bool) {
			if !confirmed {
				return
			}
			if d.dirEntry.Text == "" {
				dialog.ShowError(errors.New("choose a destination folder"), d.window)
				return
			}
			if d.onExport != nil {
				d.onExport(d.options())
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(440, 420))
	dlg.Show()
}

// options assembles the chosen export options. The display window itself is
// filled in by the caller, which owns the view state.
func (d *ExportDialog) options() export.Options {
	opts := export.Options{OutDir: d.dirEntry.Text}
	switch d.formatRadio.Selected {
	case "DICOM":
		opts.Format = export.FormatDICOM
		opts.Anonymize = d.anonCheck.Checked
	case "TIFF":
		opts.Format = export.FormatTIFF
	default:
		opts.Format = export.FormatPNG
		opts.ApplyWindow = d.windowCheck.Checked
		opts.BurnMask = d.maskCheck.Checked && d.hasMask
	}
	return opts
}

// updateEnablement keeps the per-format options consistent with the radio.
func (d *ExportDialog) updateEnablement() {
	switch d.formatRadio.Selected {
	case "DICOM":
		d.anonCheck.Enable()
		d.windowCheck.Disable()
		d.maskCheck.Disable()
	case "TIFF":
		d.anonCheck.Disable()
		d.windowCheck.Disable()
		d.maskCheck.Disable()
	default:
		d.anonCheck.Disable()
		d.windowCheck.Enable()
		if d.hasMask {
			d.maskCheck.Enable()
		} else {
			d.maskCheck.Disable()
		}
	}
}
