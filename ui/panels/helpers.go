package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// headerLabel returns a bold label for section headings.
func headerLabel(text string) *widget.Label {
	l := widget.NewLabel(text)
	l.TextStyle = fyne.TextStyle{Bold: true}
	return l
}

// wrapLabel returns a word-wrapping label for free-form text.
func wrapLabel(text string) *widget.Label {
	l := widget.NewLabel(text)
	l.Wrapping = fyne.TextWrapWord
	return l
}

// formatMM renders a measured distance for display.
func formatMM(mm float64) string {
	return fmt.Sprintf("%.1f mm", mm)
}

// formatHU renders a calibrated intensity value for display.
func formatHU(v float64) string {
	return fmt.Sprintf("%.0f HU", v)
}

// formatSpacing renders pixel spacing as "row x col mm".
func formatSpacing(row, col float64) string {
	return fmt.Sprintf("%.3f x %.3f mm", row, col)
}
