// Package canvas provides the slice viewport: a zoomable raster showing the
// windowed CT slice with the mask overlay composited in, plus the
// measurement drawing layer.
package canvas

import (
	"image"
	"image/color"

	"ct-viewer/pkg/colorutil"
	"ct-viewer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25

	// labelOffset keeps the distance text clear of the segment it describes.
	labelOffsetX = 10
	labelOffsetY = -12
)

// SliceCanvas displays one rendered slice with pan, zoom, and the
// two-click measurement gesture. The mouse wheel steps through slices
// rather than zooming; zoom is driven by buttons and menu actions.
type SliceCanvas struct {
	widget.BaseWidget

	// Rendered slice (window + mask already composited by the caller)
	slice *image.RGBA

	// Measurement overlay
	lines []MeasureLine

	// Two-click gesture state
	measuring bool
	anchored  bool
	anchor    geometry.Point2D
	transient *transientLine

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Container
	scroll  *wheelScroll
	content *sliceContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	// Callbacks
	onZoomChange  func(zoom float64)
	onWheel       func(notches int)               // wheel notch, +1 toward last slice
	onHover       func(x, y float64, inside bool) // cursor motion in image coords
	onMeasureDone func(start, end geometry.Point2D)
	onSelectAt    func(x, y float64) // primary click outside measure mode
	onContextAt   func(x, y float64) // secondary click outside measure mode
	liveLabel     func(start, end geometry.Point2D) string
}

// wheelScroll wraps a scroll container but routes the wheel to slice
// navigation instead of scrolling.
type wheelScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *SliceCanvas
}

func newWheelScroll(content fyne.CanvasObject, canvas *SliceCanvas) *wheelScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	ws := &wheelScroll{scroll: scroll, canvas: canvas}
	ws.ExtendBaseWidget(ws)
	return ws
}

func (ws *wheelScroll) Scrolled(ev *fyne.ScrollEvent) {
	// Wheel steps through the stack; up moves toward slice 0
	if ws.canvas.onWheel == nil {
		return
	}
	if ev.Scrolled.DY > 0 {
		ws.canvas.onWheel(-1)
	} else if ev.Scrolled.DY < 0 {
		ws.canvas.onWheel(1)
	}
}

func (ws *wheelScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ws.scroll)
}

// Offset returns the scroll container's current offset.
func (ws *wheelScroll) Offset() fyne.Position {
	return ws.scroll.Offset
}

// Size returns the scroll container's size.
func (ws *wheelScroll) Size() fyne.Size {
	return ws.scroll.Size()
}

// Refresh refreshes the scroll container.
func (ws *wheelScroll) Refresh() {
	ws.scroll.Refresh()
	ws.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (ws *wheelScroll) Resize(size fyne.Size) {
	ws.scroll.Resize(size)
	ws.BaseWidget.Resize(size)
}

// sliceContent wraps the raster to receive mouse events.
type sliceContent struct {
	widget.BaseWidget
	canvas *SliceCanvas
	raster *fynecanvas.Raster
}

var _ desktop.Hoverable = (*sliceContent)(nil)

func newSliceContent(sc *SliceCanvas, raster *fynecanvas.Raster) *sliceContent {
	c := &sliceContent{canvas: sc, raster: raster}
	c.ExtendBaseWidget(c)
	return c
}

func (c *sliceContent) CreateRenderer() fyne.WidgetRenderer {
	return &sliceContentRenderer{content: c}
}

func (c *sliceContent) MinSize() fyne.Size {
	return c.raster.MinSize()
}

// imagePoint converts a widget-relative event position to image coordinates.
func (c *sliceContent) imagePoint(pos fyne.Position) geometry.Point2D {
	offset := c.canvas.scroll.Offset()
	return geometry.Point2D{
		X: float64(pos.X+offset.X) / c.canvas.zoom,
		Y: float64(pos.Y+offset.Y) / c.canvas.zoom,
	}
}

// inWidget rejects events fyne occasionally delivers outside the widget.
func (c *sliceContent) inWidget(pos fyne.Position) bool {
	size := c.Size()
	return pos.X >= 0 && pos.Y >= 0 && pos.X <= size.Width && pos.Y <= size.Height
}

// Tapped handles primary clicks: measurement anchor/finalize while the
// gesture is active, hit-test selection otherwise.
func (c *sliceContent) Tapped(ev *fyne.PointEvent) {
	if !c.inWidget(ev.Position) {
		return
	}
	p := c.imagePoint(ev.Position)

	if c.canvas.measuring {
		c.canvas.measureClick(p)
		return
	}
	if c.canvas.onSelectAt != nil {
		c.canvas.onSelectAt(p.X, p.Y)
	}
}

// TappedSecondary aborts an in-progress measurement; outside the gesture it
// reports a context click.
func (c *sliceContent) TappedSecondary(ev *fyne.PointEvent) {
	if c.canvas.measuring {
		c.canvas.abortMeasure()
		return
	}
	if !c.inWidget(ev.Position) {
		return
	}
	if c.canvas.onContextAt != nil {
		p := c.imagePoint(ev.Position)
		c.canvas.onContextAt(p.X, p.Y)
	}
}

func (c *sliceContent) MouseIn(ev *desktop.MouseEvent) {
	c.MouseMoved(ev)
}

// MouseMoved live-updates the transient measurement and the hover readout.
func (c *sliceContent) MouseMoved(ev *desktop.MouseEvent) {
	p := c.imagePoint(ev.Position)

	if c.canvas.anchored {
		c.canvas.updateTransient(p)
	}
	if c.canvas.onHover != nil {
		c.canvas.onHover(p.X, p.Y, c.canvas.inImage(p))
	}
}

func (c *sliceContent) MouseOut() {
	if c.canvas.onHover != nil {
		c.canvas.onHover(0, 0, false)
	}
}

type sliceContentRenderer struct {
	content *sliceContent
}

func (r *sliceContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *sliceContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *sliceContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *sliceContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *sliceContentRenderer) Destroy() {}

// NewSliceCanvas creates an empty slice canvas.
func NewSliceCanvas() *SliceCanvas {
	sc := &SliceCanvas{
		zoom:    1.0,
		imgSize: fyne.NewSize(512, 512),
	}

	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.raster.ScaleMode = fynecanvas.ImageScalePixels
	sc.raster.SetMinSize(sc.imgSize)

	sc.content = newSliceContent(sc, sc.raster)
	sc.scroll = newWheelScroll(sc.content, sc)

	sc.ExtendBaseWidget(sc)
	return sc
}

// Container returns the canvas container for embedding in layouts.
func (sc *SliceCanvas) Container() fyne.CanvasObject {
	return sc.scroll
}

// SetSlice replaces the displayed slice image. nil clears the display.
func (sc *SliceCanvas) SetSlice(img *image.RGBA) {
	sc.slice = img
	sc.updateContentSize()
}

// SetMeasureLines replaces the measurement overlay.
func (sc *SliceCanvas) SetMeasureLines(lines []MeasureLine) {
	sc.lines = lines
	sc.Refresh()
}

// StartMeasure arms the two-click measurement gesture. The next primary
// click inside the image anchors the measurement.
func (sc *SliceCanvas) StartMeasure() {
	sc.measuring = true
	sc.anchored = false
	sc.transient = nil
	sc.Refresh()
}

// Measuring reports whether the gesture is armed or in progress.
func (sc *SliceCanvas) Measuring() bool {
	return sc.measuring
}

// AbortMeasure cancels the gesture without recording anything.
func (sc *SliceCanvas) AbortMeasure() {
	sc.abortMeasure()
}

// measureClick advances the gesture: first in-bounds click anchors, second
// finalizes. A click outside the image aborts, per the out-of-range policy.
func (sc *SliceCanvas) measureClick(p geometry.Point2D) {
	if !sc.inImage(p) {
		sc.abortMeasure()
		return
	}

	if !sc.anchored {
		sc.anchored = true
		sc.anchor = p
		sc.transient = &transientLine{Start: p, End: p}
		if sc.liveLabel != nil {
			sc.transient.Label = sc.liveLabel(p, p)
		}
		sc.Refresh()
		return
	}

	start, end := sc.anchor, p
	// Single-shot gesture: drawing mode ends with the second click
	sc.measuring = false
	sc.anchored = false
	sc.transient = nil
	sc.Refresh()

	if sc.onMeasureDone != nil {
		sc.onMeasureDone(start, end)
	}
}

// updateTransient follows the cursor between the two clicks.
func (sc *SliceCanvas) updateTransient(p geometry.Point2D) {
	if sc.transient == nil {
		return
	}
	sc.transient.End = p
	if sc.liveLabel != nil {
		sc.transient.Label = sc.liveLabel(sc.anchor, p)
	}
	sc.Refresh()
}

func (sc *SliceCanvas) abortMeasure() {
	if !sc.measuring && sc.transient == nil {
		return
	}
	sc.measuring = false
	sc.anchored = false
	sc.transient = nil
	sc.Refresh()
}

// inImage reports whether an image-space point falls inside the slice.
func (sc *SliceCanvas) inImage(p geometry.Point2D) bool {
	if sc.slice == nil {
		return false
	}
	b := sc.slice.Bounds()
	return p.X >= 0 && p.Y >= 0 && p.X < float64(b.Dx()) && p.Y < float64(b.Dy())
}

// SetZoom sets the zoom level, clamped to the supported range.
func (sc *SliceCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	sc.zoom = zoom
	sc.updateContentSize()

	if sc.onZoomChange != nil {
		sc.onZoomChange(zoom)
	}
}

// GetZoom returns the current zoom level.
func (sc *SliceCanvas) GetZoom() float64 {
	return sc.zoom
}

// ZoomIn increases the zoom level.
func (sc *SliceCanvas) ZoomIn() {
	sc.SetZoom(sc.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (sc *SliceCanvas) ZoomOut() {
	sc.SetZoom(sc.zoom / zoomStep)
}

// FitToWindow adjusts zoom so the whole slice is visible.
func (sc *SliceCanvas) FitToWindow() {
	if sc.slice == nil {
		return
	}
	b := sc.slice.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}

	viewSize := sc.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(b.Dx())
	zoomY := float64(viewSize.Height) / float64(b.Dy())

	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}

	sc.SetZoom(zoom * 0.95) // Leave a small margin
}

// SetFitToWindow enables or disables auto-fit on resize.
func (sc *SliceCanvas) SetFitToWindow(fit bool) {
	sc.fitToWindow = fit
	if fit {
		sc.FitToWindow()
	}
}

// GetFitToWindow returns the current fit-to-window state.
func (sc *SliceCanvas) GetFitToWindow() bool {
	return sc.fitToWindow
}

// CheckResize re-fits after the scroll container was resized.
func (sc *SliceCanvas) CheckResize(size fyne.Size) {
	if !sc.fitToWindow {
		return
	}
	if size.Width > 0 && size.Height > 0 && size != sc.lastScrollSize {
		sc.lastScrollSize = size
		sc.FitToWindow()
	}
}

// OnZoomChange sets a callback for zoom changes.
func (sc *SliceCanvas) OnZoomChange(callback func(zoom float64)) {
	sc.onZoomChange = callback
}

// OnWheel sets the wheel callback; notches are +1 toward the last slice.
func (sc *SliceCanvas) OnWheel(callback func(notches int)) {
	sc.onWheel = callback
}

// OnHover sets the cursor-motion callback. Coordinates are image pixels;
// inside is false when the cursor leaves the slice.
func (sc *SliceCanvas) OnHover(callback func(x, y float64, inside bool)) {
	sc.onHover = callback
}

// OnMeasureDone sets the callback fired when the gesture finalizes.
func (sc *SliceCanvas) OnMeasureDone(callback func(start, end geometry.Point2D)) {
	sc.onMeasureDone = callback
}

// OnSelectAt sets the callback for primary clicks outside measure mode.
func (sc *SliceCanvas) OnSelectAt(callback func(x, y float64)) {
	sc.onSelectAt = callback
}

// OnContextAt sets the callback for secondary clicks outside measure mode.
func (sc *SliceCanvas) OnContextAt(callback func(x, y float64)) {
	sc.onContextAt = callback
}

// SetLiveLabel sets the formatter for the transient measurement's label.
func (sc *SliceCanvas) SetLiveLabel(format func(start, end geometry.Point2D) string) {
	sc.liveLabel = format
}

// ImageToCanvas converts image coordinates to canvas coordinates.
func (sc *SliceCanvas) ImageToCanvas(imgX, imgY float64) (canvasX, canvasY float64) {
	return imgX * sc.zoom, imgY * sc.zoom
}

// CanvasToImage converts canvas coordinates to image coordinates.
func (sc *SliceCanvas) CanvasToImage(canvasX, canvasY float64) (imgX, imgY float64) {
	return canvasX / sc.zoom, canvasY / sc.zoom
}

// Refresh refreshes the canvas display.
func (sc *SliceCanvas) Refresh() {
	sc.raster.Refresh()
}

// updateContentSize updates the content size based on image and zoom.
func (sc *SliceCanvas) updateContentSize() {
	if sc.slice == nil {
		sc.imgSize = fyne.NewSize(512, 512)
	} else {
		b := sc.slice.Bounds()
		sc.imgSize = fyne.NewSize(
			float32(float64(b.Dx())*sc.zoom),
			float32(float64(b.Dy())*sc.zoom),
		)
	}

	sc.raster.SetMinSize(sc.imgSize)
	sc.raster.Resize(sc.imgSize)
	if sc.content != nil {
		sc.content.Resize(sc.imgSize)
		sc.content.Refresh()
	}
	sc.raster.Refresh()
	if sc.scroll != nil {
		sc.scroll.Refresh()
	}
}

// draw is the raster drawing function.
func (sc *SliceCanvas) draw(w, h int) image.Image {
	currentSize := fyne.NewSize(float32(w), float32(h))
	if sc.fitToWindow && currentSize != sc.lastScrollSize && w > 0 && h > 0 {
		sc.lastScrollSize = currentSize
		// Schedule fit after this draw completes
		go func() {
			sc.FitToWindow()
		}()
	}

	output := image.NewRGBA(image.Rect(0, 0, w, h))

	// Black viewing background
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}

	if sc.slice != nil {
		sc.blitSlice(output, w, h)
	}

	for i := range sc.lines {
		sc.drawMeasureLine(output, &sc.lines[i])
	}
	if sc.transient != nil {
		sc.drawTransient(output)
	}

	return output
}

// blitSlice scales the slice onto the output with nearest-neighbor sampling,
// keeping individual voxels visible when zoomed in.
func (sc *SliceCanvas) blitSlice(output *image.RGBA, w, h int) {
	src := sc.slice
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	for y := 0; y < h; y++ {
		srcY := int(float64(y) / sc.zoom)
		if srcY < 0 || srcY >= srcH {
			continue
		}
		for x := 0; x < w; x++ {
			srcX := int(float64(x) / sc.zoom)
			if srcX < 0 || srcX >= srcW {
				continue
			}
			so := src.PixOffset(srcX+b.Min.X, srcY+b.Min.Y)
			do := output.PixOffset(x, y)
			output.Pix[do] = src.Pix[so]
			output.Pix[do+1] = src.Pix[so+1]
			output.Pix[do+2] = src.Pix[so+2]
			output.Pix[do+3] = 255
		}
	}
}

func (sc *SliceCanvas) drawMeasureLine(output *image.RGBA, line *MeasureLine) {
	col := colorutil.Yellow
	thickness := 2
	if line.Selected {
		col = colorutil.Orange
		thickness = 3
	}

	x1 := int(line.Start.X * sc.zoom)
	y1 := int(line.Start.Y * sc.zoom)
	x2 := int(line.End.X * sc.zoom)
	y2 := int(line.End.Y * sc.zoom)

	drawLine(output, x1, y1, x2, y2, col, thickness)
	drawEndpoint(output, x1, y1, col, 4)
	drawEndpoint(output, x2, y2, col, 4)

	if line.Label != "" {
		mid := line.Start.Midpoint(line.End)
		lx := int(mid.X*sc.zoom) + labelOffsetX
		ly := int(mid.Y*sc.zoom) + labelOffsetY
		drawLabel(output, line.Label, lx, ly, col, sc.zoom)
	}
}

func (sc *SliceCanvas) drawTransient(output *image.RGBA) {
	t := sc.transient
	col := color.RGBA{R: 0, G: 255, B: 255, A: 255}

	x1 := int(t.Start.X * sc.zoom)
	y1 := int(t.Start.Y * sc.zoom)
	x2 := int(t.End.X * sc.zoom)
	y2 := int(t.End.Y * sc.zoom)

	drawLine(output, x1, y1, x2, y2, col, 1)
	drawEndpoint(output, x1, y1, col, 4)

	if t.Label != "" {
		mid := t.Start.Midpoint(t.End)
		lx := int(mid.X*sc.zoom) + labelOffsetX
		ly := int(mid.Y*sc.zoom) + labelOffsetY
		drawLabel(output, t.Label, lx, ly, col, sc.zoom)
	}
}

// CreateRenderer implements fyne.Widget.
func (sc *SliceCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &sliceCanvasRenderer{canvas: sc}
}

type sliceCanvasRenderer struct {
	canvas *SliceCanvas
}

func (r *sliceCanvasRenderer) Layout(size fyne.Size) {
	if r.canvas.scroll != nil {
		r.canvas.scroll.Resize(size)
	} else if r.canvas.content != nil {
		r.canvas.content.Resize(size)
	}
	r.canvas.CheckResize(size)
}

func (r *sliceCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *sliceCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *sliceCanvasRenderer) Objects() []fyne.CanvasObject {
	if r.canvas.scroll != nil {
		return []fyne.CanvasObject{r.canvas.scroll}
	}
	return []fyne.CanvasObject{r.canvas.content}
}

func (r *sliceCanvasRenderer) Destroy() {}
