// Canvas widget that shows the session frame and reports pointer gestures
package gui

import (
	"image"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"interactive-image-translation/internal/session"
)

// SketchCanvas displays the frame buffer scaled to fit and converts mouse
// gestures into canvas-pixel pointer events.
type SketchCanvas struct {
	widget.BaseWidget

	frameSize image.Point
	image     *canvas.Image
	pressed   bool

	onPointer func(session.PointerEvent)
}

// NewSketchCanvas creates a canvas for a frame buffer of frameSize pixels.
func NewSketchCanvas(frameSize image.Point, onPointer func(session.PointerEvent)) *SketchCanvas {
	sc := &SketchCanvas{
		frameSize: frameSize,
		image:     canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, frameSize.X, frameSize.Y))),
		onPointer: onPointer,
	}
	sc.image.FillMode = canvas.ImageFillContain
	sc.image.ScaleMode = canvas.ImageScalePixels
	sc.ExtendBaseWidget(sc)
	return sc
}

func (sc *SketchCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &sketchCanvasRenderer{canvas: sc}
}

// UpdateImage replaces the displayed frame. Call it on the UI goroutine.
func (sc *SketchCanvas) UpdateImage(img image.Image) {
	if img == nil {
		return
	}
	sc.image.Image = img
	sc.image.Refresh()
}

func (sc *SketchCanvas) MouseDown(event *desktop.MouseEvent) {
	if event.Button != desktop.MouseButtonPrimary {
		return
	}
	sc.pressed = true
	sc.emit(session.PointerPress, event.Position)
}

func (sc *SketchCanvas) MouseUp(event *desktop.MouseEvent) {
	if !sc.pressed {
		return
	}
	sc.pressed = false
	sc.emit(session.PointerRelease, event.Position)
}

func (sc *SketchCanvas) Dragged(event *fyne.DragEvent) {
	if !sc.pressed {
		return
	}
	sc.emit(session.PointerDrag, event.Position)
}

// DragEnd fires instead of MouseUp when the button is released after a drag.
func (sc *SketchCanvas) DragEnd() {
	if !sc.pressed {
		return
	}
	sc.pressed = false
	sc.emit(session.PointerRelease, fyne.Position{})
}

func (sc *SketchCanvas) emit(action session.PointerAction, pos fyne.Position) {
	if sc.onPointer == nil {
		return
	}
	sc.onPointer(session.PointerEvent{Action: action, Pos: sc.screenToImageCoords(pos)})
}

// screenToImageCoords undoes the ImageFillContain letterboxing.
func (sc *SketchCanvas) screenToImageCoords(screenPos fyne.Position) image.Point {
	widgetSize := sc.Size()
	if widgetSize.Width <= 0 || widgetSize.Height <= 0 || sc.frameSize.X <= 0 || sc.frameSize.Y <= 0 {
		return image.Point{}
	}

	scaleX := float64(widgetSize.Width) / float64(sc.frameSize.X)
	scaleY := float64(widgetSize.Height) / float64(sc.frameSize.Y)
	scale := math.Min(scaleX, scaleY)

	offsetX := (float64(widgetSize.Width) - float64(sc.frameSize.X)*scale) / 2
	offsetY := (float64(widgetSize.Height) - float64(sc.frameSize.Y)*scale) / 2

	imageX := (float64(screenPos.X) - offsetX) / scale
	imageY := (float64(screenPos.Y) - offsetY) / scale

	imageX = math.Max(0, math.Min(imageX, float64(sc.frameSize.X-1)))
	imageY = math.Max(0, math.Min(imageY, float64(sc.frameSize.Y-1)))
	return image.Pt(int(imageX), int(imageY))
}

type sketchCanvasRenderer struct {
	canvas *SketchCanvas
}

func (r *sketchCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.image.Resize(size)
}

func (r *sketchCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(float32(r.canvas.frameSize.X)/2, float32(r.canvas.frameSize.Y)/2)
}

func (r *sketchCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.image}
}

func (r *sketchCanvasRenderer) Refresh() {
	r.canvas.image.Refresh()
}

func (r *sketchCanvasRenderer) Destroy() {}
