// Persistent canvas pixel buffer with thread-safe operations
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

const maxDimension = 16384

// FrameBuffer is the session canvas. The left half holds the input panel and
// the right half the model output. Pixels are 8-bit BGR.
type FrameBuffer struct {
	mu         sync.RWMutex
	mat        gocv.Mat
	width      int
	height     int
	background color.RGBA
}

// NewFrameBuffer allocates a width x height canvas filled with background.
func NewFrameBuffer(width, height int, background color.RGBA) (*FrameBuffer, error) {
	if width <= 1 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas dimensions: %dx%d", width, height)
	}
	if width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("canvas too large: %dx%d (max: %d)", width, height, maxDimension)
	}
	fb := &FrameBuffer{
		mat:        gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
		width:      width,
		height:     height,
		background: background,
	}
	fb.Clear()
	return fb, nil
}

func (fb *FrameBuffer) Width() int             { return fb.width }
func (fb *FrameBuffer) Height() int            { return fb.height }
func (fb *FrameBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, fb.width, fb.height) }
func (fb *FrameBuffer) Background() color.RGBA { return fb.background }

// LeftPanel is the input half of the canvas.
func (fb *FrameBuffer) LeftPanel() image.Rectangle {
	return image.Rect(0, 0, fb.width/2, fb.height)
}

// RightPanel is the output half of the canvas.
func (fb *FrameBuffer) RightPanel() image.Rectangle {
	return image.Rect(fb.width/2, 0, fb.width, fb.height)
}

// Clear fills the whole canvas with the background color.
func (fb *FrameBuffer) Clear() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.mat.SetTo(scalar(fb.background))
}

// Fill paints rect with c.
func (fb *FrameBuffer) Fill(rect image.Rectangle, c color.RGBA) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	r := rect.Intersect(fb.Bounds())
	if r.Empty() {
		return
	}
	roi := fb.mat.Region(r)
	defer roi.Close()
	roi.SetTo(scalar(c))
}

// DrawSegment renders one stroke segment.
func (fb *FrameBuffer) DrawSegment(seg Segment, c color.RGBA, weight int) {
	if weight < 1 {
		weight = 1
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	gocv.Line(&fb.mat, seg.From, seg.To, c, weight)
}

// Draw hands the canvas to fn under the write lock.
func (fb *FrameBuffer) Draw(fn func(mat *gocv.Mat)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(&fb.mat)
}

// Paste copies src into rect. src must already have rect's size.
func (fb *FrameBuffer) Paste(rect image.Rectangle, src gocv.Mat) error {
	if src.Empty() {
		return fmt.Errorf("paste: empty image")
	}
	if !rect.In(fb.Bounds()) {
		return fmt.Errorf("paste: %v outside canvas %v", rect, fb.Bounds())
	}
	if src.Cols() != rect.Dx() || src.Rows() != rect.Dy() {
		return fmt.Errorf("paste: image %dx%d does not fit %v", src.Cols(), src.Rows(), rect)
	}
	if src.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("paste: unsupported image type %v", src.Type())
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	roi := fb.mat.Region(rect)
	defer roi.Close()
	src.CopyTo(&roi)
	return nil
}

// Region returns a copy of the pixels inside rect, clamped to the canvas.
func (fb *FrameBuffer) Region(rect image.Rectangle) (gocv.Mat, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	r := rect.Intersect(fb.Bounds())
	if r.Empty() {
		return gocv.NewMat(), fmt.Errorf("region %v outside canvas %v", rect, fb.Bounds())
	}
	roi := fb.mat.Region(r)
	defer roi.Close()
	return roi.Clone(), nil
}

// Mat returns a copy of the whole canvas.
func (fb *FrameBuffer) Mat() gocv.Mat {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.mat.Clone()
}

// Image snapshots the canvas for display.
func (fb *FrameBuffer) Image() (image.Image, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.mat.ToImage()
}

// Close releases the canvas memory.
func (fb *FrameBuffer) Close() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.mat.Empty() {
		fb.mat.Close()
	}
	fb.mat = gocv.NewMat()
}

func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), float64(c.A))
}
