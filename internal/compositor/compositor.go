// Draws the input and output panels onto the frame buffer
package compositor

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
	"interactive-image-translation/internal/preprocess"
)

// Placeholder is shown in the output panel before the first result.
var Placeholder = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Compositor places images into the two panels of a FrameBuffer.
type Compositor struct {
	placeholder color.RGBA
}

func New() *Compositor {
	return &Compositor{placeholder: Placeholder}
}

// Compose draws input into the left panel unless it is empty, and result into
// the right panel. An empty result paints the placeholder instead.
func (c *Compositor) Compose(fb *canvas.FrameBuffer, input, result gocv.Mat) error {
	if !input.Empty() {
		if err := c.DrawPanel(fb, fb.LeftPanel(), input); err != nil {
			return fmt.Errorf("input panel: %w", err)
		}
	}
	if result.Empty() {
		fb.Fill(fb.RightPanel(), c.placeholder)
		return nil
	}
	if err := c.DrawPanel(fb, fb.RightPanel(), result); err != nil {
		return fmt.Errorf("output panel: %w", err)
	}
	return nil
}

// DrawPanel scales img to panel and copies it in.
func (c *Compositor) DrawPanel(fb *canvas.FrameBuffer, panel image.Rectangle, img gocv.Mat) error {
	bgr, err := toBGR(img)
	if err != nil {
		return err
	}
	defer bgr.Close()
	fitted := preprocess.Resize(bgr, panel.Size())
	defer fitted.Close()
	return fb.Paste(panel, fitted)
}

func toBGR(img gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	switch img.Channels() {
	case 3:
		img.CopyTo(&out)
	case 1:
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(img, &out, gocv.ColorBGRAToBGR)
	default:
		out.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", img.Channels())
	}
	return out, nil
}
