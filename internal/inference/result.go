package inference

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/tensor"
)

// Result is a denormalized HxWxC image in [0, 1].
type Result struct {
	Pixels   tensor.Tensor
	Duration time.Duration
}

// Empty reports whether the result holds no image.
func (r Result) Empty() bool { return r.Pixels.Len() == 0 }

func (r Result) Width() int {
	if r.Pixels.Rank() != 3 {
		return 0
	}
	return r.Pixels.Shape[1]
}

func (r Result) Height() int {
	if r.Pixels.Rank() != 3 {
		return 0
	}
	return r.Pixels.Shape[0]
}

// Mat quantizes the result to an 8-bit BGR image. The caller closes it.
func (r Result) Mat() (gocv.Mat, error) {
	if r.Empty() || r.Pixels.Rank() != 3 {
		return gocv.NewMat(), errors.New("result: no image")
	}
	h, w, c := r.Pixels.Shape[0], r.Pixels.Shape[1], r.Pixels.Shape[2]
	pix := tensor.ToPixels(r.Pixels)

	var (
		mt   gocv.MatType
		code gocv.ColorConversionCode
	)
	switch c {
	case 1:
		mt, code = gocv.MatTypeCV8UC1, gocv.ColorGrayToBGR
	case 3:
		mt, code = gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR
	default:
		return gocv.NewMat(), fmt.Errorf("result: unsupported channel count %d", c)
	}
	raw, err := gocv.NewMatFromBytes(h, w, mt, pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("result: %w", err)
	}
	defer raw.Close()

	out := gocv.NewMat()
	gocv.CvtColor(raw, &out, code)
	return out, nil
}

// Image quantizes the result to an RGBA image.
func (r Result) Image() (*image.RGBA, error) {
	if r.Empty() || r.Pixels.Rank() != 3 {
		return nil, errors.New("result: no image")
	}
	h, w, c := r.Pixels.Shape[0], r.Pixels.Shape[1], r.Pixels.Shape[2]
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("result: unsupported channel count %d", c)
	}
	pix := tensor.ToPixels(r.Pixels)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < h*w; i++ {
		o := i * 4
		if c == 1 {
			v := pix[i]
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
		} else {
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = pix[i*3], pix[i*3+1], pix[i*3+2]
		}
		img.Pix[o+3] = 255
	}
	return img, nil
}
