// Region extraction and model-ready tensor conversion
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/tensor"
)

// Crop copies the part of src inside rect. The rectangle is clamped to the
// image bounds; an empty intersection is an error.
func Crop(src gocv.Mat, rect image.Rectangle) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("crop: empty source")
	}
	r := rect.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if r.Empty() {
		return gocv.NewMat(), fmt.Errorf("crop: %v outside %dx%d image", rect, src.Cols(), src.Rows())
	}
	roi := src.Region(r)
	defer roi.Close()
	return roi.Clone(), nil
}

// Resize returns src interpolated bilinearly to size. A source already at size is copied.
func Resize(src gocv.Mat, size image.Point) gocv.Mat {
	dst := gocv.NewMat()
	if src.Cols() == size.X && src.Rows() == size.Y {
		src.CopyTo(&dst)
		return dst
	}
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationLinear)
	return dst
}

// Normalize converts an 8-bit BGR image into a channel-last tensor in [-1, 1]
// using (pixel/255)*2 - 1. channels selects RGB (3) or luminance (1) ordering.
func Normalize(src gocv.Mat, channels int) (tensor.Tensor, error) {
	if src.Empty() {
		return tensor.Tensor{}, errors.New("normalize: empty image")
	}
	conv := gocv.NewMat()
	defer conv.Close()

	switch channels {
	case 3:
		switch src.Channels() {
		case 1:
			gocv.CvtColor(src, &conv, gocv.ColorGrayToBGR)
		case 3:
			gocv.CvtColor(src, &conv, gocv.ColorBGRToRGB)
		case 4:
			// drops alpha and swaps the outer channels, i.e. BGRA -> RGB
			gocv.CvtColor(src, &conv, gocv.ColorRGBAToBGR)
		default:
			return tensor.Tensor{}, fmt.Errorf("normalize: unsupported source channels %d", src.Channels())
		}
	case 1:
		if err := toGray(src, &conv); err != nil {
			return tensor.Tensor{}, err
		}
	default:
		return tensor.Tensor{}, fmt.Errorf("normalize: unsupported model channels %d", channels)
	}
	return tensor.FromPixels(conv.ToBytes(), conv.Rows(), conv.Cols(), channels)
}

// Blend overlays an edge map on the raw image: clamp((raw + edges)/255, 0, 1),
// computed as saturating 8-bit addition. edges is resized to raw if needed.
func Blend(raw, edges gocv.Mat) (gocv.Mat, error) {
	if raw.Empty() || edges.Empty() {
		return gocv.NewMat(), errors.New("blend: empty input")
	}
	if raw.Channels() != edges.Channels() {
		return gocv.NewMat(), fmt.Errorf("blend: channel mismatch %d vs %d", raw.Channels(), edges.Channels())
	}
	overlay := Resize(edges, image.Pt(raw.Cols(), raw.Rows()))
	defer overlay.Close()

	out := gocv.NewMat()
	gocv.Add(raw, overlay, &out)
	return out, nil
}

func toGray(src gocv.Mat, dst *gocv.Mat) error {
	switch src.Channels() {
	case 1:
		src.CopyTo(dst)
	case 3:
		gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, dst, gocv.ColorBGRAToGray)
	default:
		return fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	return nil
}
