package preprocess

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// EdgeOptions tunes the Canny stage. Thresholds are on the 8-bit gradient scale.
type EdgeOptions struct {
	Sigma float64
	Low   float32
	High  float32
}

// DefaultEdgeOptions matches a sigma=1 Canny with 0.1/0.2 hysteresis of full scale.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{Sigma: 1.0, Low: 0.1 * 255, High: 0.2 * 255}
}

// EdgeExtract grayscales src, resizes it to size, smooths it with a Gaussian of
// opts.Sigma and runs Canny. The single-channel map is replicated to three
// channels so it can feed a three-channel model.
//
// A source that is already a boundary map (binary, with at most half of the
// pixels set) is its own edge map and passes through unchanged, so EdgeExtract
// never adds edge pixels to its own output. White strokes on black qualify.
func EdgeExtract(src gocv.Mat, size image.Point, opts EdgeOptions) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("edge extract: empty image")
	}
	gray := gocv.NewMat()
	defer gray.Close()
	if err := toGray(src, &gray); err != nil {
		return gocv.NewMat(), err
	}
	resized := Resize(gray, size)
	defer resized.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	if IsBoundaryMap(resized) {
		resized.CopyTo(&edges)
	} else {
		smoothed := gocv.NewMat()
		defer smoothed.Close()
		if opts.Sigma > 0 {
			gocv.GaussianBlur(resized, &smoothed, image.Pt(0, 0), opts.Sigma, opts.Sigma, gocv.BorderDefault)
		} else {
			resized.CopyTo(&smoothed)
		}
		gocv.Canny(smoothed, &edges, opts.Low, opts.High)
	}

	out := gocv.NewMat()
	gocv.CvtColor(edges, &out, gocv.ColorGrayToBGR)
	return out, nil
}

// IsBoundaryMap reports whether a single-channel 8-bit image holds only 0 and
// 255 with no more than half of its pixels set.
func IsBoundaryMap(gray gocv.Mat) bool {
	if gray.Empty() || gray.Channels() != 1 {
		return false
	}
	pix := gray.ToBytes()
	set := 0
	for _, v := range pix {
		switch v {
		case 0:
		case 255:
			set++
		default:
			return false
		}
	}
	return set*2 <= len(pix)
}

// CountEdges returns the number of set pixels in an edge map.
func CountEdges(edges gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	if err := toGray(edges, &gray); err != nil {
		return 0
	}
	return gocv.CountNonZero(gray)
}
