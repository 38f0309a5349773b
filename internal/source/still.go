package source

import (
	"image"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
	"interactive-image-translation/internal/imageio"
)

// Still serves the same image every frame.
type Still struct {
	img gocv.Mat
}

// OpenStill loads path once and resizes it to size.
func OpenStill(loader *imageio.Loader, path string, size image.Point) (*Still, error) {
	mat, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return &Still{img: resizeTo(mat, size)}, nil
}

// NewStill serves a copy of img.
func NewStill(img gocv.Mat) *Still {
	return &Still{img: img.Clone()}
}

func (s *Still) Acquire(_ *canvas.FrameBuffer, _ int) (gocv.Mat, error) {
	return s.img.Clone(), nil
}

func (s *Still) InPlace() bool { return false }

func (s *Still) Close() error {
	s.img.Close()
	return nil
}
