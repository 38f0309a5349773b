// Input acquirers feeding the per-frame pipeline
package source

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
)

// Kind names an input source.
type Kind string

const (
	KindCanvas    Kind = "canvas"
	KindVideo     Kind = "video"
	KindImage     Kind = "image"
	KindAnimation Kind = "animation"
)

// ParseKind validates a source name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindCanvas, KindVideo, KindImage, KindAnimation:
		return k, nil
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// Source produces the input region for one frame. The caller closes the
// returned Mat.
type Source interface {
	Acquire(fb *canvas.FrameBuffer, frame int) (gocv.Mat, error)
	// InPlace reports whether the region already lives in the input panel,
	// so the compositor does not need to draw it there.
	InPlace() bool
	Close() error
}

// Canvas reads the input panel the user draws on.
type Canvas struct{}

func (Canvas) Acquire(fb *canvas.FrameBuffer, _ int) (gocv.Mat, error) {
	return fb.Region(fb.LeftPanel())
}

func (Canvas) InPlace() bool { return true }
func (Canvas) Close() error  { return nil }

func resizeTo(src gocv.Mat, size image.Point) gocv.Mat {
	dst := gocv.NewMat()
	if size.X <= 0 || size.Y <= 0 || (src.Cols() == size.X && src.Rows() == size.Y) {
		src.CopyTo(&dst)
		return dst
	}
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationLinear)
	return dst
}
