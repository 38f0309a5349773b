package session

import (
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"interactive-image-translation/internal/inference"
	"interactive-image-translation/internal/preprocess"
)

// Generate runs the pipeline once on a still image without a canvas. It
// returns the result and the input panel image the session would show.
func Generate(opts Options, m Model, img gocv.Mat, logger logrus.FieldLogger) (inference.Result, gocv.Mat, error) {
	spec := m.InputSpec()
	edge := opts.Edge
	if edge == (preprocess.EdgeOptions{}) {
		edge = preprocess.DefaultEdgeOptions()
	}
	pre, err := preprocess.NewPreprocessor(preprocess.Options{
		Size:     image.Pt(spec.Width, spec.Height),
		Channels: spec.Channels,
		Edges:    opts.Edges,
		Edge:     edge,
		Overlay:  opts.Overlay,
	})
	if err != nil {
		return inference.Result{}, gocv.NewMat(), err
	}

	if opts.ReseedEachTrigger {
		m.Seed(opts.Seed)
	}
	in, display, err := pre.Prepare(img)
	if err != nil {
		return inference.Result{}, gocv.NewMat(), err
	}
	res, err := inference.NewInvoker(logger).Invoke(m, in)
	if err != nil {
		display.Close()
		return inference.Result{}, gocv.NewMat(), err
	}
	return res, display, nil
}
