// Single forward pass from a canvas-layout tensor to a displayable result
package inference

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"interactive-image-translation/internal/model"
	"interactive-image-translation/internal/tensor"
)

// Model is the part of a model handle the invoker needs.
type Model interface {
	InputSpec() model.InputSpec
	Forward(input tensor.Tensor) (tensor.Tensor, error)
}

// Invoker converts between the channel-last layout used on the canvas and the
// batched channel-first layout the model consumes.
type Invoker struct {
	logger logrus.FieldLogger
}

func NewInvoker(logger logrus.FieldLogger) *Invoker {
	return &Invoker{logger: logger}
}

// Invoke runs one synchronous forward pass on an HxWxC tensor in [-1, 1] and
// returns the denormalized result. There are no retries.
func (inv *Invoker) Invoke(m Model, in tensor.Tensor) (Result, error) {
	spec := m.InputSpec()
	want := []int{spec.Height, spec.Width, spec.Channels}
	if !tensor.SameShape(in.Shape, want) {
		return Result{}, &model.ShapeMismatchError{Want: want, Got: append([]int(nil), in.Shape...)}
	}

	batch, err := in.Unsqueeze(0)
	if err != nil {
		return Result{}, err
	}
	nchw, err := batch.Permute(tensor.NHWCToNCHW...)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	out, err := m.Forward(nchw)
	if err != nil {
		return Result{}, fmt.Errorf("forward pass: %w", err)
	}
	elapsed := time.Since(start)

	if out.Rank() != 4 || out.Shape[0] != 1 || out.Shape[2] != spec.Height || out.Shape[3] != spec.Width {
		return Result{}, &model.ShapeMismatchError{
			Want: []int{1, -1, spec.Height, spec.Width},
			Got:  append([]int(nil), out.Shape...),
		}
	}
	chw, err := out.Squeeze(0)
	if err != nil {
		return Result{}, err
	}
	hwc, err := chw.Permute(tensor.CHWToHWC...)
	if err != nil {
		return Result{}, err
	}

	if inv.logger != nil {
		inv.logger.WithFields(logrus.Fields{
			"shape":    hwc.Shape,
			"duration": elapsed,
		}).Debug("Inference complete")
	}
	return Result{Pixels: tensor.Denormalize(hwc), Duration: elapsed}, nil
}
