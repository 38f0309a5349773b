// Image quality metrics between consecutive results
package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// Metric compares two images of the same size.
type Metric interface {
	Calculate(a, b gocv.Mat) (float64, error)
	Name() string
}

// MSE is the mean squared difference over every channel.
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Calculate(a, b gocv.Mat) (float64, error) {
	return meanSquaredError(a, b)
}

// PSNR is the peak signal-to-noise ratio in dB for 8-bit images. Identical
// images give +Inf.
type PSNR struct{}

func (PSNR) Name() string { return "psnr" }

func (PSNR) Calculate(a, b gocv.Mat) (float64, error) {
	mse, err := meanSquaredError(a, b)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20 * math.Log10(255/math.Sqrt(mse)), nil
}

func meanSquaredError(a, b gocv.Mat) (float64, error) {
	if a.Empty() || b.Empty() {
		return 0, fmt.Errorf("empty images")
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Channels() != b.Channels() {
		return 0, fmt.Errorf("image dimensions mismatch: %dx%dx%d vs %dx%dx%d",
			a.Cols(), a.Rows(), a.Channels(), b.Cols(), b.Rows(), b.Channels())
	}
	pa, pb := a.ToBytes(), b.ToBytes()
	var sum float64
	for i := range pa {
		d := float64(pa[i]) - float64(pb[i])
		sum += d * d
	}
	return sum / float64(len(pa)), nil
}

// Evaluator runs a set of named metrics.
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator returns an evaluator with MSE and PSNR registered.
func NewEvaluator() *Evaluator {
	e := &Evaluator{metrics: make(map[string]Metric)}
	e.Register(MSE{})
	e.Register(PSNR{})
	return e
}

func (e *Evaluator) Register(m Metric) {
	e.metrics[m.Name()] = m
}

func (e *Evaluator) Calculate(name string, a, b gocv.Mat) (float64, error) {
	m, ok := e.metrics[name]
	if !ok {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return m.Calculate(a, b)
}
