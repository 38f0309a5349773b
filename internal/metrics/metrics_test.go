package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 4, 4, gocv.MatTypeCV8UC3)
}

func TestPSNRAndMSE(t *testing.T) {
	a, b := solid(100), solid(110)
	defer a.Close()
	defer b.Close()

	mse, err := MSE{}.Calculate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, mse, 1e-9)

	psnr, err := PSNR{}.Calculate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(25.5), psnr, 1e-9)

	same, err := PSNR{}.Calculate(a, a)
	require.NoError(t, err)
	assert.True(t, math.IsInf(same, 1))

	small := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer small.Close()
	_, err = MSE{}.Calculate(a, small)
	assert.Error(t, err)
}

func TestEvaluator(t *testing.T) {
	e := NewEvaluator()

	a, b := solid(0), solid(255)
	defer a.Close()
	defer b.Close()
	mse, err := e.Calculate("mse", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 255.0*255.0, mse, 1e-9)
	psnr, err := e.Calculate("psnr", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, psnr, 1e-9)

	_, err = e.Calculate("ssim", a, b)
	assert.Error(t, err)
}

func TestRecorder_Summary(t *testing.T) {
	r := NewRecorder()
	r.ObserveInference(20*time.Millisecond, nil)
	r.ObserveInference(30*time.Millisecond, nil)
	r.ObserveInference(0, errors.New("shape"))
	r.ObserveFrame(40 * time.Millisecond)
	r.BudgetOverrun()
	r.ObserveVariation(math.Inf(1))

	s, err := r.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s["sketch_inference_total{outcome=ok}"])
	assert.Equal(t, 1.0, s["sketch_inference_total{outcome=error}"])
	assert.Equal(t, 2.0, s["sketch_inference_duration_seconds_count"])
	assert.InDelta(t, 0.05, s["sketch_inference_duration_seconds_sum"], 1e-9)
	assert.Equal(t, 1.0, s["sketch_frames_total"])
	assert.Equal(t, 1.0, s["sketch_latency_budget_overruns_total"])
	assert.Equal(t, math.MaxFloat64, s["sketch_result_variation_psnr_db"])
}
