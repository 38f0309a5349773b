package inference

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interactive-image-translation/internal/model"
	"interactive-image-translation/internal/tensor"
)

// noisyBackend adds uniform noise drawn from the handle's random source.
type noisyBackend struct{}

func (noisyBackend) Forward(in tensor.Tensor, rng *rand.Rand) (tensor.Tensor, error) {
	out := in.Clone()
	if rng != nil {
		for i := range out.Data {
			out.Data[i] = out.Data[i]*0.5 + float32(rng.Float64())*0.5
		}
	}
	return out, nil
}

func (noisyBackend) Close() error { return nil }

// wrongShape drops the last column of every output.
type wrongShape struct{ spec model.InputSpec }

func (w wrongShape) InputSpec() model.InputSpec { return w.spec }
func (w wrongShape) Forward(in tensor.Tensor) (tensor.Tensor, error) {
	return tensor.New(1, w.spec.Channels, w.spec.Height, w.spec.Width-1), nil
}

func gradient(h, w, c int) tensor.Tensor {
	t := tensor.New(h, w, c)
	for i := range t.Data {
		t.Data[i] = float32(i%255)/127.5 - 1
	}
	return t
}

func TestInvoke_PreservesSpatialDims(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inv := NewInvoker(logger)

	for _, spec := range []model.InputSpec{
		{Channels: 3, Height: 256, Width: 256},
		{Channels: 3, Height: 32, Width: 48},
		{Channels: 1, Height: 16, Width: 8},
	} {
		h := model.NewHandle(model.Identity{}, spec)
		res, err := inv.Invoke(h, gradient(spec.Height, spec.Width, spec.Channels))
		require.NoError(t, err)
		assert.Equal(t, spec.Height, res.Height())
		assert.Equal(t, spec.Width, res.Width())
		assert.Equal(t, []int{spec.Height, spec.Width, spec.Channels}, res.Pixels.Shape)
	}
}

func TestInvoke_IdentityRoundTrip(t *testing.T) {
	inv := NewInvoker(nil)
	spec := model.InputSpec{Channels: 3, Height: 4, Width: 5}
	h := model.NewHandle(model.Identity{}, spec)

	pix := make([]uint8, 4*5*3)
	for i := range pix {
		pix[i] = uint8(i * 4)
	}
	in, err := tensor.FromPixels(pix, 4, 5, 3)
	require.NoError(t, err)

	res, err := inv.Invoke(h, in)
	require.NoError(t, err)
	assert.Equal(t, pix, tensor.ToPixels(res.Pixels))

	img, err := res.Image()
	require.NoError(t, err)
	assert.Equal(t, pix[0], img.Pix[0])
	assert.Equal(t, pix[3], img.Pix[4])
	assert.Equal(t, uint8(255), img.Pix[3])

	mat, err := res.Mat()
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, 5, mat.Cols())
	assert.Equal(t, 4, mat.Rows())
	bgr := mat.ToBytes()
	// first pixel comes back with R and B swapped
	assert.Equal(t, pix[2], bgr[0])
	assert.Equal(t, pix[1], bgr[1])
	assert.Equal(t, pix[0], bgr[2])
}

func TestInvoke_RejectsWrongInput(t *testing.T) {
	inv := NewInvoker(nil)
	h := model.NewHandle(model.Identity{}, model.InputSpec{Channels: 3, Height: 8, Width: 8})

	_, err := inv.Invoke(h, tensor.New(8, 8, 1))
	var shapeErr *model.ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, []int{8, 8, 3}, shapeErr.Want)
}

func TestInvoke_RejectsWrongOutput(t *testing.T) {
	spec := model.InputSpec{Channels: 3, Height: 8, Width: 8}
	_, err := NewInvoker(nil).Invoke(wrongShape{spec: spec}, tensor.New(8, 8, 3))
	var shapeErr *model.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))
}

func TestInvoke_SeededPassesMatch(t *testing.T) {
	inv := NewInvoker(nil)
	spec := model.InputSpec{Channels: 3, Height: 16, Width: 16}
	h := model.NewHandle(noisyBackend{}, spec)
	in := gradient(16, 16, 3)

	h.Seed(223)
	a, err := inv.Invoke(h, in)
	require.NoError(t, err)
	h.Seed(223)
	b, err := inv.Invoke(h, in)
	require.NoError(t, err)
	assert.True(t, a.Pixels.Equal(b.Pixels))

	c, err := inv.Invoke(h, in)
	require.NoError(t, err)
	assert.False(t, a.Pixels.Equal(c.Pixels))
}

func TestResult_EmptyHasNoImage(t *testing.T) {
	var r Result
	assert.True(t, r.Empty())
	_, err := r.Image()
	assert.Error(t, err)
	m, err := r.Mat()
	assert.Error(t, err)
	m.Close()
}
