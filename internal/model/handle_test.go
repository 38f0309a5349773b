package model

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interactive-image-translation/internal/tensor"
)

// dropoutBackend zeroes half of its input at random, like an active dropout layer.
type dropoutBackend struct {
	sawRNG []bool
}

func (d *dropoutBackend) Forward(in tensor.Tensor, rng *rand.Rand) (tensor.Tensor, error) {
	d.sawRNG = append(d.sawRNG, rng != nil)
	out := in.Clone()
	if rng == nil {
		return out, nil
	}
	for i := range out.Data {
		if rng.IntN(2) == 0 {
			out.Data[i] = 0
		}
	}
	return out, nil
}

func (d *dropoutBackend) Close() error { return nil }

func onesBatch(spec InputSpec) tensor.Tensor {
	t := tensor.New(spec.BatchShape()...)
	for i := range t.Data {
		t.Data[i] = 1
	}
	return t
}

var smallSpec = InputSpec{Channels: 3, Height: 8, Width: 8}

func TestHandle_DefaultsToStochastic(t *testing.T) {
	h := NewHandle(&dropoutBackend{}, smallSpec)
	assert.Equal(t, Stochastic, h.Mode())
	assert.Equal(t, DeviceCPU, h.Device())
}

func TestHandle_ReseedReplaysIdentically(t *testing.T) {
	h := NewHandle(&dropoutBackend{}, smallSpec, WithSeed(223))
	in := onesBatch(smallSpec)

	h.Seed(223)
	a, err := h.Forward(in)
	require.NoError(t, err)
	h.Seed(223)
	b, err := h.Forward(in)
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "reseeded passes must be bit-identical")
}

func TestHandle_WithoutReseedMayDiffer(t *testing.T) {
	h := NewHandle(&dropoutBackend{}, smallSpec, WithSeed(7))
	in := onesBatch(smallSpec)

	a, err := h.Forward(in)
	require.NoError(t, err)
	b, err := h.Forward(in)
	require.NoError(t, err)
	// 192 independent coin flips; identical masks are practically impossible
	assert.False(t, a.Equal(b))
}

func TestHandle_DeterministicWithholdsRNG(t *testing.T) {
	be := &dropoutBackend{}
	h := NewHandle(be, smallSpec, WithMode(Deterministic))
	in := onesBatch(smallSpec)

	a, err := h.Forward(in)
	require.NoError(t, err)
	b, err := h.Forward(in)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, []bool{false, false}, be.sawRNG)
}

func TestHandle_ShapeMismatch(t *testing.T) {
	h := NewHandle(&dropoutBackend{}, smallSpec)

	_, err := h.Forward(tensor.New(1, 1, 8, 8))
	var shapeErr *ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, []int{1, 3, 8, 8}, shapeErr.Want)
	assert.Equal(t, []int{1, 1, 8, 8}, shapeErr.Got)

	_, err = h.Forward(tensor.New(3, 8, 8))
	assert.True(t, errors.As(err, &shapeErr))
}

func TestHandle_ForwardAfterClose(t *testing.T) {
	h := NewHandle(Identity{}, smallSpec)
	require.NoError(t, h.Close())
	_, err := h.Forward(onesBatch(smallSpec))
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, h.Close())
}

func TestParseInferenceMode(t *testing.T) {
	m, err := ParseInferenceMode("")
	require.NoError(t, err)
	assert.Equal(t, Stochastic, m)

	m, err = ParseInferenceMode("Deterministic")
	require.NoError(t, err)
	assert.Equal(t, Deterministic, m)

	_, err = ParseInferenceMode("frozen")
	assert.Error(t, err)
}

func TestLoad_Identity(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h, err := Load(Config{Backend: BackendIdentity, InputSize: 16}, logger)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, InputSpec{Channels: 3, Height: 16, Width: 16}, h.InputSpec())
	assert.Equal(t, Stochastic, h.Mode())

	in := onesBatch(h.InputSpec())
	out, err := h.Forward(in)
	require.NoError(t, err)
	assert.True(t, out.Equal(in))
}

func TestLoad_MissingArtifact(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Load(Config{Backend: BackendONNX, Path: filepath.Join(t.TempDir(), "missing.onnx")}, logger)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_UnknownBackend(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Load(Config{Backend: "torchscript", Path: "x"}, logger)
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestResolvePath(t *testing.T) {
	_, err := ResolvePath("")
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = ResolvePath(dir)
	assert.Error(t, err)

	f := filepath.Join(dir, "gen.onnx")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	p, err := ResolvePath(f)
	require.NoError(t, err)
	assert.Equal(t, f, p)
}

func TestSelectDevice_FallsBackSilently(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	d := selectDevice(DeviceAuto, func() error { return errors.New("no cuda provider") }, logger)
	assert.Equal(t, DeviceCPU, d)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level)
		assert.NotEqual(t, logrus.WarnLevel, e.Level)
	}

	d = selectDevice(DeviceCUDA, func() error { return nil }, logger)
	assert.Equal(t, DeviceCUDA, d)

	called := false
	d = selectDevice(DeviceCPU, func() error { called = true; return nil }, logger)
	assert.Equal(t, DeviceCPU, d)
	assert.False(t, called)
}
