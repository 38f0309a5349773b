// ONNX Runtime backend for exported generator networks
package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"interactive-image-translation/internal/tensor"
)

var ortInit sync.Mutex

type onnxBackend struct {
	session     *ort.DynamicAdvancedSession
	input       ort.InputOutputInfo
	noise       *ort.InputOutputInfo
	output      ort.InputOutputInfo
	dropoutRate float32
	spec        InputSpec
	device      Device
}

func initRuntime(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// Shutdown tears down the process-wide runtime environment once every handle is closed.
func Shutdown() error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func openONNX(cfg Config, logger logrus.FieldLogger) (*onnxBackend, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read model io: %w", err)
	}
	if len(outputs) == 0 {
		return nil, errors.New("model declares no outputs")
	}

	if cfg.DropoutRate < 0 || cfg.DropoutRate >= 1 {
		return nil, fmt.Errorf("dropout rate %v outside [0, 1)", cfg.DropoutRate)
	}
	b := &onnxBackend{output: outputs[0], dropoutRate: float32(cfg.DropoutRate)}

	imageIdx := -1
	for i, in := range inputs {
		if cfg.NoiseInput != "" && in.Name == cfg.NoiseInput {
			continue
		}
		if len(in.Dimensions) == 4 {
			imageIdx = i
			break
		}
	}
	if imageIdx < 0 {
		return nil, errors.New("model has no rank-4 image input")
	}
	b.input = inputs[imageIdx]
	for i := range inputs {
		if i == imageIdx {
			continue
		}
		if cfg.NoiseInput == "" || inputs[i].Name == cfg.NoiseInput {
			in := inputs[i]
			b.noise = &in
			break
		}
	}
	if cfg.NoiseInput != "" && b.noise == nil {
		return nil, fmt.Errorf("noise input %q not found", cfg.NoiseInput)
	}

	b.spec = specFromDims(b.input.Dimensions, cfg)
	if b.spec.Channels != cfg.Channels {
		return nil, fmt.Errorf("model expects %d channels, configured %d", b.spec.Channels, cfg.Channels)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}
	b.device = selectDevice(cfg.Device, func() error { return appendCUDA(opts) }, logger)

	names := []string{b.input.Name}
	if b.noise != nil {
		names = append(names, b.noise.Name)
	} else if cfg.Mode == Stochastic {
		logger.WithField("path", cfg.Path).Warn("Model has no noise input; stochastic layers inside the graph are not seedable")
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.Path, names, []string{b.output.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	b.session = session
	return b, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()
	return opts.AppendExecutionProviderCUDA(cuda)
}

// specFromDims reads NCHW dims; dynamic spatial dims (<= 0) use the configured size.
func specFromDims(dims ort.Shape, cfg Config) InputSpec {
	spec := InputSpec{Channels: cfg.Channels, Height: cfg.InputSize, Width: cfg.InputSize}
	if dims[1] > 0 {
		spec.Channels = int(dims[1])
	}
	if dims[2] > 0 {
		spec.Height = int(dims[2])
	}
	if dims[3] > 0 {
		spec.Width = int(dims[3])
	}
	return spec
}

func (b *onnxBackend) Forward(input tensor.Tensor, rng *rand.Rand) (tensor.Tensor, error) {
	in, err := ort.NewTensor(toShape(input.Shape), input.Data)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()
	values := []ort.Value{in}

	if b.noise != nil {
		noise, err := b.noiseTensor(input.Shape, rng)
		if err != nil {
			return tensor.Tensor{}, err
		}
		defer noise.Destroy()
		values = append(values, noise)
	}

	outs := []ort.Value{nil}
	if err := b.session.Run(values, outs); err != nil {
		if isShapeError(err) {
			return tensor.Tensor{}, &ShapeMismatchError{Want: fromShape(b.input.Dimensions), Got: input.Shape, Err: err}
		}
		return tensor.Tensor{}, fmt.Errorf("run: %w", err)
	}
	if outs[0] == nil {
		return tensor.Tensor{}, errors.New("no output from model")
	}
	defer outs[0].Destroy()

	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return tensor.Tensor{}, errors.New("output is not a float32 tensor")
	}
	data := make([]float32, len(t.GetData()))
	copy(data, t.GetData())
	return tensor.FromData(data, fromShape(t.GetShape())...)
}

// noiseTensor builds the mask fed to the model's noise input.
func (b *onnxBackend) noiseTensor(imageShape []int, rng *rand.Rand) (*ort.Tensor[float32], error) {
	dims := make([]int64, len(b.noise.Dimensions))
	n := int64(1)
	for i, d := range b.noise.Dimensions {
		switch {
		case d > 0:
			dims[i] = d
		case i < len(imageShape) && i > 0:
			dims[i] = int64(imageShape[i])
		default:
			dims[i] = 1
		}
		n *= dims[i]
	}
	t, err := ort.NewTensor(ort.NewShape(dims...), keepMask(int(n), b.dropoutRate, rng))
	if err != nil {
		return nil, fmt.Errorf("noise tensor: %w", err)
	}
	return t, nil
}

// keepMask draws n Bernoulli keep values (1 with probability 1-rate, else 0).
// Without rng every value is the expectation 1-rate. A zero rate keeps all.
func keepMask(n int, rate float32, rng *rand.Rand) []float32 {
	keep := 1 - rate
	mask := make([]float32, n)
	for i := range mask {
		switch {
		case rng == nil:
			mask[i] = keep
		case rate == 0 || rng.Float32() < keep:
			mask[i] = 1
		}
	}
	return mask
}

func (b *onnxBackend) Close() error {
	if b.session == nil {
		return nil
	}
	err := b.session.Destroy()
	b.session = nil
	return err
}

func isShapeError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "dimension") || strings.Contains(msg, "shape") || strings.Contains(msg, "rank")
}

func toShape(s []int) ort.Shape {
	dims := make([]int64, len(s))
	for i, d := range s {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}

func fromShape(s ort.Shape) []int {
	out := make([]int, len(s))
	for i, d := range s {
		out[i] = int(d)
	}
	return out
}
