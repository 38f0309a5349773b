// Model handle shared by every invocation of a session
package model

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"interactive-image-translation/internal/tensor"
)

// InferenceMode declares whether the model's stochastic layers are active.
type InferenceMode int

const (
	// Stochastic keeps dropout-like layers active. Repeated calls on identical
	// input may differ unless the handle is reseeded in between.
	Stochastic InferenceMode = iota
	// Deterministic evaluates stochastic layers at their expectation.
	Deterministic
)

func (m InferenceMode) String() string {
	switch m {
	case Stochastic:
		return "stochastic"
	case Deterministic:
		return "deterministic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseInferenceMode accepts "stochastic" or "deterministic". Empty means Stochastic.
func ParseInferenceMode(s string) (InferenceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stochastic":
		return Stochastic, nil
	case "deterministic":
		return Deterministic, nil
	default:
		return Stochastic, fmt.Errorf("unknown inference mode %q", s)
	}
}

// InputSpec is the input the model declares: channel-first, without the batch axis.
type InputSpec struct {
	Channels int
	Height   int
	Width    int
}

// BatchShape returns the NCHW shape of a single-image batch.
func (s InputSpec) BatchShape() []int {
	return []int{1, s.Channels, s.Height, s.Width}
}

// Backend runs one forward pass on an NCHW tensor. rng is nil in Deterministic
// mode; stochastic backends draw every random decision from it.
type Backend interface {
	Forward(input tensor.Tensor, rng *rand.Rand) (tensor.Tensor, error)
	Close() error
}

// Handle wraps a loaded backend. It is structurally read-only after load; the
// only mutable state is the random source, and Forward is serialized so at most
// one inference is in flight.
type Handle struct {
	mu      sync.Mutex
	backend Backend
	spec    InputSpec
	mode    InferenceMode
	device  Device
	path    string

	src *rand.PCG
	rng *rand.Rand
}

// Option customizes a Handle.
type Option func(*Handle)

// WithMode sets the inference mode. The default is Stochastic.
func WithMode(m InferenceMode) Option { return func(h *Handle) { h.mode = m } }

// WithSeed sets the initial seed of the stochastic state.
func WithSeed(seed uint64) Option { return func(h *Handle) { h.src.Seed(seed, seedStream) } }

// WithDevice records the device the backend runs on.
func WithDevice(d Device) Option { return func(h *Handle) { h.device = d } }

// WithPath records the artifact path for logging.
func WithPath(p string) Option { return func(h *Handle) { h.path = p } }

const seedStream = 0x9e3779b97f4a7c15

// NewHandle wraps backend with the declared input spec.
func NewHandle(backend Backend, spec InputSpec, opts ...Option) *Handle {
	src := rand.NewPCG(0, seedStream)
	h := &Handle{
		backend: backend,
		spec:    spec,
		mode:    Stochastic,
		device:  DeviceCPU,
		src:     src,
		rng:     rand.New(src),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Forward validates an NCHW batch against the declared input and runs the backend.
func (h *Handle) Forward(input tensor.Tensor) (tensor.Tensor, error) {
	want := h.spec.BatchShape()
	if !tensor.SameShape(input.Shape, want) {
		return tensor.Tensor{}, &ShapeMismatchError{Want: want, Got: append([]int(nil), input.Shape...)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.backend == nil {
		return tensor.Tensor{}, ErrClosed
	}

	var rng *rand.Rand
	if h.mode == Stochastic {
		rng = h.rng
	}
	return h.backend.Forward(input, rng)
}

// Seed resets the stochastic state so the next forward passes replay.
func (h *Handle) Seed(seed uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src.Seed(seed, seedStream)
}

func (h *Handle) Mode() InferenceMode  { return h.mode }
func (h *Handle) InputSpec() InputSpec { return h.spec }
func (h *Handle) Device() Device       { return h.device }
func (h *Handle) Path() string         { return h.path }

// Close releases the backend.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.backend == nil {
		return nil
	}
	err := h.backend.Close()
	h.backend = nil
	return err
}
