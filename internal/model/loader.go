package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Device names a compute device.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// Backend kinds accepted by Load.
const (
	BackendONNX     = "onnx"
	BackendIdentity = "identity"
)

// Config describes how to load a translation model.
type Config struct {
	Path        string
	Backend     string
	Device      Device
	Mode        InferenceMode
	Seed        uint64
	InputSize   int // used when the artifact declares dynamic spatial dims
	Channels    int
	NoiseInput  string
	DropoutRate float64
	Threads     int
	LibraryPath string // onnxruntime shared library
}

// Load resolves the artifact and opens it with the configured backend. The
// returned handle is left in cfg.Mode, which defaults to Stochastic: the loader
// never freezes the model on its own.
func Load(cfg Config, logger logrus.FieldLogger) (*Handle, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 3
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 256
	}

	var (
		backend Backend
		spec    InputSpec
		device  = DeviceCPU
		path    = cfg.Path
	)

	switch strings.ToLower(cfg.Backend) {
	case BackendIdentity:
		spec = InputSpec{Channels: cfg.Channels, Height: cfg.InputSize, Width: cfg.InputSize}
		backend = Identity{}
		path = BackendIdentity
	case "", BackendONNX:
		resolved, err := ResolvePath(cfg.Path)
		if err != nil {
			return nil, &LoadError{Path: cfg.Path, Err: err}
		}
		path = resolved
		cfg.Path = resolved
		ob, err := openONNX(cfg, logger)
		if err != nil {
			return nil, &LoadError{Path: resolved, Err: err}
		}
		backend, spec, device = ob, ob.spec, ob.device
	default:
		return nil, &LoadError{Path: cfg.Path, Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
	}

	h := NewHandle(backend, spec,
		WithMode(cfg.Mode),
		WithSeed(cfg.Seed),
		WithDevice(device),
		WithPath(path),
	)

	logger.WithFields(logrus.Fields{
		"path":     path,
		"device":   device,
		"mode":     h.Mode().String(),
		"channels": spec.Channels,
		"height":   spec.Height,
		"width":    spec.Width,
	}).Info("Model loaded")
	return h, nil
}

// ResolvePath expands a leading ~ and checks the artifact is a readable file.
func ResolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty model path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand home: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}

// selectDevice resolves the requested device against what the runtime offers.
// enable attempts to activate the accelerator; any failure is reported as a
// DeviceUnavailableError and recovered by running on the CPU.
func selectDevice(requested Device, enable func() error, logger logrus.FieldLogger) Device {
	switch requested {
	case DeviceCPU:
		return DeviceCPU
	case DeviceAuto, DeviceCUDA, "":
	default:
		logger.WithField("device", requested).Warn("Unknown device, using cpu")
		return DeviceCPU
	}
	if err := enable(); err != nil {
		derr := &DeviceUnavailableError{Device: DeviceCUDA, Err: err}
		logger.WithError(derr).Debug("Falling back to cpu")
		return DeviceCPU
	}
	return DeviceCUDA
}
