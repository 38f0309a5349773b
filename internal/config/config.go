// Session configuration: presets, file loading and validation
package config

import (
	"fmt"
	"image/color"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"interactive-image-translation/internal/model"
	"interactive-image-translation/internal/source"
	"interactive-image-translation/internal/trigger"
)

// Config holds everything a session needs. Fields may be loaded from a YAML
// file and overridden by command-line flags.
type Config struct {
	Sketch  string        `mapstructure:"sketch" yaml:"sketch"`
	Debug   bool          `mapstructure:"debug" yaml:"debug"`
	Canvas  CanvasConfig  `mapstructure:"canvas" yaml:"canvas"`
	Model   ModelConfig   `mapstructure:"model" yaml:"model"`
	Trigger TriggerConfig `mapstructure:"trigger" yaml:"trigger"`
	Source  SourceConfig  `mapstructure:"source" yaml:"source"`
	Edges   EdgesConfig   `mapstructure:"edges" yaml:"edges"`
	Keys    KeysConfig    `mapstructure:"keys" yaml:"keys"`
	Stroke  StrokeConfig  `mapstructure:"stroke" yaml:"stroke"`
}

type CanvasConfig struct {
	Width      int     `mapstructure:"width" yaml:"width"`
	Height     int     `mapstructure:"height" yaml:"height"`
	FrameRate  float64 `mapstructure:"frame_rate" yaml:"frame_rate"`
	Background string  `mapstructure:"background" yaml:"background"`
}

type ModelConfig struct {
	Path              string  `mapstructure:"path" yaml:"path"`
	Backend           string  `mapstructure:"backend" yaml:"backend"`
	Device            string  `mapstructure:"device" yaml:"device"`
	Mode              string  `mapstructure:"mode" yaml:"mode"`
	Seed              uint64  `mapstructure:"seed" yaml:"seed"`
	ReseedEachTrigger bool    `mapstructure:"reseed_each_trigger" yaml:"reseed_each_trigger"`
	InputSize         int     `mapstructure:"input_size" yaml:"input_size"`
	Channels          int     `mapstructure:"channels" yaml:"channels"`
	NoiseInput        string  `mapstructure:"noise_input" yaml:"noise_input"`
	DropoutRate       float64 `mapstructure:"dropout_rate" yaml:"dropout_rate"`
	Threads           int     `mapstructure:"threads" yaml:"threads"`
	LibraryPath       string  `mapstructure:"library_path" yaml:"library_path"`
}

type TriggerConfig struct {
	Mode          string        `mapstructure:"mode" yaml:"mode"`
	LatencyBudget time.Duration `mapstructure:"latency_budget" yaml:"latency_budget"`
	OnStrokeEnd   bool          `mapstructure:"on_stroke_end" yaml:"on_stroke_end"`
}

type SourceConfig struct {
	Kind   string  `mapstructure:"kind" yaml:"kind"`
	Device string  `mapstructure:"device" yaml:"device"`
	Path   string  `mapstructure:"path" yaml:"path"`
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	Shape  string  `mapstructure:"shape" yaml:"shape"`
	Seed   uint64  `mapstructure:"seed" yaml:"seed"`
	Count  int     `mapstructure:"count" yaml:"count"`
	Speed  float64 `mapstructure:"speed" yaml:"speed"`
}

type EdgesConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Sigma   float64 `mapstructure:"sigma" yaml:"sigma"`
	Low     float64 `mapstructure:"low" yaml:"low"`
	High    float64 `mapstructure:"high" yaml:"high"`
	Overlay bool    `mapstructure:"overlay" yaml:"overlay"`
}

type KeysConfig struct {
	Clear    string `mapstructure:"clear" yaml:"clear"`
	Generate string `mapstructure:"generate" yaml:"generate"`
	Reseed   string `mapstructure:"reseed" yaml:"reseed"`
}

type StrokeConfig struct {
	Color  string `mapstructure:"color" yaml:"color"`
	Weight int    `mapstructure:"weight" yaml:"weight"`
}

const (
	SketchDraw              = "draw"
	SketchEdges             = "edges"
	SketchGraphicsCircles   = "graphics-circles"
	SketchGraphicsPolylines = "graphics-polylines"
)

// DefaultConfig returns the draw sketch.
func DefaultConfig() *Config {
	return &Config{
		Sketch: SketchDraw,
		Canvas: CanvasConfig{Width: 800, Height: 400, FrameRate: 60, Background: "#000000"},
		Model: ModelConfig{
			Path:        "models/edges2rembrandt_generator.onnx",
			Backend:     model.BackendONNX,
			Device:      string(model.DeviceAuto),
			Mode:        model.Stochastic.String(),
			Seed:        223,
			InputSize:   256,
			Channels:    3,
			DropoutRate: 0.5,
		},
		Trigger: TriggerConfig{Mode: trigger.OnDemand.String()},
		Source:  SourceConfig{Kind: string(source.KindCanvas), Device: "0", Width: 256, Height: 256},
		Edges:   EdgesConfig{Sigma: 1.0, Low: 0.1 * 255, High: 0.2 * 255},
		Keys:    KeysConfig{Clear: "c", Generate: " ", Reseed: "r"},
		Stroke:  StrokeConfig{Color: "#ffffff", Weight: 2},
	}
}

// Presets lists the built-in sketch names.
func Presets() []string {
	names := []string{SketchDraw, SketchEdges, SketchGraphicsCircles, SketchGraphicsPolylines}
	sort.Strings(names)
	return names
}

// continuousBudget is the warn threshold for a blocking inference in the
// continuous presets.
const continuousBudget = 200 * time.Millisecond

// Preset returns the configuration of a built-in sketch.
func Preset(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch name {
	case "", SketchDraw:
	case SketchEdges:
		cfg.Sketch = SketchEdges
		cfg.Canvas = CanvasConfig{Width: 1024, Height: 512, FrameRate: 30, Background: "#ffffff"}
		cfg.Trigger.Mode = trigger.Continuous.String()
		cfg.Trigger.LatencyBudget = continuousBudget
		cfg.Source.Kind = string(source.KindVideo)
		cfg.Edges.Enabled = true
		cfg.Edges.Overlay = true
		cfg.Model.ReseedEachTrigger = true
	case SketchGraphicsCircles, SketchGraphicsPolylines:
		cfg.Sketch = name
		cfg.Canvas = CanvasConfig{Width: 512, Height: 256, FrameRate: 20, Background: "#000000"}
		cfg.Trigger.Mode = trigger.Continuous.String()
		cfg.Trigger.LatencyBudget = continuousBudget
		cfg.Source.Kind = string(source.KindAnimation)
		cfg.Source.Shape = strings.TrimPrefix(name, "graphics-")
		cfg.Source.Seed = 10
		cfg.Source.Count = 10
		cfg.Source.Speed = 0.1
	default:
		return nil, fmt.Errorf("unknown sketch %q (known: %s)", name, strings.Join(Presets(), ", "))
	}
	return cfg, nil
}

// Load starts from the named preset and overlays the YAML file at path, if
// any. Durations are written as strings such as "150ms".
func Load(path, preset string) (*Config, error) {
	if path != "" && preset == "" {
		name, err := sketchName(path)
		if err != nil {
			return nil, err
		}
		preset = name
	}
	cfg, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	applied := cfg.Sketch
	if err := Decode(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	// the file's sketch key only selects a preset; a preset passed in wins
	cfg.Sketch = applied
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode applies a generic map onto cfg. Keys missing from raw keep their value.
func Decode(raw map[string]interface{}, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func readYAML(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}

// sketchName peeks at the sketch key so the file can pick its own preset.
func sketchName(path string) (string, error) {
	raw, err := readYAML(path)
	if err != nil {
		return "", err
	}
	if s, ok := raw["sketch"].(string); ok {
		return s, nil
	}
	return "", nil
}

// Validate clamps values to safe ranges and rejects settings a session cannot run with.
func (c *Config) Validate() error {
	if c.Canvas.Width < 2 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.FrameRate <= 0 || c.Canvas.FrameRate > 240 {
		c.Canvas.FrameRate = 60
	}
	if _, err := ParseColor(c.Canvas.Background); err != nil {
		return fmt.Errorf("canvas background: %w", err)
	}
	if _, err := ParseColor(c.Stroke.Color); err != nil {
		return fmt.Errorf("stroke color: %w", err)
	}
	if c.Stroke.Weight <= 0 {
		c.Stroke.Weight = 2
	}

	if c.Model.InputSize <= 0 {
		c.Model.InputSize = 256
	}
	if c.Model.Channels != 1 && c.Model.Channels != 3 {
		return fmt.Errorf("model channels must be 1 or 3, got %d", c.Model.Channels)
	}
	if c.Model.DropoutRate < 0 || c.Model.DropoutRate >= 1 {
		c.Model.DropoutRate = 0.5
	}
	if c.Model.Threads < 0 {
		c.Model.Threads = 0
	}
	if _, err := model.ParseInferenceMode(c.Model.Mode); err != nil {
		return err
	}
	switch model.Device(strings.ToLower(c.Model.Device)) {
	case model.DeviceAuto, model.DeviceCUDA, model.DeviceCPU:
	case "":
		c.Model.Device = string(model.DeviceAuto)
	default:
		return fmt.Errorf("unknown device %q", c.Model.Device)
	}
	if c.Model.Backend == "" {
		c.Model.Backend = model.BackendONNX
	}

	if _, err := trigger.ParseMode(c.Trigger.Mode); err != nil {
		return err
	}
	if c.Trigger.LatencyBudget < 0 {
		c.Trigger.LatencyBudget = 0
	}

	kind, err := source.ParseKind(c.Source.Kind)
	if err != nil {
		return err
	}
	if c.Source.Width <= 0 || c.Source.Height <= 0 {
		c.Source.Width, c.Source.Height = 256, 256
	}
	switch kind {
	case source.KindImage:
		if c.Source.Path == "" {
			return fmt.Errorf("image source needs source.path")
		}
	case source.KindAnimation:
		switch source.Shape(c.Source.Shape) {
		case source.ShapeCircles, source.ShapePolylines:
		case "":
			c.Source.Shape = string(source.ShapeCircles)
		default:
			return fmt.Errorf("unknown animation shape %q", c.Source.Shape)
		}
		if c.Source.Count <= 0 {
			c.Source.Count = 10
		}
	}

	if c.Edges.Sigma < 0 {
		c.Edges.Sigma = 1.0
	}
	if c.Edges.Low <= 0 || c.Edges.High <= 0 || c.Edges.Low > c.Edges.High {
		c.Edges.Low, c.Edges.High = 0.1*255, 0.2*255
	}

	if c.Keys.Clear == "" {
		c.Keys.Clear = "c"
	}
	if c.Keys.Generate == "" {
		c.Keys.Generate = " "
	}
	if c.Keys.Reseed == "" {
		c.Keys.Reseed = "r"
	}
	return nil
}

// FrameInterval is the delay between frames at the configured rate.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Canvas.FrameRate)
}

// ModelLoad maps the model section onto the loader configuration.
func (c *Config) ModelLoad() (model.Config, error) {
	mode, err := model.ParseInferenceMode(c.Model.Mode)
	if err != nil {
		return model.Config{}, err
	}
	return model.Config{
		Path:        c.Model.Path,
		Backend:     c.Model.Backend,
		Device:      model.Device(strings.ToLower(c.Model.Device)),
		Mode:        mode,
		Seed:        c.Model.Seed,
		InputSize:   c.Model.InputSize,
		Channels:    c.Model.Channels,
		NoiseInput:  c.Model.NoiseInput,
		DropoutRate: c.Model.DropoutRate,
		Threads:     c.Model.Threads,
		LibraryPath: c.Model.LibraryPath,
	}, nil
}

// ParseColor reads "#rrggbb" or "#rgb".
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
