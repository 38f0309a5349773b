package session

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"interactive-image-translation/internal/config"
	"interactive-image-translation/internal/imageio"
	"interactive-image-translation/internal/preprocess"
	"interactive-image-translation/internal/source"
	"interactive-image-translation/internal/trigger"
)

// OptionsFromConfig maps a validated configuration onto session options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := trigger.ParseMode(cfg.Trigger.Mode)
	if err != nil {
		return Options{}, err
	}
	bg, err := config.ParseColor(cfg.Canvas.Background)
	if err != nil {
		return Options{}, err
	}
	stroke, err := config.ParseColor(cfg.Stroke.Color)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Width:         cfg.Canvas.Width,
		Height:        cfg.Canvas.Height,
		Background:    bg,
		StrokeColor:   stroke,
		StrokeWeight:  cfg.Stroke.Weight,
		Keys:          KeyBindings{Clear: cfg.Keys.Clear, Generate: cfg.Keys.Generate, Reseed: cfg.Keys.Reseed},
		Trigger:       mode,
		LatencyBudget: cfg.Trigger.LatencyBudget,
		OnStrokeEnd:   cfg.Trigger.OnStrokeEnd,

		Seed:              cfg.Model.Seed,
		ReseedEachTrigger: cfg.Model.ReseedEachTrigger,

		Edges: cfg.Edges.Enabled,
		Edge: preprocess.EdgeOptions{
			Sigma: cfg.Edges.Sigma,
			Low:   float32(cfg.Edges.Low),
			High:  float32(cfg.Edges.High),
		},
		Overlay: cfg.Edges.Overlay,
	}, nil
}

// OpenSource opens the input source named by the configuration.
func OpenSource(cfg *config.Config, logger logrus.FieldLogger) (source.Source, error) {
	kind, err := source.ParseKind(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}
	size := image.Pt(cfg.Source.Width, cfg.Source.Height)
	switch kind {
	case source.KindCanvas:
		return source.Canvas{}, nil
	case source.KindVideo:
		return source.OpenVideo(cfg.Source.Device, size, logger)
	case source.KindImage:
		return source.OpenStill(imageio.NewLoader(logger), cfg.Source.Path, size)
	case source.KindAnimation:
		opts := source.DefaultAnimationOptions()
		opts.Shape = source.Shape(cfg.Source.Shape)
		if cfg.Source.Count > 0 {
			opts.Count = cfg.Source.Count
		}
		opts.Seed = cfg.Source.Seed
		if cfg.Source.Speed != 0 {
			opts.Speed = cfg.Source.Speed
		}
		opts.Weight = cfg.Stroke.Weight
		return source.NewAnimation(opts)
	}
	return nil, fmt.Errorf("unsupported source kind %q", kind)
}

// Build opens the configured source and returns a ready session.
func Build(cfg *config.Config, m Model, logger logrus.FieldLogger) (*Session, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	src, err := OpenSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", cfg.Source.Kind, err)
	}
	s, err := New(opts, m, src, logger)
	if err != nil {
		src.Close()
		return nil, err
	}
	return s, nil
}
