package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"interactive-image-translation/internal/config"
	"interactive-image-translation/internal/model"
)

type rootFlags struct {
	configPath string
	sketch     string
	debug      bool

	modelPath string
	backend   string
	device    string
	mode      string
	seed      uint64
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "app",
		Short:         "Sketch with a pix2pix-style image translation model",
		Long:          `Runs interactive sketches that feed a drawing, a camera or an animation through an image-to-image generator and show the result next to the input.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&flags.sketch, "sketch", "s", "", fmt.Sprintf("built-in sketch (%s)", strings.Join(config.Presets(), ", ")))
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug mode with verbose logging")
	pf.StringVar(&flags.modelPath, "model", "", "model artifact path")
	pf.StringVar(&flags.backend, "backend", "", "model backend (onnx, identity)")
	pf.StringVar(&flags.device, "device", "", "compute device (auto, cuda, cpu)")
	pf.StringVar(&flags.mode, "mode", "", "inference mode (stochastic, deterministic)")
	pf.Uint64Var(&flags.seed, "seed", 0, "seed for the model's stochastic layers")

	root.AddCommand(newRunCmd(flags), newGenerateCmd(flags), newVersionCmd())
	return root
}

// load reads the configuration and applies the flags given on the command line.
func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, f.sketch)
	if err != nil {
		return nil, err
	}
	fl := cmd.Flags()
	if fl.Changed("debug") {
		cfg.Debug = f.debug
	}
	if fl.Changed("model") {
		cfg.Model.Path = f.modelPath
	}
	if fl.Changed("backend") {
		cfg.Model.Backend = f.backend
	}
	if fl.Changed("device") {
		cfg.Model.Device = f.device
	}
	if fl.Changed("mode") {
		cfg.Model.Mode = f.mode
	}
	if fl.Changed("seed") {
		cfg.Model.Seed = f.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openModel loads the model described by cfg.
func openModel(cfg *config.Config, logger logrus.FieldLogger) (*model.Handle, error) {
	mc, err := cfg.ModelLoad()
	if err != nil {
		return nil, err
	}
	return model.Load(mc, logger)
}

func shutdown(h *model.Handle, logger logrus.FieldLogger) {
	if err := h.Close(); err != nil {
		logger.WithError(err).Warn("Closing model failed")
	}
	if err := model.Shutdown(); err != nil {
		logger.WithError(err).Warn("Shutting down model runtime failed")
	}
}
