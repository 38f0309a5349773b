package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"interactive-image-translation/internal/imageio"
	"interactive-image-translation/internal/session"
)

func newGenerateCmd(flags *rootFlags) *cobra.Command {
	var (
		input, output, inputPanel string
		edges, overlay            bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Translate one image file without opening a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" {
				return fmt.Errorf("--input and --output are required")
			}
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("edges") {
				cfg.Edges.Enabled = edges
			}
			if cmd.Flags().Changed("overlay") {
				cfg.Edges.Overlay = overlay
			}
			logger := initLogger(cfg.Debug)

			handle, err := openModel(cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown(handle, logger)

			opts, err := session.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			loader := imageio.NewLoader(logger)
			img, err := loader.Load(input)
			if err != nil {
				return err
			}
			defer img.Close()

			res, display, err := session.Generate(opts, handle, img, logger)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			defer display.Close()

			out, err := res.Image()
			if err != nil {
				return err
			}
			if err := loader.Save(out, output); err != nil {
				return err
			}
			if inputPanel != "" && !display.Empty() {
				panel, err := display.ToImage()
				if err != nil {
					return err
				}
				if err := loader.Save(panel, inputPanel); err != nil {
					return err
				}
			}
			logger.WithFields(logrus.Fields{
				"input":    input,
				"output":   output,
				"duration": res.Duration,
			}).Info("Image generated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input image")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image (format from extension)")
	cmd.Flags().StringVar(&inputPanel, "input-panel", "", "also save the preprocessed input panel")
	cmd.Flags().BoolVar(&edges, "edges", false, "run edge extraction before the model")
	cmd.Flags().BoolVar(&overlay, "overlay", false, "blend edges over the input in the input panel")
	return cmd
}
