package main

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"interactive-image-translation/internal/gui"
	"interactive-image-translation/internal/session"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the interactive sketch window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Debug)
			logger.WithFields(logrus.Fields{
				"version":    AppVersion,
				"sketch":     cfg.Sketch,
				"debug_mode": cfg.Debug,
			}).Info("Starting " + AppName)

			handle, err := openModel(cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown(handle, logger)

			s, err := session.Build(cfg, handle, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			fyneApp := app.NewWithID(AppID)
			fyneApp.SetIcon(theme.DocumentIcon())
			fyneApp.Settings().SetTheme(theme.DefaultTheme())

			title := fmt.Sprintf("%s - %s", AppName, cfg.Sketch)
			host := gui.NewHost(fyneApp, title, s, image.Pt(cfg.Canvas.Width, cfg.Canvas.Height), cfg.FrameInterval(), logger)
			if err := host.ShowAndRun(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Application shutting down gracefully")
			return nil
		},
	}
}
