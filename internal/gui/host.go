// Fyne host that drives a sketch session on its own loop goroutine
package gui

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"interactive-image-translation/internal/session"
)

// Sketch is a session the host can display.
type Sketch interface {
	session.Sketch
	Snapshot() image.Image
	Frame() int
}

const eventBuffer = 256

// event is a queued key or pointer event.
type event struct {
	key     *session.KeyEvent
	pointer *session.PointerEvent
}

// Host owns the window and the frame loop. UI callbacks only enqueue events;
// the loop goroutine is the only caller of the sketch.
type Host struct {
	app      fyne.App
	window   fyne.Window
	logger   logrus.FieldLogger
	sketch   Sketch
	interval time.Duration

	canvas *SketchCanvas
	status *widget.Label

	events chan event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHost builds the window for a sketch rendering a frameSize canvas.
func NewHost(app fyne.App, title string, sketch Sketch, frameSize image.Point, interval time.Duration, logger logrus.FieldLogger) *Host {
	window := app.NewWindow(title)
	window.Resize(fyne.NewSize(float32(frameSize.X), float32(frameSize.Y)+32))
	window.CenterOnScreen()

	h := &Host{
		app:      app,
		window:   window,
		logger:   logger,
		sketch:   sketch,
		interval: interval,
		status:   widget.NewLabel("Starting..."),
		events:   make(chan event, eventBuffer),
	}
	h.canvas = NewSketchCanvas(frameSize, h.PostPointer)
	window.SetContent(container.NewBorder(nil, h.status, nil, nil, h.canvas))
	window.Canvas().SetOnTypedRune(func(r rune) {
		h.PostKey(session.KeyEvent{Key: string(r)})
	})
	return h
}

// PostKey queues a key event for the next frame.
func (h *Host) PostKey(ev session.KeyEvent) { h.post(event{key: &ev}) }

// PostPointer queues a pointer event for the next frame.
func (h *Host) PostPointer(ev session.PointerEvent) { h.post(event{pointer: &ev}) }

func (h *Host) post(ev event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("Event queue full, dropping input event")
	}
}

// ShowAndRun sets up the sketch, starts the loop and blocks until the window closes.
func (h *Host) ShowAndRun(ctx context.Context) error {
	if err := h.sketch.OnSetup(ctx); err != nil {
		return fmt.Errorf("sketch setup: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.wg.Add(1)
	go h.loop(ctx)

	h.window.SetCloseIntercept(func() {
		h.stop()
		h.app.Quit()
	})
	h.logger.WithField("interval", h.interval).Info("Showing sketch window")
	h.window.ShowAndRun()
	h.stop()
	return nil
}

func (h *Host) stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

func (h *Host) loop(ctx context.Context) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			img, err := h.step(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.WithError(err).Error("Frame loop stopped")
				fyne.Do(func() {
					dialog.ShowError(err, h.window)
					h.status.SetText(fmt.Sprintf("Stopped: %v", err))
				})
				return
			}
			frame := h.sketch.Frame()
			fyne.Do(func() {
				h.canvas.UpdateImage(img)
				h.status.SetText(fmt.Sprintf("Frame %d", frame))
			})
		}
	}
}

// step delivers queued events and runs one frame.
func (h *Host) step(ctx context.Context) (image.Image, error) {
	h.drain()
	if err := h.sketch.OnFrame(ctx); err != nil {
		return nil, err
	}
	return h.sketch.Snapshot(), nil
}

func (h *Host) drain() {
	for {
		select {
		case ev := <-h.events:
			switch {
			case ev.key != nil:
				h.sketch.OnKeyEvent(*ev.key)
			case ev.pointer != nil:
				h.sketch.OnPointerEvent(*ev.pointer)
			}
		default:
			return
		}
	}
}
