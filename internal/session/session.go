// Frame loop of an interactive image-translation sketch
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
	"interactive-image-translation/internal/compositor"
	"interactive-image-translation/internal/inference"
	"interactive-image-translation/internal/metrics"
	"interactive-image-translation/internal/model"
	"interactive-image-translation/internal/preprocess"
	"interactive-image-translation/internal/source"
	"interactive-image-translation/internal/trigger"
)

// Model is the model handle as the session uses it.
type Model interface {
	inference.Model
	Seed(seed uint64)
}

// Options configures a Session.
type Options struct {
	Width, Height int
	Background    color.RGBA
	StrokeColor   color.RGBA
	StrokeWeight  int
	Keys          KeyBindings

	Trigger       trigger.Mode
	LatencyBudget time.Duration
	// OnStrokeEnd requests an OnDemand firing when a drawing gesture ends.
	OnStrokeEnd bool

	Seed              uint64
	ReseedEachTrigger bool

	Edges   bool
	Edge    preprocess.EdgeOptions
	Overlay bool
}

// ErrSourceFailed is returned by OnFrame once the input source has failed too
// many frames in a row.
var ErrSourceFailed = errors.New("input source keeps failing")

const maxAcquireFailures = 30

// Session owns the canvas, stroke history, cached result and the input source.
// It is not safe for concurrent use; hosts call it from one goroutine.
type Session struct {
	opts   Options
	logger logrus.FieldLogger

	model   Model
	src     source.Source
	pre     *preprocess.Preprocessor
	invoker *inference.Invoker
	policy  *trigger.Policy
	comp    *compositor.Compositor
	metrics *metrics.Recorder
	quality *metrics.Evaluator

	fb       *canvas.FrameBuffer
	draw     canvas.DrawState
	cached   gocv.Mat
	frame    int
	failures int
}

// New wires a session around a loaded model and an input source. The session
// takes ownership of src.
func New(opts Options, m Model, src source.Source, logger logrus.FieldLogger) (*Session, error) {
	if m == nil || src == nil {
		return nil, errors.New("session needs a model and an input source")
	}
	if opts.StrokeWeight <= 0 {
		opts.StrokeWeight = 2
	}
	if opts.Keys == (KeyBindings{}) {
		opts.Keys = DefaultKeyBindings()
	}
	if opts.Edge == (preprocess.EdgeOptions{}) {
		opts.Edge = preprocess.DefaultEdgeOptions()
	}

	spec := m.InputSpec()
	pre, err := preprocess.NewPreprocessor(preprocess.Options{
		Size:     image.Pt(spec.Width, spec.Height),
		Channels: spec.Channels,
		Edges:    opts.Edges,
		Edge:     opts.Edge,
		Overlay:  opts.Overlay,
	})
	if err != nil {
		return nil, fmt.Errorf("preprocessor: %w", err)
	}

	return &Session{
		opts:    opts,
		logger:  logger,
		model:   m,
		src:     src,
		pre:     pre,
		invoker: inference.NewInvoker(logger),
		policy:  trigger.New(opts.Trigger, opts.LatencyBudget),
		comp:    compositor.New(),
		metrics: metrics.NewRecorder(),
		quality: metrics.NewEvaluator(),
		cached:  gocv.NewMat(),
	}, nil
}

// OnSetup allocates the canvas and paints the background.
func (s *Session) OnSetup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fb != nil {
		s.fb.Close()
	}
	fb, err := canvas.NewFrameBuffer(s.opts.Width, s.opts.Height, s.opts.Background)
	if err != nil {
		return err
	}
	s.fb = fb
	s.draw.Reset()
	s.frame = 0

	s.logger.WithFields(logrus.Fields{
		"width":   s.opts.Width,
		"height":  s.opts.Height,
		"trigger": s.policy.Mode().String(),
		"edges":   s.opts.Edges,
	}).Info("Session started")
	return nil
}

// OnFrame runs one iteration: acquire, extract, maybe invoke, composite.
func (s *Session) OnFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fb == nil {
		return errors.New("frame before setup")
	}
	start := time.Now()
	s.frame++

	region, err := s.src.Acquire(s.fb, s.frame)
	if err != nil {
		region.Close()
		s.failures++
		s.logger.WithError(err).WithField("frame", s.frame).Warn("Input acquisition failed")
		if s.failures >= maxAcquireFailures {
			return fmt.Errorf("%w: %v", ErrSourceFailed, err)
		}
		return nil
	}
	defer region.Close()
	s.failures = 0

	stage, err := s.pre.Extract(region, !s.src.InPlace())
	if err != nil {
		stage.Close()
		s.logger.WithError(err).Warn("Preprocessing failed")
		return nil
	}
	defer stage.Close()

	if s.policy.Fire() {
		s.invoke(stage)
	}

	if err := s.comp.Compose(s.fb, stage.Display, s.cached); err != nil {
		return fmt.Errorf("composite frame %d: %w", s.frame, err)
	}
	s.metrics.ObserveFrame(time.Since(start))
	return nil
}

func (s *Session) invoke(stage preprocess.Stage) {
	if s.opts.ReseedEachTrigger {
		s.model.Seed(s.opts.Seed)
	}
	in, err := s.pre.Tensor(stage)
	if err != nil {
		s.logger.WithError(err).Warn("Could not build model input, keeping previous result")
		return
	}

	res, err := s.invoker.Invoke(s.model, in)
	s.metrics.ObserveInference(res.Duration, err)
	if err != nil {
		var shapeErr *model.ShapeMismatchError
		if errors.As(err, &shapeErr) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"want": shapeErr.Want,
				"got":  shapeErr.Got,
			}).Warn("Shape mismatch, keeping previous result")
		} else {
			s.logger.WithError(err).Error("Inference failed, keeping previous result")
		}
		return
	}

	if s.policy.OverBudget(res.Duration) {
		s.metrics.BudgetOverrun()
		s.logger.WithFields(logrus.Fields{
			"duration": res.Duration,
			"budget":   s.policy.Budget(),
		}).Warn("Inference exceeded latency budget")
	}

	mat, err := res.Mat()
	if err != nil {
		s.logger.WithError(err).Error("Could not convert result, keeping previous result")
		return
	}
	if !s.cached.Empty() {
		if psnr, err := s.quality.Calculate("psnr", s.cached, mat); err == nil {
			s.metrics.ObserveVariation(psnr)
			if math.IsInf(psnr, 1) {
				s.logger.Debug("Result unchanged")
			} else {
				s.logger.WithField("psnr_db", psnr).Debug("Result variation")
			}
		}
	}
	s.cached.Close()
	s.cached = mat
}

// OnKeyEvent handles the clear, generate and reseed bindings.
func (s *Session) OnKeyEvent(ev KeyEvent) {
	switch ev.Key {
	case s.opts.Keys.Clear:
		if s.fb != nil {
			s.fb.Clear()
		}
		s.draw.Reset()
		s.logger.Debug("Canvas cleared")
	case s.opts.Keys.Generate:
		s.policy.Request()
		s.logger.Debug("Generation requested")
	case s.opts.Keys.Reseed:
		s.model.Seed(s.opts.Seed)
		s.logger.WithField("seed", s.opts.Seed).Info("Model reseeded")
	}
}

// OnPointerEvent appends strokes started inside the input panel.
func (s *Session) OnPointerEvent(ev PointerEvent) {
	if s.fb == nil {
		return
	}
	switch ev.Action {
	case PointerPress:
		if !ev.Pos.In(s.fb.LeftPanel()) {
			return
		}
		seg := s.draw.Begin(ev.Pos, s.opts.StrokeColor, s.opts.StrokeWeight)
		s.fb.DrawSegment(seg, s.opts.StrokeColor, s.opts.StrokeWeight)
	case PointerDrag:
		if seg, ok := s.draw.Extend(ev.Pos); ok {
			s.fb.DrawSegment(seg, s.opts.StrokeColor, s.opts.StrokeWeight)
		}
	case PointerRelease:
		if s.draw.End() && s.opts.OnStrokeEnd {
			s.policy.Request()
		}
	}
}

// Snapshot copies the canvas for display. It is nil before setup.
func (s *Session) Snapshot() image.Image {
	if s.fb == nil {
		return nil
	}
	img, err := s.fb.Image()
	if err != nil {
		s.logger.WithError(err).Warn("Snapshot failed")
		return nil
	}
	return img
}

// Result returns a copy of the cached result at model resolution. It is empty
// until the first successful invocation.
func (s *Session) Result() gocv.Mat { return s.cached.Clone() }

func (s *Session) FrameBuffer() *canvas.FrameBuffer { return s.fb }
func (s *Session) Strokes() []canvas.Stroke         { return s.draw.Strokes() }
func (s *Session) Frame() int                       { return s.frame }
func (s *Session) Metrics() *metrics.Recorder       { return s.metrics }

// Close logs the metrics summary and releases the canvas, cache and source.
// The model handle stays with its owner.
func (s *Session) Close() error {
	if summary, err := s.metrics.Summary(); err == nil {
		fields := logrus.Fields{"frames": s.frame}
		for k, v := range summary {
			fields[k] = v
		}
		s.logger.WithFields(fields).Info("Session closed")
	}
	s.cached.Close()
	s.cached = gocv.NewMat()
	if s.fb != nil {
		s.fb.Close()
		s.fb = nil
	}
	return s.src.Close()
}
