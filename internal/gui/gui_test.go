package gui

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interactive-image-translation/internal/session"
)

type recordingSketch struct {
	keys     []session.KeyEvent
	pointers []session.PointerEvent
	frames   int
	failAt   int
}

func (r *recordingSketch) OnSetup(context.Context) error { return nil }
func (r *recordingSketch) OnFrame(context.Context) error {
	r.frames++
	if r.failAt > 0 && r.frames >= r.failAt {
		return errors.New("source gone")
	}
	return nil
}
func (r *recordingSketch) OnKeyEvent(ev session.KeyEvent)         { r.keys = append(r.keys, ev) }
func (r *recordingSketch) OnPointerEvent(ev session.PointerEvent) { r.pointers = append(r.pointers, ev) }
func (r *recordingSketch) Snapshot() image.Image                  { return image.NewRGBA(image.Rect(0, 0, 8, 4)) }
func (r *recordingSketch) Frame() int                             { return r.frames }

func TestSketchCanvas_MapsLetterboxedCoordinates(t *testing.T) {
	test.NewTempApp(t)
	var got []session.PointerEvent
	sc := NewSketchCanvas(image.Pt(800, 400), func(ev session.PointerEvent) { got = append(got, ev) })
	// twice the frame height, so the frame is centred vertically with 200px bars
	sc.Resize(fyne.NewSize(800, 800))

	sc.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 250)},
		Button:     desktop.MouseButtonPrimary,
	})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(120, 10)}})
	sc.DragEnd()
	sc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(120, 260)}})

	require.Len(t, got, 3)
	assert.Equal(t, session.PointerEvent{Action: session.PointerPress, Pos: image.Pt(100, 50)}, got[0])
	assert.Equal(t, session.PointerEvent{Action: session.PointerDrag, Pos: image.Pt(120, 0)}, got[1])
	assert.Equal(t, session.PointerRelease, got[2].Action)
}

func TestSketchCanvas_IgnoresSecondaryButton(t *testing.T) {
	test.NewTempApp(t)
	var got []session.PointerEvent
	sc := NewSketchCanvas(image.Pt(100, 50), func(ev session.PointerEvent) { got = append(got, ev) })
	sc.Resize(fyne.NewSize(100, 50))

	sc.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonSecondary})
	sc.Dragged(&fyne.DragEvent{})
	sc.MouseUp(&desktop.MouseEvent{})
	assert.Empty(t, got)
}

func TestHost_StepDeliversQueuedEvents(t *testing.T) {
	app := test.NewTempApp(t)
	logger, _ := logtest.NewNullLogger()
	sk := &recordingSketch{}
	h := NewHost(app, "test", sk, image.Pt(8, 4), 10*time.Millisecond, logger)

	h.PostKey(session.KeyEvent{Key: "c"})
	h.PostPointer(session.PointerEvent{Action: session.PointerPress, Pos: image.Pt(1, 1)})
	img, err := h.step(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, img)
	assert.Equal(t, []session.KeyEvent{{Key: "c"}}, sk.keys)
	assert.Len(t, sk.pointers, 1)
	assert.Equal(t, 1, sk.frames)

	_, err = h.step(context.Background())
	require.NoError(t, err)
	assert.Len(t, sk.keys, 1, "events are delivered once")
}

func TestHost_DropsEventsWhenQueueFull(t *testing.T) {
	app := test.NewTempApp(t)
	logger, hook := logtest.NewNullLogger()
	h := NewHost(app, "test", &recordingSketch{}, image.Pt(8, 4), time.Second, logger)

	for i := 0; i < eventBuffer+1; i++ {
		h.PostKey(session.KeyEvent{Key: "x"})
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Event queue full, dropping input event", hook.LastEntry().Message)
}

func TestHost_StepPropagatesFrameErrors(t *testing.T) {
	app := test.NewTempApp(t)
	logger, _ := logtest.NewNullLogger()
	h := NewHost(app, "test", &recordingSketch{failAt: 1}, image.Pt(8, 4), time.Second, logger)
	_, err := h.step(context.Background())
	assert.Error(t, err)
}
