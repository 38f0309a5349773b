package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func allEqual(t *testing.T, m gocv.Mat, v uint8) {
	t.Helper()
	for _, b := range m.ToBytes() {
		if b != v {
			t.Fatalf("found byte %d, want %d", b, v)
		}
	}
}

func TestNewFrameBuffer(t *testing.T) {
	fb, err := NewFrameBuffer(800, 400, white)
	require.NoError(t, err)
	defer fb.Close()

	assert.Equal(t, image.Rect(0, 0, 400, 400), fb.LeftPanel())
	assert.Equal(t, image.Rect(400, 0, 800, 400), fb.RightPanel())

	m := fb.Mat()
	defer m.Close()
	allEqual(t, m, 255)

	_, err = NewFrameBuffer(0, 10, white)
	assert.Error(t, err)
	_, err = NewFrameBuffer(maxDimension+1, 10, white)
	assert.Error(t, err)
}

func TestFrameBuffer_DrawAndClear(t *testing.T) {
	fb, err := NewFrameBuffer(64, 32, white)
	require.NoError(t, err)
	defer fb.Close()

	fb.DrawSegment(Segment{From: image.Pt(2, 2), To: image.Pt(20, 20)}, black, 3)
	region, err := fb.Region(fb.LeftPanel())
	require.NoError(t, err)
	defer region.Close()
	gray := grayOf(region)
	defer gray.Close()
	assert.Less(t, gocv.CountNonZero(gray), 32*32)

	fb.Clear()
	m := fb.Mat()
	defer m.Close()
	allEqual(t, m, 255)
}

func TestFrameBuffer_PasteAndRegion(t *testing.T) {
	fb, err := NewFrameBuffer(20, 10, white)
	require.NoError(t, err)
	defer fb.Close()

	patch := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC3)
	defer patch.Close()
	require.NoError(t, fb.Paste(fb.RightPanel(), patch))

	right, err := fb.Region(fb.RightPanel())
	require.NoError(t, err)
	defer right.Close()
	allEqual(t, right, 0)

	left, err := fb.Region(fb.LeftPanel())
	require.NoError(t, err)
	defer left.Close()
	allEqual(t, left, 255)

	small := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer small.Close()
	assert.Error(t, fb.Paste(fb.RightPanel(), small))
	assert.Error(t, fb.Paste(image.Rect(15, 0, 25, 10), patch))
}

func TestFrameBuffer_RegionIsACopy(t *testing.T) {
	fb, err := NewFrameBuffer(20, 10, white)
	require.NoError(t, err)
	defer fb.Close()

	region, err := fb.Region(fb.LeftPanel())
	require.NoError(t, err)
	defer region.Close()
	fb.Fill(fb.LeftPanel(), black)
	allEqual(t, region, 255)

	_, err = fb.Region(image.Rect(50, 50, 60, 60))
	assert.Error(t, err)
}

func TestFrameBuffer_Image(t *testing.T) {
	fb, err := NewFrameBuffer(8, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	require.NoError(t, err)
	defer fb.Close()

	img, err := fb.Image()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	r, g, b, _ := img.At(3, 2).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(20), g>>8)
	assert.Equal(t, uint32(30), b>>8)
}

func TestDrawState(t *testing.T) {
	var d DrawState
	_, ok := d.Extend(image.Pt(1, 1))
	assert.False(t, ok)

	dot := d.Begin(image.Pt(1, 1), black, 2)
	assert.Equal(t, dot.From, dot.To)
	seg, ok := d.Extend(image.Pt(5, 1))
	require.True(t, ok)
	assert.Equal(t, Segment{From: image.Pt(1, 1), To: image.Pt(5, 1)}, seg)
	assert.True(t, d.End())
	assert.False(t, d.End())

	d.Begin(image.Pt(0, 0), white, 1)
	d.End()
	require.Equal(t, 2, d.Len())
	strokes := d.Strokes()
	assert.Len(t, strokes[0].Segments(), 1)
	assert.Len(t, strokes[1].Segments(), 1)

	strokes[0].Points[0] = image.Pt(99, 99)
	assert.Equal(t, image.Pt(1, 1), d.Strokes()[0].Points[0])

	d.Reset()
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.Active())
}

func grayOf(m gocv.Mat) gocv.Mat {
	g := gocv.NewMat()
	gocv.CvtColor(m, &g, gocv.ColorBGRToGray)
	return g
}
