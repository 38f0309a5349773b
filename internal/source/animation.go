package source

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/canvas"
)

// Shape selects what the Animation draws.
type Shape string

const (
	ShapeCircles   Shape = "circles"
	ShapePolylines Shape = "polylines"
)

// AnimationOptions configures the procedural input.
type AnimationOptions struct {
	Shape  Shape
	Count  int
	Seed   uint64
	Speed  float64 // radians per frame
	Weight int
}

// DefaultAnimationOptions draws ten shapes seeded with 10, turning 0.1 rad per frame.
func DefaultAnimationOptions() AnimationOptions {
	return AnimationOptions{Shape: ShapeCircles, Count: 10, Seed: 10, Speed: 0.1, Weight: 2}
}

// Animation paints rotating white outlines on black into the input panel. The
// layout is reseeded every frame so only the rotation changes over time.
type Animation struct {
	opts AnimationOptions
}

func NewAnimation(opts AnimationOptions) (*Animation, error) {
	switch opts.Shape {
	case ShapeCircles, ShapePolylines:
	default:
		return nil, fmt.Errorf("unknown animation shape %q", opts.Shape)
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	if opts.Weight < 1 {
		opts.Weight = 2
	}
	return &Animation{opts: opts}, nil
}

var strokeWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func (a *Animation) Acquire(fb *canvas.FrameBuffer, frame int) (gocv.Mat, error) {
	panel := fb.LeftPanel()
	fb.Fill(panel, color.RGBA{A: 255})
	half := float64(panel.Dy()) / 2
	center := image.Pt(panel.Min.X+panel.Dx()/2, panel.Min.Y+panel.Dy()/2)
	theta := float64(frame) * a.opts.Speed
	rng := rand.New(rand.NewPCG(a.opts.Seed, a.opts.Seed))

	fb.Draw(func(mat *gocv.Mat) {
		for i := 0; i < a.opts.Count; i++ {
			pos := rotate(uniform(rng, -half, half), uniform(rng, -half, half), theta).Add(center)
			switch a.opts.Shape {
			case ShapeCircles:
				radius := int(math.Round(uniform(rng, 15, 30)))
				gocv.Circle(mat, pos, radius, strokeWhite, a.opts.Weight)
			case ShapePolylines:
				// counter-rotated, so each polygon stays axis aligned
				pts := make([]image.Point, 6)
				for j := range pts {
					pts[j] = pos.Add(image.Pt(int(math.Round(uniform(rng, -20, 20))), int(math.Round(uniform(rng, -20, 20)))))
				}
				pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
				gocv.Polylines(mat, pv, false, strokeWhite, a.opts.Weight)
				pv.Close()
			}
		}
	})
	return fb.Region(panel)
}

func (a *Animation) InPlace() bool { return true }
func (a *Animation) Close() error  { return nil }

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func rotate(x, y, theta float64) image.Point {
	s, c := math.Sincos(theta)
	return image.Pt(int(math.Round(x*c-y*s)), int(math.Round(x*s+y*c)))
}
