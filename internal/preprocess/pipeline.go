package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"interactive-image-translation/internal/tensor"
)

// Options configures a Preprocessor.
type Options struct {
	Size     image.Point // model input resolution
	Channels int
	Edges    bool
	Edge     EdgeOptions
	Overlay  bool // show raw+edges instead of the bare edge map
}

// Stage is the output of the cheap per-frame stage.
type Stage struct {
	// Model is the 8-bit image at model resolution that Tensor normalizes.
	Model gocv.Mat
	// Display is what the input panel should show; empty when the panel
	// already shows the input.
	Display gocv.Mat
}

// Close releases both images.
func (s *Stage) Close() {
	s.Model.Close()
	s.Display.Close()
}

// Preprocessor turns an input region into the model's expected input.
type Preprocessor struct {
	opts Options
}

func NewPreprocessor(opts Options) (*Preprocessor, error) {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		return nil, fmt.Errorf("invalid target size %v", opts.Size)
	}
	if opts.Channels != 1 && opts.Channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", opts.Channels)
	}
	return &Preprocessor{opts: opts}, nil
}

func (p *Preprocessor) Options() Options { return p.opts }

// Extract runs the per-frame stage: edge extraction when enabled, otherwise a
// resize to the model resolution. display asks for the panel image (raw, edge
// map or blend); without it Display stays empty and the caller's panel is left
// as it is, which in-place sources rely on to keep their content.
func (p *Preprocessor) Extract(region gocv.Mat, display bool) (Stage, error) {
	if region.Empty() {
		return Stage{Model: gocv.NewMat(), Display: gocv.NewMat()}, errors.New("extract: empty region")
	}
	if !p.opts.Edges {
		st := Stage{Model: Resize(region, p.opts.Size), Display: gocv.NewMat()}
		if display {
			region.CopyTo(&st.Display)
		}
		return st, nil
	}

	edges, err := EdgeExtract(region, p.opts.Size, p.opts.Edge)
	if err != nil {
		return Stage{Model: gocv.NewMat(), Display: gocv.NewMat()}, err
	}
	st := Stage{Model: edges, Display: gocv.NewMat()}
	switch {
	case !display:
	case p.opts.Overlay:
		raw := Resize(region, p.opts.Size)
		defer raw.Close()
		blended, err := Blend(raw, edges)
		if err != nil {
			st.Close()
			return Stage{Model: gocv.NewMat(), Display: gocv.NewMat()}, err
		}
		st.Display.Close()
		st.Display = blended
	default:
		edges.CopyTo(&st.Display)
	}
	return st, nil
}

// Tensor normalizes the stage's model image. Its spatial size always equals
// the configured model resolution.
func (p *Preprocessor) Tensor(st Stage) (tensor.Tensor, error) {
	img := st.Model
	if img.Cols() != p.opts.Size.X || img.Rows() != p.opts.Size.Y {
		resized := Resize(img, p.opts.Size)
		defer resized.Close()
		img = resized
	}
	return Normalize(img, p.opts.Channels)
}

// Prepare runs Extract and Tensor in one step. The caller owns the returned display image.
func (p *Preprocessor) Prepare(region gocv.Mat) (tensor.Tensor, gocv.Mat, error) {
	st, err := p.Extract(region, true)
	if err != nil {
		return tensor.Tensor{}, gocv.NewMat(), err
	}
	defer st.Model.Close()
	t, err := p.Tensor(st)
	if err != nil {
		st.Display.Close()
		return tensor.Tensor{}, gocv.NewMat(), err
	}
	return t, st.Display, nil
}
