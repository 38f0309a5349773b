package canvas

import (
	"image"
	"image/color"
)

// Segment is one straight piece of a stroke.
type Segment struct {
	From, To image.Point
}

// Stroke is the geometry of one pointer gesture.
type Stroke struct {
	Points []image.Point
	Color  color.RGBA
	Weight int
}

// Segments returns the consecutive segments of the stroke. A single-point stroke
// yields one degenerate segment so a click still leaves a dot.
func (s Stroke) Segments() []Segment {
	switch len(s.Points) {
	case 0:
		return nil
	case 1:
		return []Segment{{From: s.Points[0], To: s.Points[0]}}
	}
	segs := make([]Segment, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		segs = append(segs, Segment{From: s.Points[i-1], To: s.Points[i]})
	}
	return segs
}

// DrawState is the append-only stroke history since the last clear.
type DrawState struct {
	strokes []Stroke
	active  bool
}

// Begin starts a new stroke at p and returns the dot segment to render.
func (d *DrawState) Begin(p image.Point, c color.RGBA, weight int) Segment {
	d.strokes = append(d.strokes, Stroke{Points: []image.Point{p}, Color: c, Weight: weight})
	d.active = true
	return Segment{From: p, To: p}
}

// Extend appends p to the active stroke. ok is false when no gesture is in
// progress.
func (d *DrawState) Extend(p image.Point) (seg Segment, ok bool) {
	if !d.active {
		return Segment{}, false
	}
	s := &d.strokes[len(d.strokes)-1]
	last := s.Points[len(s.Points)-1]
	s.Points = append(s.Points, p)
	return Segment{From: last, To: p}, true
}

// End finishes the active stroke and reports whether one was in progress.
func (d *DrawState) End() bool {
	was := d.active
	d.active = false
	return was
}

func (d *DrawState) Active() bool { return d.active }
func (d *DrawState) Len() int     { return len(d.strokes) }

// Strokes returns a copy of the history.
func (d *DrawState) Strokes() []Stroke {
	out := make([]Stroke, len(d.strokes))
	for i, s := range d.strokes {
		s.Points = append([]image.Point(nil), s.Points...)
		out[i] = s
	}
	return out
}

// Reset drops every stroke.
func (d *DrawState) Reset() {
	d.strokes = nil
	d.active = false
}
