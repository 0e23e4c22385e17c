// Package sensor supplies the position of the brush's IR light as seen by a
// camera.
package sensor

import (
	"image"
	"sync"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// Source is a camera-like device. Update captures a new frame; Point reports
// the light's position in that frame, or false when none was found.
type Source interface {
	Update() (image.Image, error)
	Point() (geometry.Point2D, bool)
}

// FakeCorners are the four sensor readings a bench rig sees when the display
// corners are lit in the calibrator's order.
var FakeCorners = []geometry.Point2D{
	{X: 15, Y: 140},
	{X: 565, Y: 137},
	{X: 29, Y: 447},
	{X: 560, Y: 432},
}

// Scripted replays a fixed list of points, one per Point call. Once the list
// is exhausted it reports no point, or starts over when Loop is set.
type Scripted struct {
	mu     sync.Mutex
	points []geometry.Point2D
	next   int
	frame  *image.Gray

	Loop bool
}

// NewScripted replays points, one per Update.
func NewScripted(points ...geometry.Point2D) *Scripted {
	frame := image.NewGray(image.Rect(0, 0, 10, 10))
	return &Scripted{
		points: append([]geometry.Point2D(nil), points...),
		frame:  frame,
	}
}

// NewSweep scripts left-to-right passes over a w×h area, rows apart, moving
// step pixels per reading. A reading with no point separates each pass so the
// brush lifts on the return stroke.
func NewSweep(w, h, step, rows float64) *Scripted {
	var pts []geometry.Point2D
	if step <= 0 || rows <= 0 {
		return NewScripted()
	}
	for y := 0.0; y < h; y += rows {
		for x := 0.0; x < w; x += step {
			pts = append(pts, geometry.Pt(x, y))
		}
		pts = append(pts, geometry.Pt(-1, -1))
	}
	return NewScripted(pts...)
}

func (s *Scripted) Update() (image.Image, error) {
	return s.frame, nil
}

// Point returns the next scripted reading. Negative coordinates stand for a
// reading where the light was not seen.
func (s *Scripted) Point() (geometry.Point2D, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.points) {
		if !s.Loop || len(s.points) == 0 {
			return geometry.Point2D{}, false
		}
		s.next = 0
	}
	p := s.points[s.next]
	s.next++
	if p.X < 0 || p.Y < 0 {
		return geometry.Point2D{}, false
	}
	return p, true
}

// Remaining reports how many readings are left before the script ends.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points) - s.next
}

// Func adapts a function to a Source with a blank frame.
type Func func() (geometry.Point2D, bool)

func (f Func) Update() (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 10, 10)), nil
}

func (f Func) Point() (geometry.Point2D, bool) {
	return f()
}
