package cv

import (
	"image"
	"math"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// crosshairSize is half the side of the box drawn around a calibration target.
const crosshairSize = 25

// insetRect places a camera frame in the top-left corner of a screen,
// scaled down to fit when it is larger. It returns the placement and the
// scale applied to frame coordinates.
func insetRect(frame, screen image.Point) (image.Rectangle, float64) {
	if frame.X <= 0 || frame.Y <= 0 {
		return image.Rectangle{}, 0
	}
	scale := math.Min(1, math.Min(float64(screen.X)/float64(frame.X), float64(screen.Y)/float64(frame.Y)))
	w := max(1, int(math.Round(float64(frame.X)*scale)))
	h := max(1, int(math.Round(float64(frame.Y)*scale)))
	return image.Rect(0, 0, w, h), scale
}

// crosshair returns the box and the two diagonals marking target.
func crosshair(target geometry.Point2D) (image.Rectangle, [2][2]image.Point) {
	c := image.Pt(int(math.Round(target.X)), int(math.Round(target.Y)))
	o := crosshairSize
	box := image.Rect(c.X-o, c.Y-o, c.X+o, c.Y+o)
	return box, [2][2]image.Point{
		{{c.X - o, c.Y - o}, {c.X + o, c.Y + o}},
		{{c.X - o, c.Y + o}, {c.X + o, c.Y - o}},
	}
}

// screenSize is the drawing area for a calibration view: the display
// resolution when one is set, otherwise the camera frame.
func screenSize(display, frame image.Point) image.Point {
	if display.X > 0 && display.Y > 0 {
		return display
	}
	return frame
}
