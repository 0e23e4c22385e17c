// Package nozzle turns the brush position and the artwork under it into ink
// levels for the cartridge's vertical column of nozzles.
package nozzle

import (
	"image"
	"math"

	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/raster"
)

const (
	// Count is the number of nozzles, stacked one raster row apart.
	Count = 12
	// MaxLevel is the strongest firing level.
	MaxLevel = 4
	// levelStep is the luminance drop per level.
	levelStep = 48
)

// Bank holds one firing level in [0, MaxLevel] per nozzle, top to bottom.
type Bank [Count]uint8

// Zero reports whether no nozzle fires.
func (b Bank) Zero() bool {
	return b == Bank{}
}

// Quantize maps a mean luminance to a level: darker artwork gets more ink.
func Quantize(mean float64) uint8 {
	l := math.Floor((255 - mean) / levelStep)
	if l <= 0 || math.IsNaN(l) {
		return 0
	}
	if l >= MaxLevel {
		return MaxLevel
	}
	return uint8(l)
}

// Controller tracks the brush over the canvas and consumes the artwork as it
// is painted. It is not safe for concurrent use.
type Controller struct {
	canvas   *raster.Raster
	point    geometry.Point2D
	hasPoint bool
	dx       float64
}

// NewController paints canvas, which it mutates.
func NewController(canvas *raster.Raster) *Controller {
	return &Controller{canvas: canvas}
}

// Canvas returns the remaining (unpainted) artwork.
func (c *Controller) Canvas() *raster.Raster {
	return c.canvas
}

// Position returns the current brush position, false when lifted.
func (c *Controller) Position() (geometry.Point2D, bool) {
	return c.point, c.hasPoint
}

// Velocity returns the horizontal movement since the previous tick.
func (c *Controller) Velocity() float64 {
	return c.dx
}

// UpdatePosition records the mapped brush position for this tick. A missing
// point or one off the canvas lifts the brush; dx then keeps its last value
// and restarts from zero on the next point.
func (c *Controller) UpdatePosition(p geometry.Point2D, ok bool) {
	if !ok || !c.canvas.Contains(p.X, p.Y) {
		c.hasPoint = false
		return
	}
	if c.hasPoint {
		c.dx = p.X - c.point.X
	} else {
		c.dx = 0
	}
	c.point = p
	c.hasPoint = true
}

// Compute returns the levels for the current position and blanks the painted
// region of the canvas. Only left-to-right strokes paint; a lifted brush or a
// leftward stroke returns an all-zero bank.
func (c *Controller) Compute() Bank {
	var bank Bank
	if !c.hasPoint || c.dx < 0 {
		return bank
	}

	// the window spans the distance covered since the last tick
	width := max(1, int(math.Round(math.Abs(c.dx))))
	x := int(math.Round(c.point.X))
	y := int(math.Round(c.point.Y))
	if x < 0 {
		width += x
		x = 0
	}

	rows := 0
	for i := range Count {
		if y+i+1 > c.canvas.Height {
			break
		}
		if width > 0 {
			bank[i] = Quantize(c.canvas.Mean(image.Rect(x, y+i, x+width, y+i+1)))
		}
		rows++
	}

	if width > 0 && rows > 0 {
		c.canvas.Fill(image.Rect(x, y, x+width, y+rows), raster.Blank)
	}
	return bank
}
