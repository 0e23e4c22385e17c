// Package raster holds the single-channel artwork the brush reproduces.
package raster

import (
	"image"
	"image/color"
)

// Blank is the luminance of unpainted (white) canvas.
const Blank uint8 = 255

// Raster is a mutable grid of 8-bit luminance values, row-major.
type Raster struct {
	Width, Height int
	Pix           []uint8
}

// New returns a blank raster.
func New(width, height int) *Raster {
	r := &Raster{Width: width, Height: height, Pix: make([]uint8, width*height)}
	for i := range r.Pix {
		r.Pix[i] = Blank
	}
	return r
}

// FromGray copies an image.Gray into a raster.
func FromGray(g *image.Gray) *Raster {
	b := g.Bounds()
	r := &Raster{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < r.Height; y++ {
		copy(r.Pix[y*r.Width:(y+1)*r.Width], g.Pix[y*g.Stride:y*g.Stride+r.Width])
	}
	return r
}

// Bounds returns the raster rectangle anchored at the origin.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// Contains reports whether the (fractional) point lies on the raster.
func (r *Raster) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(r.Width) && y < float64(r.Height)
}

// At returns the luminance at (x, y). Out of range reads are Blank.
func (r *Raster) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return Blank
	}
	return r.Pix[y*r.Width+x]
}

// Set writes one pixel; out of range writes are dropped.
func (r *Raster) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	r.Pix[y*r.Width+x] = v
}

// Mean returns the average luminance of rect clipped to the raster. An empty
// intersection reads as Blank.
func (r *Raster) Mean(rect image.Rectangle) float64 {
	rect = rect.Intersect(r.Bounds())
	if rect.Empty() {
		return float64(Blank)
	}
	var sum int
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := r.Pix[y*r.Width : (y+1)*r.Width]
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sum += int(row[x])
		}
	}
	return float64(sum) / float64(rect.Dx()*rect.Dy())
}

// Fill sets every pixel of rect (clipped) to v.
func (r *Raster) Fill(rect image.Rectangle, v uint8) {
	rect = rect.Intersect(r.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := r.Pix[y*r.Width : (y+1)*r.Width]
		for x := rect.Min.X; x < rect.Max.X; x++ {
			row[x] = v
		}
	}
}

// ToGray returns a copy as an image.Gray for display or export.
func (r *Raster) ToGray() *image.Gray {
	g := image.NewGray(r.Bounds())
	copy(g.Pix, r.Pix)
	return g
}

// Luminance converts a colour with the 30/59/11 weighting on 8-bit channels.
func Luminance(c color.Color) uint8 {
	cr, cg, cb, _ := c.RGBA()
	r, g, b := cr>>8, cg>>8, cb>>8
	return uint8((30*r + 59*g + 11*b) / 100)
}
