package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultDPI is the cartridge's dot pitch.
const DefaultDPI = 96

// CanvasSize converts a physical canvas in inches to dots.
func CanvasSize(widthIn, heightIn float64, dpi int) (int, int) {
	return int(widthIn * float64(dpi)), int(heightIn * float64(dpi))
}

// Load decodes an image, converts it to luminance and letterboxes it onto a
// blank width x height canvas, scaled to fit with its aspect ratio kept.
func Load(rd io.Reader, width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	img, format, err := image.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return Fit(Grey(img), width, height), nil
}

// Grey converts any image to 8-bit luminance.
func Grey(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: Luminance(img.At(x, y))})
		}
	}
	return g
}

// Fit scales g into a width x height blank raster, centred.
func Fit(g *image.Gray, width, height int) *Raster {
	dst := fitRect(g.Bounds(), width, height)
	canvas := image.NewGray(image.Rect(0, 0, width, height))
	for i := range canvas.Pix {
		canvas.Pix[i] = Blank
	}
	draw.CatmullRom.Scale(canvas, dst, g, g.Bounds(), draw.Src, nil)
	return FromGray(canvas)
}

func fitRect(src image.Rectangle, width, height int) image.Rectangle {
	scale := math.Min(float64(width)/float64(src.Dx()), float64(height)/float64(src.Dy()))
	w := int(math.Round(float64(src.Dx()) * scale))
	h := int(math.Round(float64(src.Dy()) * scale))
	w, h = min(max(w, 1), width), min(max(h, 1), height)
	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
