//go:build withcv

package cv

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/loop"
	"github.com/banshee-data/paintbrush/internal/raster"
)

const keyEscape = 27

var (
	targetColour = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	frameColour  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	brushColour  = color.RGBA{R: 127, G: 255, B: 127, A: 255}
	textColour   = color.RGBA{R: 255, G: 64, B: 64, A: 255}
)

// Window shows calibration frames and the canvas, and turns key presses into
// loop actions.
type Window struct {
	win    *gocv.Window
	camera *Camera
	size   image.Point
}

// NewWindow opens a window. Calibration targets are drawn on a width x
// height screen with the camera frame inset in the top-left corner; a zero
// size draws on the camera frame itself. When camera is set its detected
// light is marked too.
func NewWindow(title string, camera *Camera, width, height int, fullscreen bool) *Window {
	win := gocv.NewWindow(title)
	if fullscreen {
		win.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	}
	return &Window{win: win, camera: camera, size: image.Pt(width, height)}
}

// ShowCalibration draws the crosshair the operator lines the light up on.
func (w *Window) ShowCalibration(frame image.Image, target geometry.Point2D) error {
	cam, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return err
	}
	defer cam.Close()

	camSize := image.Pt(cam.Cols(), cam.Rows())
	size := screenSize(w.size, camSize)
	screen := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
	defer screen.Close()

	inset, scale := insetRect(camSize, size)
	if !inset.Empty() {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(cam, &scaled, inset.Size(), 0, 0, gocv.InterpolationArea)
		region := screen.Region(inset)
		scaled.CopyTo(&region)
		region.Close()
		gocv.Rectangle(&screen, inset, frameColour, 1)
	}

	if w.camera != nil {
		if p, ok := w.camera.Point(); ok {
			gocv.Circle(&screen, image.Pt(int(p.X*scale), int(p.Y*scale)), 8, brushColour, 2)
		}
	}

	box, diagonals := crosshair(target)
	gocv.Rectangle(&screen, box, targetColour, 3)
	for _, d := range diagonals {
		gocv.Line(&screen, d[0], d[1], targetColour, 1)
	}

	label := fmt.Sprintf("move the brush to %v, any key to capture, s skip, f finish", target)
	gocv.PutText(&screen, label, image.Pt(10, size.Y-12), gocv.FontHersheyPlain, 1.2, textColour, 2)
	w.win.IMShow(screen)
	return nil
}

// ShowCanvas draws the remaining artwork and the brush window.
func (w *Window) ShowCanvas(canvas *raster.Raster, pos geometry.Point2D, ok bool) error {
	mat, err := gocv.ImageToMatRGB(canvas.ToGray())
	if err != nil {
		return err
	}
	defer mat.Close()

	if ok {
		r := image.Rect(int(pos.X), int(pos.Y), int(pos.X)+12, int(pos.Y)+12)
		gocv.Rectangle(&mat, r, brushColour, 3)
	}
	w.win.IMShow(mat)
	return nil
}

// Poll services the window's event queue and reports at most one key.
func (w *Window) Poll() []loop.Action {
	key := w.win.WaitKey(1)
	switch {
	case key < 0:
		return nil
	case key == keyEscape || key == 'q':
		return []loop.Action{loop.ActionQuit}
	case key == 's':
		return []loop.Action{loop.ActionSkip}
	case key == 'f':
		return []loop.Action{loop.ActionFinish}
	}
	return []loop.Action{loop.ActionAdvance}
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
