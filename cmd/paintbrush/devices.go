package main

import (
	"context"
	"errors"
	"os"

	"github.com/banshee-data/paintbrush/internal/loop"
	"github.com/banshee-data/paintbrush/internal/sensor"
)

// devices is the operator-facing half of a loop: where the light is read
// from, where progress is shown and where key presses come from.
type devices struct {
	source  sensor.Source
	display loop.Display
	input   loop.Input
	close   func() error
}

// cameraOptions configures the camera and window. width and height size
// the screen calibration targets are drawn on; zero uses the camera frame.
type cameraOptions struct {
	device     int
	threshold  int
	minArea    int
	title      string
	headless   bool
	width      int
	height     int
	fullscreen bool
}

var errNoCamera = errors.New("camera support needs a build with -tags withcv; use --dry-run to simulate")

func (d devices) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// dryRunDevices scripts the light and the operator's key presses and logs
// instead of drawing.
func dryRunDevices(src sensor.Source, script ...[]loop.Action) devices {
	return devices{
		source:  src,
		display: &loop.LogDisplay{},
		input:   loop.NewScriptInput(script...),
	}
}

// openDevices opens the camera. Headless runs log to the console and take
// key presses from stdin instead of a window.
func openDevices(ctx context.Context, opts cameraOptions) (devices, error) {
	dev, err := openCamera(opts)
	if err != nil {
		return dev, err
	}
	if dev.display == nil {
		dev.display = &loop.LogDisplay{}
	}
	if dev.input == nil {
		dev.input = loop.NewLineInput(ctx, os.Stdin)
	}
	return dev, nil
}
