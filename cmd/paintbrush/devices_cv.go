//go:build withcv

package main

import (
	"errors"

	"github.com/banshee-data/paintbrush/internal/sensor/cv"
)

func openCamera(opts cameraOptions) (devices, error) {
	cam, err := cv.OpenCamera(opts.device, uint8(min(max(opts.threshold, 0), 255)), opts.minArea)
	if err != nil {
		return devices{}, err
	}
	if opts.headless {
		return devices{source: cam, close: cam.Close}, nil
	}
	win := cv.NewWindow(opts.title, cam, opts.width, opts.height, opts.fullscreen)
	return devices{
		source:  cam,
		display: win,
		input:   win,
		close: func() error {
			return errors.Join(win.Close(), cam.Close())
		},
	}, nil
}
