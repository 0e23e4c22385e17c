//go:build !withcv

package main

func openCamera(cameraOptions) (devices, error) {
	return devices{}, errNoCamera
}
