//go:build withcv

// Package cv reads the brush light from a camera and shows the loop in an
// OpenCV window. It needs OpenCV and is only built with the withcv tag.
package cv

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// ErrNoFrame is returned when a read yields an empty frame.
var ErrNoFrame = errors.New("camera returned no frame")

// Camera finds the brightest blob in each frame of a capture device. An IR
// filtered camera sees the LED on the cartridge as a near-white spot.
type Camera struct {
	capture   *gocv.VideoCapture
	frame     gocv.Mat
	grey      gocv.Mat
	mask      gocv.Mat
	labels    gocv.Mat
	stats     gocv.Mat
	centroids gocv.Mat

	threshold float32
	minArea   int
}

// OpenCamera opens capture device id. Pixels brighter than threshold count
// as light; blobs under minArea pixels are treated as noise.
func OpenCamera(id int, threshold uint8, minArea int) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", id, err)
	}
	return &Camera{
		capture:   capture,
		frame:     gocv.NewMat(),
		grey:      gocv.NewMat(),
		mask:      gocv.NewMat(),
		labels:    gocv.NewMat(),
		stats:     gocv.NewMat(),
		centroids: gocv.NewMat(),
		threshold: float32(threshold),
		minArea:   minArea,
	}, nil
}

// Update reads the next frame.
func (c *Camera) Update() (image.Image, error) {
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, ErrNoFrame
	}
	return c.frame.ToImage()
}

// Frame returns the last frame read. The Mat is owned by the camera.
func (c *Camera) Frame() gocv.Mat {
	return c.frame
}

// Point returns the centroid of the largest bright blob in the last frame.
func (c *Camera) Point() (geometry.Point2D, bool) {
	if c.frame.Empty() {
		return geometry.Point2D{}, false
	}
	gocv.CvtColor(c.frame, &c.grey, gocv.ColorBGRToGray)
	gocv.Threshold(c.grey, &c.mask, c.threshold, 255, gocv.ThresholdBinary)

	n := gocv.ConnectedComponentsWithStats(c.mask, &c.labels, &c.stats, &c.centroids)
	best, bestArea := -1, 0
	// label 0 is the background
	for i := 1; i < n; i++ {
		area := int(c.stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area >= c.minArea && area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return geometry.Point2D{}, false
	}
	return geometry.Pt(c.centroids.GetDoubleAt(best, 0), c.centroids.GetDoubleAt(best, 1)), true
}

func (c *Camera) Close() error {
	for _, m := range []*gocv.Mat{&c.frame, &c.grey, &c.mask, &c.labels, &c.stats, &c.centroids} {
		m.Close()
	}
	return c.capture.Close()
}
