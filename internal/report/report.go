// Package report renders calibration residual plots.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/homography"
)

var (
	targetColour = color.RGBA{B: 200, A: 255}
	mappedColour = color.RGBA{R: 220, A: 255}
	errorColour  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// CalibrationPlot draws each target point beside where its sensor reading
// lands under t, joined by the residual. Canvas y grows downward so the Y
// axis is inverted.
func CalibrationPlot(t geometry.Transform, pairs []homography.Correspondence) (*plot.Plot, error) {
	if len(pairs) == 0 {
		return nil, errors.New("no correspondences to plot")
	}
	rms, err := homography.ReprojectionError(t, pairs)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Calibration residuals (%d pairs, RMS %.2f px)", len(pairs), rms)
	p.X.Label.Text = "Canvas x (px)"
	p.Y.Label.Text = "Canvas y (px)"
	p.Y.Scale = invertedScale{}
	p.Add(plotter.NewGrid())

	targets := make(plotter.XYs, 0, len(pairs))
	mapped := make(plotter.XYs, 0, len(pairs))
	for _, c := range pairs {
		m, err := t.Apply(c.Sensor)
		if err != nil {
			continue
		}
		targets = append(targets, plotter.XY{X: c.Target.X, Y: c.Target.Y})
		mapped = append(mapped, plotter.XY{X: m.X, Y: m.Y})

		seg, err := plotter.NewLine(plotter.XYs{{X: c.Target.X, Y: c.Target.Y}, {X: m.X, Y: m.Y}})
		if err != nil {
			return nil, err
		}
		seg.Color = errorColour
		seg.Width = vg.Points(1)
		p.Add(seg)
	}

	ts, err := plotter.NewScatter(targets)
	if err != nil {
		return nil, err
	}
	ts.Color = targetColour
	ts.Shape = draw.CircleGlyph{}
	ts.Radius = vg.Points(3)

	ms, err := plotter.NewScatter(mapped)
	if err != nil {
		return nil, err
	}
	ms.Color = mappedColour
	ms.Shape = draw.CrossGlyph{}
	ms.Radius = vg.Points(3)

	p.Add(ts, ms)
	p.Legend.Add("target", ts)
	p.Legend.Add("mapped sensor", ms)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the plot at 8×6 inches.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the calibration plot to path, creating its directory.
func SavePNG(path string, t geometry.Transform, pairs []homography.Correspondence) error {
	p, err := CalibrationPlot(t, pairs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// invertedScale maps values top to bottom.
type invertedScale struct{}

func (invertedScale) Normalize(min, max, x float64) float64 {
	return plot.LinearScale{}.Normalize(max, min, x)
}
