package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/paintbrush/internal/db"
	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/homography"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/sensor"
	"github.com/banshee-data/paintbrush/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func writeImage(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestVersionCommand(t *testing.T) {
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "paintbrush "), out.String())
	monitoring.SetLogger(nil)
}

func TestCalibrateDryRun(t *testing.T) {
	dir := t.TempDir()
	opts := calibrateOptions{
		strategy: homography.StrategyCorners,
		pairs:    4,
		width:    576,
		height:   768,
		out:      filepath.Join(dir, "homography.json"),
		plot:     filepath.Join(dir, "residuals.png"),
		dbPath:   filepath.Join(dir, "paintbrush.db"),
		name:     "bench",
		dryRun:   true,
	}
	require.NoError(t, runCalibrate(context.Background(), opts))

	tr, err := homography.LoadTransform(opts.out)
	require.NoError(t, err)
	corners := []geometry.Point2D{{X: 0, Y: 0}, {X: 576, Y: 0}, {X: 0, Y: 768}, {X: 576, Y: 768}}
	for i, p := range sensor.FakeCorners {
		got, err := tr.Apply(p)
		require.NoError(t, err)
		testutil.AssertPointNear(t, got, corners[i], 1e-6)
	}

	_, err = os.Stat(opts.plot)
	assert.NoError(t, err)

	database, err := db.NewDB(opts.dbPath)
	require.NoError(t, err)
	defer database.Close()
	c, err := database.LatestCalibration("bench")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Pairs)
	assert.Equal(t, homography.StrategyCorners, c.Strategy)
}

func TestCalibrateDryRunScatter(t *testing.T) {
	dir := t.TempDir()
	opts := calibrateOptions{
		strategy: homography.StrategyScatter,
		pairs:    8,
		width:    640,
		height:   480,
		out:      filepath.Join(dir, "homography.json"),
		dryRun:   true,
	}
	require.NoError(t, runCalibrate(context.Background(), opts))

	tr, err := homography.LoadTransform(opts.out)
	require.NoError(t, err)
	// The dry-run camera sees targets through a fixed skew; the solve undoes it.
	skew := geometry.FromValues([9]float64{0.9, 0.05, 15, -0.02, 0.85, 40, 0, 0.0001, 1})
	seen, err := skew.Apply(geometry.Pt(320, 240))
	require.NoError(t, err)
	got, err := tr.Apply(seen)
	require.NoError(t, err)
	testutil.AssertPointNear(t, got, geometry.Pt(320, 240), 1e-4)
}

func TestCalibrateUnknownStrategy(t *testing.T) {
	err := runCalibrate(context.Background(), calibrateOptions{strategy: "spiral", width: 640, height: 480, dryRun: true})
	assert.ErrorContains(t, err, "spiral")
}

func TestCalibrateRejectsBadSize(t *testing.T) {
	for _, size := range [][2]int{{-1, 480}, {640, -1}, {0, 480}} {
		err := runCalibrate(context.Background(), calibrateOptions{
			strategy: homography.StrategyScatter,
			pairs:    4,
			width:    size[0],
			height:   size[1],
			dryRun:   true,
		})
		assert.ErrorContains(t, err, "target size must be positive")
	}
}

func TestPaintDryRun(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "black.png")
	writeImage(t, imagePath, color.Black)

	opts := paintOptions{
		image:    imagePath,
		widthIn:  1,
		heightIn: 1,
		dpi:      24,
		tickHz:   30,
		strategy: homography.StrategyCorners,
		pairs:    4,
		dbPath:   filepath.Join(dir, "paintbrush.db"),
		dryRun:   true,
	}
	require.NoError(t, runPaint(context.Background(), opts))

	database, err := db.NewDB(opts.dbPath)
	require.NoError(t, err)
	defer database.Close()
	sessions, err := database.Sessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, imagePath, s.Image)
	assert.Equal(t, 24, s.CanvasWidth)
	assert.NotNil(t, s.EndedAt)
	assert.Positive(t, s.Ticks)
	assert.Positive(t, s.FramesFired)
}

func TestPaintFromDBNeedsDB(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "white.png")
	writeImage(t, imagePath, color.White)

	err := runPaint(context.Background(), paintOptions{
		image:    imagePath,
		widthIn:  1,
		heightIn: 1,
		dpi:      8,
		fromDB:   true,
		dryRun:   true,
	})
	assert.ErrorContains(t, err, "--from-db needs --db")
}

func TestPaintMissingImage(t *testing.T) {
	err := runPaint(context.Background(), paintOptions{
		image:    filepath.Join(t.TempDir(), "missing.png"),
		widthIn:  1,
		heightIn: 1,
		dpi:      8,
		dryRun:   true,
	})
	assert.Error(t, err)
}
