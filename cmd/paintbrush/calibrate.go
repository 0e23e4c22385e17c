package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/banshee-data/paintbrush/internal/db"
	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/homography"
	"github.com/banshee-data/paintbrush/internal/loop"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/report"
	"github.com/banshee-data/paintbrush/internal/sensor"
)

type calibrateOptions struct {
	strategy string
	pairs    int
	width    int
	height   int
	out      string
	plot     string
	dbPath   string
	name     string
	camera   int
	dryRun   bool
	headless bool
}

// NewCalibrateCommand runs the standalone camera-to-display calibrator.
func NewCalibrateCommand() *cobra.Command {
	opts := calibrateOptions{}
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate the camera against a display and save the homography",
		Long: `Shows a target on the display for each calibration point. Hold the brush
light over the target and press a key to capture it. With the scatter strategy
press s to skip a target and f to solve with the points captured so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("strategy") {
				opts.strategy = cfg.GetCalibrationStrategy()
			}
			if !flags.Changed("pairs") {
				opts.pairs = cfg.GetCalibrationPairs()
			}
			if !flags.Changed("width") {
				opts.width = cfg.GetDisplayWidth()
			}
			if !flags.Changed("height") {
				opts.height = cfg.GetDisplayHeight()
			}
			if !flags.Changed("out") {
				opts.out = cfg.GetTransformPath()
			}
			if !flags.Changed("camera") {
				opts.camera = cfg.GetCameraDevice()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runCalibrate(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.strategy, "strategy", homography.StrategyCorners, "calibration strategy (corners, scatter)")
	flags.IntVar(&opts.pairs, "pairs", homography.MinPairs, "points to capture before solving")
	flags.IntVar(&opts.width, "width", 1280, "display width in pixels")
	flags.IntVar(&opts.height, "height", 800, "display height in pixels")
	flags.StringVarP(&opts.out, "out", "o", "homography.json", "where to save the transform")
	flags.StringVar(&opts.plot, "plot", "", "save a residual plot PNG here")
	flags.StringVar(&opts.dbPath, "db", "", "record the calibration in this sqlite database")
	flags.StringVar(&opts.name, "name", "", "label for the recorded calibration")
	flags.IntVar(&opts.camera, "camera", 0, "camera device index")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "simulate the camera and key presses")
	flags.BoolVar(&opts.headless, "headless", false, "no window: log targets and read keys from stdin")
	return cmd
}

func runCalibrate(ctx context.Context, opts calibrateOptions) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("target size must be positive, got %dx%d", opts.width, opts.height)
	}
	strategy, ok := homography.New(opts.strategy, opts.width, opts.height)
	if !ok {
		return fmt.Errorf("unknown calibration strategy %q", opts.strategy)
	}

	var l *loop.Loop
	var dev devices
	if opts.dryRun {
		dev = dryRunDevices(dryRunCalibrationSource(strategy, func() geometry.Point2D { return l.Candidate() }),
			advanceEvery(opts.pairs*2)...)
	} else {
		var err error
		dev, err = openDevices(ctx, cameraOptions{
			device:     opts.camera,
			threshold:  cfg.GetBlobThreshold(),
			minArea:    cfg.GetMinBlobArea(),
			title:      "paintbrush calibrate",
			headless:   opts.headless,
			width:      opts.width,
			height:     opts.height,
			fullscreen: true,
		})
		if err != nil {
			return err
		}
	}
	defer dev.Close()

	var err error
	l, err = loop.New(loop.Config{
		Source:               dev.source,
		Display:              dev.display,
		Input:                dev.input,
		Strategy:             strategy,
		TickHz:               cfg.GetTickRateHz(),
		CalibrationPairs:     opts.pairs,
		StopAfterCalibration: true,
		Limiter:              dryRunLimiter(opts.dryRun),
	})
	if err != nil {
		return err
	}

	t, err := l.Run(ctx)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	return saveCalibration(t, strategy, opts)
}

func saveCalibration(t geometry.Transform, strategy homography.Strategy, opts calibrateOptions) error {
	pairs := strategy.Pairs()
	rms, err := homography.ReprojectionError(t, pairs)
	if err != nil {
		return err
	}
	fmt.Println(t)

	if err := homography.SaveTransform(opts.out, t); err != nil {
		return err
	}
	monitoring.Logf("saved transform to %s", opts.out)

	if opts.plot != "" {
		if err := report.SavePNG(opts.plot, t, pairs); err != nil {
			return err
		}
		monitoring.Logf("saved residual plot to %s", opts.plot)
	}

	if opts.dbPath != "" {
		database, err := db.NewDB(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		id, err := database.RecordCalibration(db.Calibration{
			Name:      opts.name,
			Strategy:  strategy.Name(),
			Pairs:     len(pairs),
			Transform: t,
			RMSError:  rms,
		})
		if err != nil {
			return err
		}
		monitoring.Logf("recorded calibration %d", id)
	}
	return nil
}

// dryRunCalibrationSource fakes the camera for a dry run. Fixed corners
// replay a bench recording; other strategies see the target through a
// fixed skew.
func dryRunCalibrationSource(strategy homography.Strategy, candidate func() geometry.Point2D) sensor.Source {
	if strategy.Name() == homography.StrategyCorners {
		return sensor.NewScripted(sensor.FakeCorners...)
	}
	skew := geometry.FromValues([9]float64{0.9, 0.05, 15, -0.02, 0.85, 40, 0, 0.0001, 1})
	return sensor.Func(func() (geometry.Point2D, bool) {
		p, err := skew.Apply(candidate())
		return p, err == nil
	})
}

// advanceEvery scripts n captures, one per tick.
func advanceEvery(n int) [][]loop.Action {
	script := make([][]loop.Action, n)
	for i := range script {
		script[i] = []loop.Action{loop.ActionAdvance}
	}
	return script
}

// dryRunLimiter lets dry runs go as fast as they can.
func dryRunLimiter(dryRun bool) *rate.Limiter {
	if dryRun {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return nil
}
