package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/paintbrush/internal/db"
	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/homography"
	"github.com/banshee-data/paintbrush/internal/loop"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/raster"
	"github.com/banshee-data/paintbrush/internal/sensor"
	"github.com/banshee-data/paintbrush/internal/serialmux"
	"github.com/banshee-data/paintbrush/internal/units"
)

type paintOptions struct {
	image     string
	port      string
	baud      int
	widthIn   float64
	heightIn  float64
	units     string
	dpi       int
	tickHz    float64
	transform string
	saveTo    string
	fromDB    bool
	strategy  string
	pairs     int
	camera    int
	listen    string
	dbPath    string
	dryRun    bool
	headless  bool
}

// NewPaintCommand paints an image with the tracked brush.
func NewPaintCommand() *cobra.Command {
	opts := paintOptions{}
	cmd := &cobra.Command{
		Use:   "paint IMAGE",
		Short: "Paint an image onto the canvas",
		Long: `Loads IMAGE, fits it to the canvas and fires the cartridge wherever the brush
passes over dark areas while moving to the right. Without --transform the four
canvas corners are calibrated first. Press a key to toggle the brush.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.image = args[0]
			flags := cmd.Flags()
			if !flags.Changed("port") {
				opts.port = cfg.GetSerialPort()
			}
			if !flags.Changed("baud") {
				opts.baud = cfg.GetBaudRate()
			}
			if !units.IsValid(opts.units) {
				return fmt.Errorf("unknown unit %q: expected one of %s", opts.units, units.GetValidUnitsString())
			}
			var err error
			if !flags.Changed("width") {
				opts.widthIn = cfg.GetCanvasWidthIn()
			} else if opts.widthIn, err = units.ToInches(opts.widthIn, opts.units); err != nil {
				return err
			}
			if !flags.Changed("height") {
				opts.heightIn = cfg.GetCanvasHeightIn()
			} else if opts.heightIn, err = units.ToInches(opts.heightIn, opts.units); err != nil {
				return err
			}
			if !flags.Changed("dpi") {
				opts.dpi = cfg.GetDotsPerInch()
			}
			if !flags.Changed("tick-hz") {
				opts.tickHz = cfg.GetTickRateHz()
			}
			if !flags.Changed("strategy") {
				opts.strategy = cfg.GetCalibrationStrategy()
			}
			if !flags.Changed("pairs") {
				opts.pairs = cfg.GetCalibrationPairs()
			}
			if !flags.Changed("camera") {
				opts.camera = cfg.GetCameraDevice()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPaint(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.port, "port", "p", "/dev/ttyUSB0", "serial port the shield is on")
	flags.IntVar(&opts.baud, "baud", serialmux.DefaultBaudRate, "serial baud rate")
	flags.Float64VarP(&opts.widthIn, "width", "w", 6.0, "canvas width in inches")
	flags.Float64Var(&opts.heightIn, "height", 8.0, "canvas height in inches")
	flags.StringVar(&opts.units, "units", units.Inch, "units for --width and --height ("+units.GetValidUnitsString()+")")
	flags.IntVar(&opts.dpi, "dpi", raster.DefaultDPI, "canvas pixels per inch")
	flags.Float64Var(&opts.tickHz, "tick-hz", loop.DefaultTickHz, "control loop rate")
	flags.StringVarP(&opts.transform, "transform", "t", "", "load a saved transform instead of calibrating")
	flags.StringVar(&opts.saveTo, "save-transform", "", "save the transform calibrated in this run")
	flags.BoolVar(&opts.fromDB, "from-db", false, "use the latest calibration recorded in --db")
	flags.StringVar(&opts.strategy, "strategy", homography.StrategyCorners, "calibration strategy (corners, scatter)")
	flags.IntVar(&opts.pairs, "pairs", homography.MinPairs, "calibration points to capture")
	flags.IntVar(&opts.camera, "camera", 0, "camera device index")
	flags.StringVar(&opts.listen, "listen", "", "serve debug routes on this address, e.g. localhost:8080")
	flags.StringVar(&opts.dbPath, "db", "", "record the session in this sqlite database")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "no shield or camera: sweep a scripted brush and log frames")
	flags.BoolVar(&opts.headless, "headless", false, "no window: log progress and read keys from stdin")
	return cmd
}

func runPaint(ctx context.Context, opts paintOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, h := raster.CanvasSize(opts.widthIn, opts.heightIn, opts.dpi)
	canvas, err := loadCanvas(opts.image, w, h)
	if err != nil {
		return err
	}
	monitoring.Logf("loaded %s onto a %dx%d canvas", opts.image, w, h)

	var database *db.DB
	if opts.dbPath != "" {
		if database, err = db.NewDB(opts.dbPath); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
	}

	transform, calibrationID, err := initialTransform(opts, database)
	if err != nil {
		return err
	}

	shield, err := openShield(opts)
	if err != nil {
		return err
	}
	defer shield.Close()

	var dev devices
	if opts.dryRun {
		// one key press to lower the brush, then sweep until the script ends
		sweep := sensor.NewSweep(float64(w), float64(h), 4, 12)
		script := make([][]loop.Action, sweep.Remaining()+1)
		script[0] = []loop.Action{loop.ActionAdvance}
		dev = dryRunDevices(sweep, script...)
	} else {
		dev, err = openDevices(ctx, cameraOptions{
			device:    opts.camera,
			threshold: cfg.GetBlobThreshold(),
			minArea:   cfg.GetMinBlobArea(),
			title:     "paintbrush",
			headless:  opts.headless,
			width:     w,
			height:    h,
		})
		if err != nil {
			return err
		}
	}
	defer dev.Close()

	var strategy homography.Strategy
	if transform == nil {
		var ok bool
		if strategy, ok = homography.New(opts.strategy, w, h); !ok {
			return fmt.Errorf("unknown calibration strategy %q", opts.strategy)
		}
	}

	l, err := loop.New(loop.Config{
		Source:           dev.source,
		Display:          dev.display,
		Input:            dev.input,
		Transport:        shield,
		Strategy:         strategy,
		Transform:        transform,
		Canvas:           canvas,
		TickHz:           opts.tickHz,
		CalibrationPairs: opts.pairs,
		Limiter:          dryRunLimiter(opts.dryRun),
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := shield.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("failed to monitor serial port: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := shield.Subscribe()
		defer shield.Unsubscribe(id)
		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				monitoring.Debugf("shield: %s", line)
			case <-ctx.Done():
				return
			}
		}
	}()

	if opts.listen != "" {
		mux := http.NewServeMux()
		l.AttachAdminRoutes(mux)
		shield.AttachAdminRoutes(mux)
		if database != nil {
			if err := database.AttachAdminRoutes(mux, opts.dbPath); err != nil {
				return err
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, opts.listen, mux)
		}()
	}

	var sessionID string
	if database != nil {
		sessionID, err = database.StartSession(db.Session{
			Image:         opts.image,
			CalibrationID: calibrationID,
			CanvasWidth:   w,
			CanvasHeight:  h,
		})
		if err != nil {
			return err
		}
		monitoring.Logf("recording session %s", sessionID)
	}

	_, runErr := l.Run(ctx)

	if sessionID != "" {
		st := l.Status()
		if err := database.FinishSession(sessionID, time.Now(), st.Ticks, st.FramesFired); err != nil {
			monitoring.Logf("failed to finish session %s: %v", sessionID, err)
		}
	}
	if solved, ok := l.Transform(); runErr == nil && ok && transform == nil && opts.saveTo != "" {
		if err := homography.SaveTransform(opts.saveTo, solved); err != nil {
			runErr = err
		} else {
			monitoring.Logf("saved transform to %s", opts.saveTo)
		}
	}

	st := l.Status()
	monitoring.Logf("stopped after %d ticks, fired %d of %d frames", st.Ticks, st.FramesFired, st.FramesSent)

	cancel()
	// a blocked serial read only returns once the port is closed
	shield.Close()
	wg.Wait()
	return runErr
}

func loadCanvas(path string, w, h int) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	canvas, err := raster.Load(f, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return canvas, nil
}

// initialTransform picks a saved transform, if any. A nil transform means
// the run calibrates first.
func initialTransform(opts paintOptions, database *db.DB) (*geometry.Transform, *int64, error) {
	switch {
	case opts.transform != "":
		t, err := homography.LoadTransform(opts.transform)
		if err != nil {
			return nil, nil, err
		}
		monitoring.Logf("loaded transform from %s", opts.transform)
		return &t, nil, nil
	case opts.fromDB:
		if database == nil {
			return nil, nil, errors.New("--from-db needs --db")
		}
		c, err := database.LatestCalibration("")
		if err != nil {
			return nil, nil, fmt.Errorf("no recorded calibration: %w", err)
		}
		monitoring.Logf("using calibration %d from %s", c.ID, c.CreatedAt.Format(time.DateTime))
		return &c.Transform, &c.ID, nil
	case opts.dryRun:
		t := geometry.Identity()
		return &t, nil, nil
	}
	return nil, nil, nil
}

func openShield(opts paintOptions) (serialmux.SerialMuxInterface, error) {
	if opts.dryRun {
		return serialmux.NewDisabledSerialMux(), nil
	}
	portOpts := serialmux.PortOptions{
		BaudRate: opts.baud,
		DataBits: cfg.GetDataBits(),
		StopBits: cfg.GetStopBits(),
		Parity:   cfg.GetParity(),
	}
	mux, err := serialmux.NewRealSerialMux(opts.port, portOpts)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("opened shield on %s at %d baud", opts.port, opts.baud)
	return mux, nil
}

func serveDebug(ctx context.Context, addr string, mux *http.ServeMux) {
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		monitoring.Logf("debug routes on http://%s/debug/", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("debug server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("debug server shutdown error: %v", err)
		server.Close()
	}
}
