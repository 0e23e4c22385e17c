// Package loop runs the paintbrush: it calibrates the camera against the
// canvas, then on every tick maps the brush position and fires the nozzles.
package loop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/banshee-data/paintbrush/internal/frame"
	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/homography"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/nozzle"
	"github.com/banshee-data/paintbrush/internal/raster"
	"github.com/banshee-data/paintbrush/internal/sensor"
	"github.com/banshee-data/paintbrush/internal/timeutil"
)

// DefaultTickHz is the loop rate the shield and camera are paced at.
const DefaultTickHz = 30

// State is the phase the loop is in.
type State int

const (
	StateCalibrating State = iota
	StatePainting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StatePainting:
		return "painting"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Action is an operator input observed during a tick.
type Action int

const (
	ActionNone Action = iota
	// ActionAdvance captures a calibration point, or toggles the brush
	// while painting.
	ActionAdvance
	// ActionSkip asks for a different calibration target.
	ActionSkip
	// ActionFinish solves with the points gathered so far.
	ActionFinish
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAdvance:
		return "advance"
	case ActionSkip:
		return "skip"
	case ActionFinish:
		return "finish"
	case ActionQuit:
		return "quit"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Display shows the operator what the loop is doing.
type Display interface {
	// ShowCalibration shows the sensor frame and where the light should be
	// placed next.
	ShowCalibration(frame image.Image, target geometry.Point2D) error
	// ShowCanvas shows the remaining canvas and the brush, if it is on it.
	ShowCanvas(canvas *raster.Raster, pos geometry.Point2D, ok bool) error
}

// Input returns the actions observed since the previous poll.
type Input interface {
	Poll() []Action
}

// Transport delivers frames to the cartridge shield.
type Transport interface {
	SendFrame(frame.Frame) error
}

// Config holds a loop's collaborators and tuning.
type Config struct {
	Source    sensor.Source
	Display   Display
	Input     Input
	Transport Transport

	// Strategy chooses calibration targets. It may be nil when Transform is
	// set.
	Strategy homography.Strategy

	// Transform, when set, skips calibration.
	Transform *geometry.Transform

	Canvas *raster.Raster
	TickHz float64

	// CalibrationPairs is the number of pairs to gather before solving when
	// the strategy would accept more. Values below 4 mean 4.
	CalibrationPairs int

	// StopAfterCalibration ends Run once a transform is solved.
	StopAfterCalibration bool

	Limiter *rate.Limiter
	Clock   timeutil.Clock
}

// Status is a snapshot of the loop for debug routes and session records.
type Status struct {
	State       string    `json:"state"`
	BrushActive bool      `json:"brush_active"`
	Ticks       uint64    `json:"ticks"`
	FramesSent  uint64    `json:"frames_sent"`
	FramesFired uint64    `json:"frames_fired"`
	Pairs       int       `json:"pairs"`
	LastFrame   string    `json:"last_frame,omitempty"`
	Position    *[2]int   `json:"position,omitempty"`
	Started     time.Time `json:"started"`
	Elapsed     string    `json:"elapsed"`
}

// Loop calibrates the camera against the canvas, then paints at a fixed
// tick rate.
type Loop struct {
	cfg     Config
	limiter *rate.Limiter
	clock   timeutil.Clock
	ctrl    *nozzle.Controller
	pairs   int

	mu          sync.Mutex
	state       State
	brushActive bool
	transform   *geometry.Transform
	candidate   geometry.Point2D
	ticks       uint64
	sent        uint64
	fired       uint64
	lastFrame   frame.Frame
	pos         geometry.Point2D
	posOK       bool
	started     time.Time
}

// New checks cfg and returns a loop. A loop given a Transform starts
// painting; otherwise it starts calibrating.
func New(cfg Config) (*Loop, error) {
	if cfg.Source == nil || cfg.Display == nil || cfg.Input == nil {
		return nil, errors.New("loop needs a source, display and input")
	}
	if cfg.Transform == nil && cfg.Strategy == nil {
		return nil, errors.New("loop needs a calibration strategy or a transform")
	}
	if !cfg.StopAfterCalibration && (cfg.Canvas == nil || cfg.Transport == nil) {
		return nil, errors.New("painting needs a canvas and a transport")
	}

	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultTickHz
	}
	l := &Loop{
		cfg:     cfg,
		limiter: cfg.Limiter,
		clock:   cfg.Clock,
		pairs:   max(cfg.CalibrationPairs, homography.MinPairs),
		state:   StateCalibrating,
	}
	if l.limiter == nil {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.TickHz), 1)
	}
	if l.clock == nil {
		l.clock = timeutil.RealClock{}
	}
	if cfg.Canvas != nil {
		l.ctrl = nozzle.NewController(cfg.Canvas)
	}
	if cfg.Transform != nil {
		t := *cfg.Transform
		l.transform = &t
		l.state = StatePainting
		if cfg.StopAfterCalibration {
			l.state = StateStopped
		}
	}
	return l, nil
}

// Run ticks until the operator quits, ctx is done, or calibration completes
// with StopAfterCalibration set. It returns the solved or supplied transform;
// use Transform to tell a zero result from a solved one.
func (l *Loop) Run(ctx context.Context) (geometry.Transform, error) {
	l.mu.Lock()
	l.started = l.clock.Now()
	calibrating := l.state == StateCalibrating
	l.mu.Unlock()

	if calibrating {
		if err := l.nextCandidate(); err != nil {
			return geometry.Transform{}, err
		}
	}

	for {
		if l.State() == StateStopped {
			return l.result()
		}
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return l.finish(ctx.Err())
			}
			return geometry.Transform{}, err
		}
		if err := l.Tick(); err != nil {
			return geometry.Transform{}, err
		}
	}
}

func (l *Loop) finish(err error) (geometry.Transform, error) {
	l.setState(StateStopped)
	t, rerr := l.result()
	if errors.Is(err, context.Canceled) && rerr == nil {
		return t, nil
	}
	return t, err
}

// result reports the transform at the end of a run. A paint run stopped
// before calibration finished is a clean exit with no transform; a
// calibration-only run has failed.
func (l *Loop) result() (geometry.Transform, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transform == nil {
		if !l.cfg.StopAfterCalibration {
			return geometry.Transform{}, nil
		}
		return geometry.Transform{}, homography.ErrInsufficientData
	}
	return *l.transform, nil
}

// Tick runs one iteration: sensor, output, then operator actions.
func (l *Loop) Tick() error {
	l.mu.Lock()
	l.ticks++
	state := l.state
	l.mu.Unlock()

	img, err := l.cfg.Source.Update()
	if err != nil {
		return fmt.Errorf("sensor update: %w", err)
	}

	switch state {
	case StateCalibrating:
		if err := l.cfg.Display.ShowCalibration(img, l.Candidate()); err != nil {
			return fmt.Errorf("display: %w", err)
		}
	case StatePainting:
		if err := l.paint(); err != nil {
			return err
		}
	}

	for _, a := range l.cfg.Input.Poll() {
		if a == ActionQuit {
			monitoring.Logf("quit requested")
			l.setState(StateStopped)
			return nil
		}
		switch l.State() {
		case StateCalibrating:
			if err := l.calibrate(a); err != nil {
				return err
			}
		case StatePainting:
			if a == ActionAdvance {
				l.mu.Lock()
				l.brushActive = !l.brushActive
				active := l.brushActive
				l.mu.Unlock()
				monitoring.Logf("brush active: %t", active)
			}
		}
	}
	return nil
}

func (l *Loop) paint() error {
	p, ok := l.cfg.Source.Point()
	if ok {
		mapped, err := l.transform.Apply(p)
		if err != nil {
			monitoring.Debugf("dropping sensor point %v: %v", p, err)
			ok = false
		}
		p = mapped
	}
	l.ctrl.UpdatePosition(p, ok)

	l.mu.Lock()
	active := l.brushActive
	l.mu.Unlock()

	var bank nozzle.Bank
	if active && ok {
		bank = l.ctrl.Compute()
	}
	f := frame.Encode(bank)
	if err := l.cfg.Transport.SendFrame(f); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	pos, onCanvas := l.ctrl.Position()
	l.mu.Lock()
	l.sent++
	l.lastFrame = f
	if !bank.Zero() {
		l.fired++
	}
	l.pos, l.posOK = pos, onCanvas
	l.mu.Unlock()

	if err := l.cfg.Display.ShowCanvas(l.ctrl.Canvas(), pos, onCanvas); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

func (l *Loop) calibrate(a Action) error {
	st := l.cfg.Strategy
	switch a {
	case ActionAdvance:
		p, ok := l.cfg.Source.Point()
		if !ok {
			monitoring.Logf("no light seen, hold the brush at %v and try again", l.Candidate())
			return nil
		}
		target := l.Candidate()
		needMore := st.Add(target, p)
		monitoring.Logf("paired target %v with sensor %v", target, p)
		if !needMore && len(st.Pairs()) >= l.pairs {
			return l.solve()
		}
		return l.nextCandidate()
	case ActionSkip:
		return l.nextCandidate()
	case ActionFinish:
		if len(st.Pairs()) < homography.MinPairs {
			monitoring.Logf("need at least %d points to finish, have %d", homography.MinPairs, len(st.Pairs()))
			return nil
		}
		return l.solve()
	}
	return nil
}

// nextCandidate asks the strategy for a new target. A strategy that has run
// out of targets solves with what it has.
func (l *Loop) nextCandidate() error {
	p, ok := l.cfg.Strategy.Next()
	if !ok {
		if len(l.cfg.Strategy.Pairs()) >= homography.MinPairs {
			return l.solve()
		}
		return fmt.Errorf("%w: no calibration targets left", homography.ErrInsufficientData)
	}
	l.mu.Lock()
	l.candidate = p
	l.mu.Unlock()
	monitoring.Logf("calibrating, move the brush to %v and press enter", p)
	return nil
}

func (l *Loop) solve() error {
	t, err := l.cfg.Strategy.Solve()
	if err != nil {
		return err
	}
	if rms, err := homography.ReprojectionError(t, l.cfg.Strategy.Pairs()); err == nil {
		monitoring.Logf("calibrated with %d pairs, rms error %.2f", len(l.cfg.Strategy.Pairs()), rms)
	}

	l.mu.Lock()
	l.transform = &t
	l.state = StatePainting
	if l.cfg.StopAfterCalibration {
		l.state = StateStopped
	}
	l.mu.Unlock()
	if !l.cfg.StopAfterCalibration {
		monitoring.Logf("done calibrating, press enter to start painting")
	}
	return nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// State returns the current phase.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Candidate is the calibration target currently shown.
func (l *Loop) Candidate() geometry.Point2D {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.candidate
}

// Transform returns the calibrated transform, if there is one.
func (l *Loop) Transform() (geometry.Transform, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transform == nil {
		return geometry.Transform{}, false
	}
	return *l.transform, true
}

// Status returns a snapshot for debug routes and session records.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Status{
		State:       l.state.String(),
		BrushActive: l.brushActive,
		Ticks:       l.ticks,
		FramesSent:  l.sent,
		FramesFired: l.fired,
		Started:     l.started,
	}
	if l.cfg.Strategy != nil {
		st.Pairs = len(l.cfg.Strategy.Pairs())
	}
	if l.sent > 0 {
		st.LastFrame = l.lastFrame.String()
	}
	if l.posOK {
		st.Position = &[2]int{int(l.pos.X), int(l.pos.Y)}
	}
	if !l.started.IsZero() {
		st.Elapsed = l.clock.Since(l.started).Round(time.Millisecond).String()
	}
	return st
}
