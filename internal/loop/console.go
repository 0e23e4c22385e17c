package loop

import (
	"bufio"
	"context"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/raster"
)

// LogDisplay reports calibration targets and brush movement through the log
// for runs without a window.
type LogDisplay struct {
	mu         sync.Mutex
	target     geometry.Point2D
	haveTarget bool
	cell       image.Point
	onCanvas   bool
}

func (d *LogDisplay) ShowCalibration(_ image.Image, target geometry.Point2D) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.haveTarget && d.target == target {
		return nil
	}
	d.target, d.haveTarget = target, true
	monitoring.Logf("calibration target %v", target)
	return nil
}

// ShowCanvas logs when the brush enters, leaves or moves across the canvas.
func (d *LogDisplay) ShowCanvas(_ *raster.Raster, pos geometry.Point2D, ok bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cell := image.Pt(int(pos.X), int(pos.Y))
	if ok == d.onCanvas && (!ok || cell == d.cell) {
		return nil
	}
	d.onCanvas, d.cell = ok, cell
	if !ok {
		monitoring.Debugf("brush off canvas")
		return nil
	}
	monitoring.Debugf("brush at %v", cell)
	return nil
}

// LineInput turns lines from a reader into actions: an empty line advances,
// "s" skips, "f" finishes and "q" quits. Unknown lines also advance.
type LineInput struct {
	actions chan Action
}

// NewLineInput reads r until EOF or ctx is done. EOF is reported as a quit.
func NewLineInput(ctx context.Context, r io.Reader) *LineInput {
	in := &LineInput{actions: make(chan Action, 16)}
	go func() {
		scan := bufio.NewScanner(r)
		for scan.Scan() {
			select {
			case in.actions <- ParseAction(scan.Text()):
			case <-ctx.Done():
				return
			}
		}
		select {
		case in.actions <- ActionQuit:
		case <-ctx.Done():
		}
	}()
	return in
}

// Poll drains the actions read since the last call without blocking.
func (in *LineInput) Poll() []Action {
	var out []Action
	for {
		select {
		case a := <-in.actions:
			out = append(out, a)
		default:
			return out
		}
	}
}

// ParseAction maps a console line to an action.
func ParseAction(line string) Action {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "skip":
		return ActionSkip
	case "f", "finish":
		return ActionFinish
	case "q", "quit", "exit":
		return ActionQuit
	}
	return ActionAdvance
}

// ScriptInput replays one slice of actions per poll and quits once the
// script is exhausted. Dry runs use it in place of an operator.
type ScriptInput struct {
	mu    sync.Mutex
	ticks [][]Action
}

// NewScriptInput returns the actions for each tick in order.
func NewScriptInput(ticks ...[]Action) *ScriptInput {
	return &ScriptInput{ticks: ticks}
}

func (s *ScriptInput) Poll() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ticks) == 0 {
		return []Action{ActionQuit}
	}
	a := s.ticks[0]
	s.ticks = s.ticks[1:]
	return a
}
