package serialmux

import (
	"context"
	"net/http"
	"sync"

	"github.com/banshee-data/paintbrush/internal/frame"
	"github.com/banshee-data/paintbrush/internal/monitoring"
)

// DisabledSerialMux stands in for the shield on --dry-run. Frames are decoded
// and logged at debug level instead of written. Subscriber channels are still
// tracked so Close unblocks readers.
type DisabledSerialMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
	sent        uint64
	lastFrame   frame.Frame
}

// NewDisabledSerialMux returns a mux that accepts frames without a port.
func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{
		subscribers: make(map[string]chan string),
	}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

func (d *DisabledSerialMux) SendFrame(f frame.Frame) error {
	bank, err := frame.Decode(f)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.sent++
	d.lastFrame = f
	d.mu.Unlock()
	if !bank.Zero() {
		monitoring.Debugf("dry-run frame %s levels %v", f, bank)
	}
	return nil
}

func (d *DisabledSerialMux) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Stats{FramesSent: d.sent}
	if d.sent > 0 {
		st.LastFrame = d.lastFrame.String()
	}
	return st
}

func (d *DisabledSerialMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	attachRoutes(mux, d)
}
