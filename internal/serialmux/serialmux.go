// Package serialmux drives the cartridge shield over a serial port. Frames are
// written from a single sender while any number of subscribers can watch the
// lines the firmware echoes back.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"tailscale.com/tsweb"

	"github.com/banshee-data/paintbrush/internal/frame"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// SerialMux writes nozzle frames to a single serial port and fans out the
// lines read back from it.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex

	sendMu    sync.Mutex
	sent      uint64
	lastFrame frame.Frame

	closing   bool
	closingMu sync.Mutex
}

// SerialMuxInterface is satisfied by the real and disabled muxes.
type SerialMuxInterface interface {
	// Subscribe returns a channel of lines read from the port and an ID for
	// Unsubscribe.
	Subscribe() (string, chan string)
	Unsubscribe(string)
	// SendFrame writes one 6-byte frame.
	SendFrame(frame.Frame) error
	// Monitor reads lines until ctx is done or the port is exhausted.
	Monitor(context.Context) error
	Stats() Stats
	Close() error

	// AttachAdminRoutes registers debug endpoints under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// Stats summarises what has been written to the port.
type Stats struct {
	FramesSent uint64 `json:"frames_sent"`
	LastFrame  string `json:"last_frame"`
}

// NewSerialMux wraps port. Call Monitor to start reading lines.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendFrame writes f to the port. A short write is reported as ErrWriteFailed.
func (s *SerialMux[T]) SendFrame(f frame.Frame) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	b := f.Bytes()
	n, err := s.port.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return ErrWriteFailed
	}
	s.sent++
	s.lastFrame = f
	return nil
}

func (s *SerialMux[T]) Stats() Stats {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	st := Stats{FramesSent: s.sent}
	if s.sent > 0 {
		st.LastFrame = s.lastFrame.String()
	}
	return st
}

// Monitor reads lines from the port and offers each to every subscriber.
// Slow subscribers miss lines rather than stall the reader.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachRoutes(mux, s)
}

// attachRoutes registers the shared debug endpoints for any mux.
func attachRoutes(mux *http.ServeMux, s SerialMuxInterface) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("shield", "cartridge shield frame counters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Stats())
	})

	// POST hex=C0xxxxxxxxxx writes one raw frame, e.g. to prime a nozzle.
	debug.HandleSilentFunc("send-frame-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f, err := parseFrameHex(r.FormValue("hex"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SendFrame(f); err != nil {
			http.Error(w, "Failed to write frame", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote frame %s to serial port", f))
	})

	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		flusher, _ := w.(http.Flusher)
		w.Write([]byte(": ping\n\n"))
		if flusher != nil {
			flusher.Flush()
		}

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})
}

func parseFrameHex(s string) (frame.Frame, error) {
	var f frame.Frame
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return f, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != frame.Size {
		return f, fmt.Errorf("frame must be %d bytes, got %d", frame.Size, len(b))
	}
	copy(f[:], b)
	if _, err := frame.Decode(f); err != nil {
		return f, err
	}
	return f, nil
}
