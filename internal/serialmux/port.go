package serialmux

import "io"

// SerialPorter is the part of a serial port the mux needs. It lets tests run
// without hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}
