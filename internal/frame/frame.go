// Package frame encodes nozzle levels into the cartridge shield's 6-byte
// command.
//
// Each byte carries two levels, three bits each: the even nozzle in bits 3-5
// and the odd nozzle in bits 0-2. The first byte also carries the 0xC0 start
// marker in its top two bits so the firmware can resynchronise.
package frame

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/banshee-data/paintbrush/internal/nozzle"
)

const (
	// Size is the encoded length in bytes.
	Size = nozzle.Count / 2
	// Header marks the first byte of a frame.
	Header byte = 0xC0

	headerMask byte = 0xC0
	levelMask  byte = 0x07
)

// Decode errors.
var (
	ErrBadHeader  = errors.New("frame header missing")
	ErrLevelRange = errors.New("nozzle level out of range")
)

// Frame is one encoded command.
type Frame [Size]byte

// Encode packs a bank. Levels must already be in [0, nozzle.MaxLevel].
func Encode(b nozzle.Bank) Frame {
	var f Frame
	f[0] = Header
	for i := range Size {
		f[i] |= b[2*i]<<3 | b[2*i+1]
	}
	return f
}

// Decode unpacks a frame produced by Encode.
func Decode(f Frame) (nozzle.Bank, error) {
	var b nozzle.Bank
	if f[0]&headerMask != Header {
		return b, fmt.Errorf("%w: first byte %#02x", ErrBadHeader, f[0])
	}
	for i := range Size {
		v := f[i]
		if i == 0 {
			v &^= headerMask
		}
		hi, lo := (v>>3)&levelMask, v&levelMask
		if hi > nozzle.MaxLevel || lo > nozzle.MaxLevel {
			return b, fmt.Errorf("%w: byte %d is %#02x", ErrLevelRange, i, f[i])
		}
		b[2*i], b[2*i+1] = hi, lo
	}
	return b, nil
}

// Bytes returns the frame as a slice for writing.
func (f Frame) Bytes() []byte {
	return f[:]
}

func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}
