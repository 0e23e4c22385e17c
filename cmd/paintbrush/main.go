// Command paintbrush calibrates a camera against a canvas and drives an ink
// cartridge shield from the position of an IR-lit hand-held print head.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := NewCommand().Execute(); err != nil {
		logrus.Debugf("exiting: %v", err)
		os.Exit(1)
	}
}
