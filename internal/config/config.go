// Package config loads the paintbrush settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is where the CLI looks when --config is not given.
const DefaultConfigPath = "config/paintbrush.json"

// Config is the JSON settings file. Every field is optional; the Get*
// accessors supply defaults for anything left out.
type Config struct {
	// Canvas
	CanvasWidthIn  *float64 `json:"canvas_width_in,omitempty"`
	CanvasHeightIn *float64 `json:"canvas_height_in,omitempty"`
	DotsPerInch    *int     `json:"dots_per_inch,omitempty"`

	// Control loop
	TickRateHz *float64 `json:"tick_rate_hz,omitempty"`

	// Cartridge shield serial link
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`
	DataBits   *int    `json:"data_bits,omitempty"`
	StopBits   *int    `json:"stop_bits,omitempty"`
	Parity     *string `json:"parity,omitempty"`

	// Camera blob tracking
	CameraDevice  *int `json:"camera_device,omitempty"`
	BlobThreshold *int `json:"blob_threshold,omitempty"`
	MinBlobArea   *int `json:"min_blob_area,omitempty"`

	// Calibration
	CalibrationStrategy *string `json:"calibration_strategy,omitempty"`
	CalibrationPairs    *int    `json:"calibration_pairs,omitempty"`
	DisplayWidth        *int    `json:"display_width,omitempty"`
	DisplayHeight       *int    `json:"display_height,omitempty"`
	TransformPath       *string `json:"transform_path,omitempty"`
}

// Empty returns a config with every field unset.
func Empty() *Config {
	return &Config{}
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.CanvasWidthIn != nil && *c.CanvasWidthIn <= 0 {
		return fmt.Errorf("canvas_width_in must be positive, got %f", *c.CanvasWidthIn)
	}
	if c.CanvasHeightIn != nil && *c.CanvasHeightIn <= 0 {
		return fmt.Errorf("canvas_height_in must be positive, got %f", *c.CanvasHeightIn)
	}
	if c.DotsPerInch != nil && *c.DotsPerInch <= 0 {
		return fmt.Errorf("dots_per_inch must be positive, got %d", *c.DotsPerInch)
	}
	if c.TickRateHz != nil && (*c.TickRateHz <= 0 || *c.TickRateHz > 1000) {
		return fmt.Errorf("tick_rate_hz must be in (0, 1000], got %f", *c.TickRateHz)
	}
	if c.BlobThreshold != nil && (*c.BlobThreshold < 0 || *c.BlobThreshold > 255) {
		return fmt.Errorf("blob_threshold must be between 0 and 255, got %d", *c.BlobThreshold)
	}
	if c.MinBlobArea != nil && *c.MinBlobArea < 1 {
		return fmt.Errorf("min_blob_area must be at least 1, got %d", *c.MinBlobArea)
	}
	if c.CalibrationStrategy != nil {
		switch *c.CalibrationStrategy {
		case "corners", "scatter":
		default:
			return fmt.Errorf("calibration_strategy must be corners or scatter, got %q", *c.CalibrationStrategy)
		}
	}
	if c.CalibrationPairs != nil && *c.CalibrationPairs < 4 {
		return fmt.Errorf("calibration_pairs must be at least 4, got %d", *c.CalibrationPairs)
	}
	if c.DisplayWidth != nil && *c.DisplayWidth <= 0 {
		return fmt.Errorf("display_width must be positive, got %d", *c.DisplayWidth)
	}
	if c.DisplayHeight != nil && *c.DisplayHeight <= 0 {
		return fmt.Errorf("display_height must be positive, got %d", *c.DisplayHeight)
	}
	return nil
}

func (c *Config) GetCanvasWidthIn() float64 {
	if c.CanvasWidthIn == nil {
		return 6.0
	}
	return *c.CanvasWidthIn
}

func (c *Config) GetCanvasHeightIn() float64 {
	if c.CanvasHeightIn == nil {
		return 8.0
	}
	return *c.CanvasHeightIn
}

// GetDotsPerInch returns the cartridge dot pitch, 96 by default.
func (c *Config) GetDotsPerInch() int {
	if c.DotsPerInch == nil {
		return 96
	}
	return *c.DotsPerInch
}

func (c *Config) GetTickRateHz() float64 {
	if c.TickRateHz == nil {
		return 30
	}
	return *c.TickRateHz
}

func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the shield's baud rate, 115200 by default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetDataBits returns 0 when unset so the serial layer applies its default.
func (c *Config) GetDataBits() int {
	if c.DataBits == nil {
		return 0
	}
	return *c.DataBits
}

func (c *Config) GetStopBits() int {
	if c.StopBits == nil {
		return 0
	}
	return *c.StopBits
}

func (c *Config) GetParity() string {
	if c.Parity == nil {
		return ""
	}
	return *c.Parity
}

func (c *Config) GetCameraDevice() int {
	if c.CameraDevice == nil {
		return 0
	}
	return *c.CameraDevice
}

// GetBlobThreshold returns the grey level above which a pixel counts as part
// of the infrared blob.
func (c *Config) GetBlobThreshold() int {
	if c.BlobThreshold == nil {
		return 191
	}
	return *c.BlobThreshold
}

// GetMinBlobArea returns the smallest blob, in pixels, that is not noise.
func (c *Config) GetMinBlobArea() int {
	if c.MinBlobArea == nil {
		return 100
	}
	return *c.MinBlobArea
}

func (c *Config) GetCalibrationStrategy() string {
	if c.CalibrationStrategy == nil {
		return "corners"
	}
	return *c.CalibrationStrategy
}

func (c *Config) GetCalibrationPairs() int {
	if c.CalibrationPairs == nil {
		return 4
	}
	return *c.CalibrationPairs
}

func (c *Config) GetDisplayWidth() int {
	if c.DisplayWidth == nil {
		return 1280
	}
	return *c.DisplayWidth
}

func (c *Config) GetDisplayHeight() int {
	if c.DisplayHeight == nil {
		return 800
	}
	return *c.DisplayHeight
}

func (c *Config) GetTransformPath() string {
	if c.TransformPath == nil || *c.TransformPath == "" {
		return "homography.json"
	}
	return *c.TransformPath
}
