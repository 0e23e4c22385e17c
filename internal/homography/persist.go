package homography

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

type transformFile struct {
	Matrix [3][3]float64 `json:"matrix"`
}

// SaveTransform writes t as a row-major 3x3 JSON matrix.
func SaveTransform(path string, t geometry.Transform) error {
	data, err := json.MarshalIndent(transformFile{Matrix: t.M}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write transform: %w", err)
	}
	return nil
}

// LoadTransform reads a matrix written by SaveTransform.
func LoadTransform(path string) (geometry.Transform, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return geometry.Transform{}, fmt.Errorf("failed to read transform: %w", err)
	}
	var f transformFile
	if err := json.Unmarshal(data, &f); err != nil {
		return geometry.Transform{}, fmt.Errorf("failed to parse transform %s: %w", path, err)
	}
	return geometry.Transform{M: f.Matrix}, nil
}
