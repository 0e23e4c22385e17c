package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

var ErrNotFound = errors.New("not found")

// Calibration is a solved camera-to-canvas transform.
type Calibration struct {
	ID        int64
	Name      string
	Strategy  string
	Pairs     int
	Transform geometry.Transform
	RMSError  float64
	CreatedAt time.Time
}

// RecordCalibration stores c and returns its ID. The matrix is kept as a JSON
// array of nine row-major values.
func (db *DB) RecordCalibration(c Calibration) (int64, error) {
	v := c.Transform.Values()
	matrix, err := json.Marshal(v[:])
	if err != nil {
		return 0, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	res, err := db.Exec(
		`INSERT INTO calibrations (name, strategy, pairs, matrix, rms_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Strategy, c.Pairs, string(matrix), c.RMSError, c.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record calibration: %w", err)
	}
	return res.LastInsertId()
}

// LatestCalibration returns the most recent calibration, optionally limited
// to those with the given name. ErrNotFound when there is none.
func (db *DB) LatestCalibration(name string) (Calibration, error) {
	q := `SELECT id, name, strategy, pairs, matrix, rms_error, created_at
		FROM calibrations`
	var args []any
	if name != "" {
		q += ` WHERE name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var (
		c      Calibration
		matrix string
	)
	err := db.QueryRow(q, args...).Scan(&c.ID, &c.Name, &c.Strategy, &c.Pairs, &matrix, &c.RMSError, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}

	var v []float64
	if err := json.Unmarshal([]byte(matrix), &v); err != nil {
		return c, fmt.Errorf("calibration %d: bad matrix: %w", c.ID, err)
	}
	if len(v) != 9 {
		return c, fmt.Errorf("calibration %d: matrix has %d values, want 9", c.ID, len(v))
	}
	c.Transform = geometry.FromValues([9]float64(v))
	return c, nil
}
