package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session records one painting run.
type Session struct {
	ID            string
	Image         string
	CalibrationID *int64
	CanvasWidth   int
	CanvasHeight  int
	StartedAt     time.Time
	EndedAt       *time.Time
	Ticks         uint64
	FramesFired   uint64
}

// StartSession inserts s with a fresh ID and returns the ID.
func (db *DB) StartSession(s Session) (string, error) {
	s.ID = uuid.NewString()
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO paint_sessions (id, image, calibration_id, canvas_width, canvas_height, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Image, s.CalibrationID, s.CanvasWidth, s.CanvasHeight, s.StartedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return s.ID, nil
}

// FinishSession stamps the end time and final counters on a session.
func (db *DB) FinishSession(id string, ended time.Time, ticks, framesFired uint64) error {
	res, err := db.Exec(
		`UPDATE paint_sessions SET ended_at = ?, ticks = ?, frames_fired = ? WHERE id = ?`,
		ended.UTC(), ticks, framesFired, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// Sessions returns up to limit sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	rows, err := db.Query(
		`SELECT id, image, calibration_id, canvas_width, canvas_height, started_at, ended_at, ticks, frames_fired
		FROM paint_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s     Session
			calID sql.NullInt64
			ended sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Image, &calID, &s.CanvasWidth, &s.CanvasHeight,
			&s.StartedAt, &ended, &s.Ticks, &s.FramesFired); err != nil {
			return nil, err
		}
		if calID.Valid {
			s.CalibrationID = &calID.Int64
		}
		if ended.Valid {
			s.EndedAt = &ended.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
