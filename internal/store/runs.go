package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sandquake/internal/coords"
	"sandquake/internal/frames"
)

// Status is the lifecycle of a stored run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the metadata row of one simulation. Blobs are fetched separately.
type Run struct {
	ID         string              `json:"id"`
	Status     Status              `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Steps      int                 `json:"steps"`
	TimeStep   float64             `json:"time_step"`
	Stride     int                 `json:"stride"`
	FrameCount int                 `json:"frame_count"`
	Peak       float64             `json:"peak"`
	Sources    []coords.Coordinate `json:"sources"`
	Obstacles  []coords.Coordinate `json:"obstacles"`
	Config     json.RawMessage     `json:"config,omitempty"`
	Backend    string              `json:"backend,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Outcome is everything a finished simulation hands back for storage.
type Outcome struct {
	Steps     int
	TimeStep  float64
	Sources   []coords.Coordinate
	Obstacles []coords.Coordinate
	Backend   string
	Cube      *frames.Cube
	Trace     []byte
}

// CreateRun inserts a pending run with its source image. An empty ID is
// filled with a fresh UUID.
func (s *Store) CreateRun(ctx context.Context, run *Run, image []byte) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now
	if run.Status == "" {
		run.Status = StatusPending
	}
	if len(run.Config) == 0 {
		run.Config = json.RawMessage("{}")
	}
	src, obs, err := encodeCoords(run.Sources, run.Obstacles)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, created_at, updated_at, sources, obstacles, config, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, now.UnixNano(), now.UnixNano(), src, obs, string(run.Config), image)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// SetStatus moves a run to status. msg is stored as the error text.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, msg string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		status, msg, time.Now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	return expectRow(res, id)
}

// Complete stores the outcome of a run and marks it completed. Frames and
// metadata are written in one transaction.
func (s *Store) Complete(ctx context.Context, id string, out Outcome) error {
	cube := out.Cube
	if cube == nil {
		return errors.New("complete run: missing frames")
	}
	src, obs, err := encodeCoords(out.Sources, out.Obstacles)
	if err != nil {
		return err
	}
	return s.Transaction(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE runs SET status = ?, updated_at = ?, width = ?, height = ?, steps = ?,
				time_step = ?, stride = ?, frame_count = ?, peak = ?, sources = ?,
				obstacles = ?, backend = ?, error = '', trace = ?
			WHERE id = ?`,
			StatusCompleted, time.Now().UTC().UnixNano(), cube.Width, cube.Height, out.Steps,
			out.TimeStep, cube.Stride, cube.Len(), cube.Scale, src, obs, out.Backend, out.Trace, id)
		if err != nil {
			return fmt.Errorf("failed to complete run %s: %w", id, err)
		}
		if err := expectRow(res, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM frames WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear frames: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO frames (run_id, idx, step, data) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare frame insert: %w", err)
		}
		defer stmt.Close()
		for i, f := range cube.Frames {
			if _, err := stmt.ExecContext(ctx, id, i, cube.Indices[i], EncodeFrame(f)); err != nil {
				return fmt.Errorf("failed to store frame %d: %w", i, err)
			}
		}
		return nil
	})
}

const runColumns = `id, status, created_at, updated_at, width, height, steps, time_step,
	stride, frame_count, peak, sources, obstacles, config, backend, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run              Run
		created, updated int64
		src, obs, cfg    string
	)
	err := row.Scan(&run.ID, &run.Status, &created, &updated, &run.Width, &run.Height,
		&run.Steps, &run.TimeStep, &run.Stride, &run.FrameCount, &run.Peak,
		&src, &obs, &cfg, &run.Backend, &run.Error)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	run.UpdatedAt = time.Unix(0, updated).UTC()
	run.Config = json.RawMessage(cfg)
	if err := json.Unmarshal([]byte(src), &run.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if err := json.Unmarshal([]byte(obs), &run.Obstacles); err != nil {
		return nil, fmt.Errorf("decode obstacles: %w", err)
	}
	return &run, nil
}

// GetRun returns the run with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Image returns the source image stored with the run.
func (s *Store) Image(ctx context.Context, id string) ([]byte, error) {
	return s.blob(ctx, "image", id)
}

// Trace returns the receiver trace WAV of a completed run.
func (s *Store) Trace(ctx context.Context, id string) ([]byte, error) {
	return s.blob(ctx, "trace", id)
}

func (s *Store) blob(ctx context.Context, column, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT "+column+" FROM runs WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", column, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("run %s has no %s: %w", id, column, ErrNotFound)
	}
	return data, nil
}

// Frame loads one stored frame as a single-frame cube ready for compositing.
func (s *Store) Frame(ctx context.Context, id string, idx int) (*frames.Cube, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	var (
		step int
		blob []byte
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT step, data FROM frames WHERE run_id = ? AND idx = ?", id, idx).Scan(&step, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s frame %d: %w", id, idx, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	values, err := DecodeFrame(blob)
	if err != nil {
		return nil, err
	}
	if len(values) != run.Width*run.Height {
		return nil, fmt.Errorf("frame %d holds %d cells, want %dx%d", idx, len(values), run.Width, run.Height)
	}
	return &frames.Cube{
		Width:   run.Width,
		Height:  run.Height,
		Stride:  run.Stride,
		Indices: []int{step},
		Scale:   run.Peak,
		Frames:  [][]float64{values},
	}, nil
}

// DeleteRun removes a run and its frames.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM frames WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete frames: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		return expectRow(res, id)
	})
}

// FailInterrupted marks runs left pending or running by a previous process
// as failed. It returns how many were changed.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE status IN (?, ?)",
		StatusFailed, "interrupted by shutdown", time.Now().UTC().UnixNano(), StatusPending, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to reset runs: %w", err)
	}
	return res.RowsAffected()
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

func encodeCoords(sources, obstacles []coords.Coordinate) (string, string, error) {
	if sources == nil {
		sources = []coords.Coordinate{}
	}
	if obstacles == nil {
		obstacles = []coords.Coordinate{}
	}
	src, err := json.Marshal(sources)
	if err != nil {
		return "", "", err
	}
	obs, err := json.Marshal(obstacles)
	if err != nil {
		return "", "", err
	}
	return string(src), string(obs), nil
}
