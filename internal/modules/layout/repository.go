package layout

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/coffersys/coffer/internal/database"
)

const insertRunQuery = `
	INSERT INTO optimization_runs (
		id, created_at,
		ceiling_length_mm, ceiling_width_mm, perimeter_gap_mm, panel_gap_mm,
		target_aspect_ratio, max_panel_size_mm,
		panels_x, panels_y, total_panels,
		panel_width_mm, panel_height_mm, aspect_ratio, coverage_sqm,
		iterations, execution_time_ms, fitness, history
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRunColumns = `
	id, created_at,
	ceiling_length_mm, ceiling_width_mm, perimeter_gap_mm, panel_gap_mm,
	target_aspect_ratio, max_panel_size_mm,
	panels_x, panels_y, total_panels,
	panel_width_mm, panel_height_mm, aspect_ratio, coverage_sqm,
	iterations, execution_time_ms, fitness, history`

// Repository persists optimization runs in the runs database.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new runs repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "layout_runs").Logger(),
	}
}

// Save stores a single completed run.
func (r *Repository) Save(run *Run) error {
	history, err := encodeHistory(run.History)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(insertRunQuery, runArgs(run, history)...)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	r.log.Debug().Str("run_id", run.ID).Int("total_panels", run.Result.TotalPanels).Msg("Run saved")
	return nil
}

// SaveBatch stores a group of runs atomically. Either every run in the batch
// is recorded or none are.
func (r *Repository) SaveBatch(runs []*Run) error {
	if len(runs) == 0 {
		return nil
	}

	err := database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		for _, run := range runs {
			history, err := encodeHistory(run.History)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(insertRunQuery, runArgs(run, history)...); err != nil {
				return fmt.Errorf("failed to save run %s: %w", run.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("count", len(runs)).Msg("Run batch saved")
	return nil
}

// GetByID fetches a single run. Returns ErrRunNotFound when no row exists.
func (r *Repository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		"SELECT "+selectRunColumns+" FROM optimization_runs WHERE id = ?", id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (r *Repository) ListRecent(limit int) ([]*Run, error) {
	rows, err := r.db.Query(
		"SELECT "+selectRunColumns+" FROM optimization_runs ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes runs created before the cutoff and reports how many
// rows were deleted.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		"DELETE FROM optimization_runs WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return deleted, nil
}

// Count returns the total number of stored runs.
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM optimization_runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

func runArgs(run *Run, history []byte) []interface{} {
	return []interface{}{
		run.ID, run.CreatedAt.UnixMilli(),
		run.Request.CeilingLengthMM, run.Request.CeilingWidthMM,
		run.Request.PerimeterGapMM, run.Request.PanelGapMM,
		run.Request.TargetAspectRatio, run.Request.MaxPanelSizeMM,
		run.Result.PanelsX, run.Result.PanelsY, run.Result.TotalPanels,
		run.Result.PanelWidthMM, run.Result.PanelHeightMM,
		run.Result.AspectRatio, run.Result.CoverageSQM,
		run.Result.OptimizationIterations, run.Result.ExecutionTimeMS, run.Result.Fitness,
		history,
	}
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run       Run
		createdAt int64
		history   []byte
	)

	err := s.Scan(
		&run.ID, &createdAt,
		&run.Request.CeilingLengthMM, &run.Request.CeilingWidthMM,
		&run.Request.PerimeterGapMM, &run.Request.PanelGapMM,
		&run.Request.TargetAspectRatio, &run.Request.MaxPanelSizeMM,
		&run.Result.PanelsX, &run.Result.PanelsY, &run.Result.TotalPanels,
		&run.Result.PanelWidthMM, &run.Result.PanelHeightMM,
		&run.Result.AspectRatio, &run.Result.CoverageSQM,
		&run.Result.OptimizationIterations, &run.Result.ExecutionTimeMS, &run.Result.Fitness,
		&history,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt = time.UnixMilli(createdAt).UTC()

	if len(history) > 0 {
		if err := msgpack.Unmarshal(history, &run.History); err != nil {
			return nil, fmt.Errorf("failed to decode history for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func encodeHistory(history []float64) ([]byte, error) {
	if len(history) == 0 {
		return nil, nil
	}
	encoded, err := msgpack.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode convergence history: %w", err)
	}
	return encoded, nil
}
