package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Begin inserts a running entry for a workflow invocation and returns it.
func (s *Store) Begin(ctx context.Context, kind Kind, detail string) (*Run, error) {
	if !KnownKind(kind) {
		return nil, fmt.Errorf("unknown run kind %q", kind)
	}

	now := time.Now().UTC()
	res, err := s.exec(
		ctx,
		`INSERT INTO runs (run_uuid, kind, status, detail, started_at, duration_seconds)
         VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		kind,
		StatusRunning,
		nullable(detail),
		now.Format(time.RFC3339Nano),
		0.0,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Finish marks a run as succeeded and records the artifacts it produced.
func (s *Store) Finish(ctx context.Context, run *Run, artifacts []Artifact) error {
	return s.complete(ctx, run, StatusSucceeded, artifacts, "")
}

// Fail marks a run as failed and records the failure message.
func (s *Store) Fail(ctx context.Context, run *Run, message string) error {
	return s.complete(ctx, run, StatusFailed, nil, message)
}

func (s *Store) complete(ctx context.Context, run *Run, status Status, artifacts []Artifact, message string) error {
	if run == nil {
		return errors.New("run is nil")
	}

	finished := time.Now().UTC()
	duration := finished.Sub(run.StartedAt).Seconds()
	if duration < 0 {
		duration = 0
	}
	artifactsJSON, err := marshalArtifacts(artifacts)
	if err != nil {
		return err
	}

	if _, err := s.exec(
		ctx,
		`UPDATE runs
         SET status = ?, error_message = ?, artifacts_json = ?, finished_at = ?, duration_seconds = ?
         WHERE id = ?`,
		status,
		nullable(message),
		nullable(artifactsJSON),
		finished.Format(time.RFC3339Nano),
		duration,
		run.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	run.Status = status
	run.ErrorMessage = message
	run.Artifacts = artifacts
	run.FinishedAt = &finished
	run.DurationSeconds = duration
	return nil
}

// GetByID fetches a run by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetByUUID fetches a run by its public identifier.
func (s *Store) GetByUUID(ctx context.Context, runUUID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_uuid = ?`, runUUID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run by uuid: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A zero limit returns all
// runs; kinds narrows the result when provided.
func (s *Store) List(ctx context.Context, limit int, kinds ...Kind) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(kinds)+1)
	if len(kinds) > 0 {
		query += ` WHERE kind IN (` + placeholders(len(kinds)) + `)`
		for _, kind := range kinds {
			args = append(args, kind)
		}
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run of the given kind, or nil when the
// journal has none.
func (s *Store) Latest(ctx context.Context, kind Kind) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM runs WHERE kind = ? ORDER BY id DESC LIMIT 1`,
		kind,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health summarizes run counts for doctor output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	sum := HealthSummary{
		Running:   stats[StatusRunning],
		Succeeded: stats[StatusSucceeded],
		Failed:    stats[StatusFailed],
	}
	for _, count := range stats {
		sum.Total += count
	}
	return sum, nil
}

// FailAbandoned marks runs still recorded as running as failed. Called on
// startup so crashes and interrupts don't leave phantom in-flight entries.
func (s *Store) FailAbandoned(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res, err := s.exec(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusFailed,
		InterruptedReason,
		now.Format(time.RFC3339Nano),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail abandoned runs: %w", err)
	}
	return res.RowsAffected()
}

// Purge removes finished runs that started before the retention window.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.exec(
		ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		StatusRunning,
		cutoff.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every run from the journal.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear journal: %w", err)
	}
	return res.RowsAffected()
}
