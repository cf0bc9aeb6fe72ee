package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, run_uuid, kind, status, detail, error_message, artifacts_json, started_at, finished_at, duration_seconds"

// runRow holds one row of the runs table before NULL handling.
type runRow struct {
	id        int64
	uuid      string
	kind      string
	status    string
	detail    sql.NullString
	errMsg    sql.NullString
	artifacts sql.NullString
	started   sql.NullString
	finished  sql.NullString
	duration  sql.NullFloat64
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var row runRow
	err := scanner.Scan(
		&row.id, &row.uuid, &row.kind, &row.status,
		&row.detail, &row.errMsg, &row.artifacts,
		&row.started, &row.finished, &row.duration,
	)
	if err != nil {
		return nil, err
	}
	return row.toRun()
}

func (r runRow) toRun() (*Run, error) {
	run := &Run{
		ID:              r.id,
		UUID:            r.uuid,
		Kind:            Kind(r.kind),
		Status:          Status(r.status),
		Detail:          r.detail.String,
		ErrorMessage:    r.errMsg.String,
		StartedAt:       parseTimestamp(r.started.String),
		DurationSeconds: r.duration.Float64,
	}
	if r.artifacts.String != "" {
		if err := json.Unmarshal([]byte(r.artifacts.String), &run.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts: %w", err)
		}
	}
	if r.finished.Valid {
		if t := parseTimestamp(r.finished.String); !t.IsZero() {
			run.FinishedAt = &t
		}
	}
	return run, nil
}

func marshalArtifacts(artifacts []Artifact) (string, error) {
	if len(artifacts) == 0 {
		return "", nil
	}
	data, err := json.Marshal(artifacts)
	if err != nil {
		return "", fmt.Errorf("marshal artifacts: %w", err)
	}
	return string(data), nil
}

// nullable maps the empty string to NULL so unset columns stay NULL in the
// database instead of becoming empty strings.
func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// timestampLayouts covers timestamps galley writes (RFC3339Nano) plus the
// plain form SQLite's datetime() produces, should the database be edited by
// hand.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

// parseTimestamp returns the zero time when the value matches no known layout.
func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(",?", n)[1:]
}
