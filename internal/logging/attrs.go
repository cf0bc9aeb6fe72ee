package logging

import (
	"log/slog"
	"time"
)

// Standardized structured logging keys shared across components.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRunID carries the journal run correlation identifier.
	FieldRunID = "run_id"
	// FieldKind names the run kind (render, restore, spell).
	FieldKind = "kind"
	// FieldTool names the external binary being invoked.
	FieldTool = "tool"
	// FieldArtifact points at a produced output file.
	FieldArtifact = "artifact"
)

type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// WithComponent returns a logger tagged with a standardized component attribute.
// A nil base falls back to the no-op logger.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}
