package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	kindKey     contextKey = "kind"
	documentKey contextKey = "document"
)

// WithRunID annotates context with the journal run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the journal run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithKind annotates context with the workflow kind (render/restore/spell).
func WithKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, kindKey, kind)
}

// KindFromContext returns the workflow kind if present.
func KindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(kindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDocument annotates context with the document being processed.
func WithDocument(ctx context.Context, document string) context.Context {
	if document == "" {
		return ctx
	}
	return context.WithValue(ctx, documentKey, document)
}

// DocumentFromContext returns the document path if present.
func DocumentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(documentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
