package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Exit codes reported by the CLI, grouped by failure class so scripts and CI
// jobs can react without parsing messages.
const (
	ExitFailure      = 1
	ExitUsage        = 2
	ExitMissingInput = 3
	ExitToolTimeout  = 4
	ExitExternalTool = 5
)

// Wrap tags err with one of the sentinel markers above and prefixes it with
// component/operation context. A nil marker falls back to ErrTransient so
// untagged failures still classify.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinDetail(component, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// ExitCode maps a workflow error to the process exit code the CLI should
// return after the command fails.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return ExitUsage
	case errors.Is(err, ErrNotFound):
		return ExitMissingInput
	case errors.Is(err, ErrTimeout):
		return ExitToolTimeout
	case errors.Is(err, ErrExternalTool):
		return ExitExternalTool
	default:
		return ExitFailure
	}
}

func joinDetail(fields ...string) string {
	kept := fields[:0]
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			kept = append(kept, field)
		}
	}
	if len(kept) == 0 {
		return "workflow failure"
	}
	return strings.Join(kept, ": ")
}
