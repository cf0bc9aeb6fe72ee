// Package services defines shared utilities consumed by the workflow runner
// and the external tool integrations beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, workflow kinds, and document
//     paths for logging and journal correlation.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exit codes.
//   - Thin abstractions that make command execution and output streaming from
//     external tools testable.
//
// Use these helpers when wiring new workflow logic so operational behaviour
// (error handling, observability, timeouts) stays uniform across commands.
package services
