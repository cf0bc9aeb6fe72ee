// Package preflight provides readiness checks for external tools and
// filesystem paths that galley depends on.
//
// These checks run in two contexts:
//   - The render workflow calls RunAll before starting work so a doomed run
//     fails fast instead of half way through a long render.
//   - The CLI "galley doctor" command uses the same checks to display
//     environment health.
//
// Each check is gated by its config toggle -- unused features are skipped.
package preflight
