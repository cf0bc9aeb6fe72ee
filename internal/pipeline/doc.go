// Package pipeline orchestrates the paper workflows. A Runner ties the
// external tool clients, the run journal, and the notifier together so the
// CLI commands stay thin: render, restore, snapshot, and spell each record a
// journal run, announce milestones, and surface tool failures as classified
// errors.
package pipeline
