// Package journal persists workflow run history in SQLite.
//
// The Store manages database connections, schema initialization, and the
// lifecycle of run records: a run begins when a workflow starts, then finishes
// with its artifacts or fails with an error message. History commands query
// the same store for listings, stats, and retention cleanup.
//
// The database lives inside the project state directory, so each paper keeps
// its own history. Schema changes bump the version in schema.go; users clear
// the database to adopt the new schema.
package journal
