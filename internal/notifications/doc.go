// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// galley.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover the major workflow milestones so
// commands can emit consistent, user-friendly messages without duplicating
// HTTP glue. Per-category toggles in the config suppress events the user does
// not care about.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
