// Package watch monitors the project tree for manuscript changes.
//
// The watcher recursively registers project directories with fsnotify,
// filters events by the configured source extensions, and debounces rapid
// saves so editors that write multiple times per save trigger a single batch.
// Generated directories such as the render output, renv library, and state
// directory are never watched.
//
// Consumers read settled batches from Changes and decide what to do with
// them; the watcher itself never renders.
package watch
