// Package workspace scaffolds paper projects and cleans their artifacts.
//
// Scaffold writes the initial project tree: the config file, a starter
// manuscript, bibliography, word list, profile script, Dockerfile, and a CI
// workflow whose trigger paths stay in sync with the configured source
// extensions. Existing files are never overwritten unless forced.
//
// Clean removes generated output; the aggressive variant also drops the
// package library and galley state so the next restore starts from scratch.
package workspace
