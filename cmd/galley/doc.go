// Package main hosts the galley CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into workflow
// runs: rendering the paper, restoring the package library, spell checking,
// project scaffolding, and journal inspection. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
