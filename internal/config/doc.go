// Package config loads and validates galley configuration.
//
// Configuration comes from a single TOML file. Load looks for a
// galley.toml by walking up from the working directory so commands work
// from anywhere inside a project; otherwise it falls back to the user
// config at ~/.config/galley/config.toml. Missing files are not an
// error: defaults apply and callers learn whether a file was read.
package config
