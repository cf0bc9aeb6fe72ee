// Package rlang probes the installed R runtime through Rscript so the
// environment guard and project scaffolding can learn the interpreter
// version without linking against R.
package rlang
