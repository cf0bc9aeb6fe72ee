// Package renv drives the renv package manager through Rscript so the
// workflow can restore, snapshot, and inspect the project's R library
// against its lockfile.
package renv
