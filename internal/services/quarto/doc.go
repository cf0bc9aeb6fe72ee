// Package quarto wraps the Quarto CLI so the render workflow can produce
// manuscript outputs and learn which artifact files were written.
//
// It exposes a Renderer interface, a Client that shells out to quarto
// render, and line parsing that lifts "Output created:" reports into typed
// results. Tests can swap in fakes to avoid executing the real renderer
// while still exercising workflow behaviour.
package quarto
