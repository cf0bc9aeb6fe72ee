// Package envguard detects environment drift: a project pins the R release
// it was built against in a one-line marker file, and the guard warns when
// the installed runtime reports a different version.
//
// The check is advisory only. It cannot fail a command, it writes nothing,
// and a missing marker means the project pins nothing.
package envguard
