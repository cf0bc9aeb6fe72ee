// Package aspell wraps aspell's list mode so the spelling workflow can
// report unknown words in manuscript sources, filtered against the
// project's accepted word list.
package aspell
