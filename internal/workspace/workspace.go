package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"galley/internal/config"
)

// rootMarkers identify a paper project root, checked in order. The config
// file is authoritative; the others let galley find projects that predate it.
var rootMarkers = []string{config.ProjectFileName, "renv.lock", "_quarto.yml"}

// DiscoverRoot walks up from the given directory looking for a project root.
// An empty argument starts from the working directory.
func DiscoverRoot(from string) (string, bool) {
	dir := strings.TrimSpace(from)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	for current := abs; ; {
		for _, marker := range rootMarkers {
			if info, err := os.Stat(filepath.Join(current, marker)); err == nil && !info.IsDir() {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// DeriveTitle turns a directory name into a human-readable paper title.
// Separator runes become word breaks, other punctuation is dropped, and each
// word is title-cased.
func DeriveTitle(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	words := strings.Fields(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			return r
		case unicode.IsSpace(r), r == '-', r == '_', r == '.':
			return ' '
		}
		return -1
	}, base))
	if len(words) == 0 {
		return "Untitled Paper"
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
