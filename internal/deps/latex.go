package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// CheckLatexForQuarto reports the LaTeX engine Quarto will use for PDF output.
//
// Quarto prefers its own TinyTeX installation under the user's home directory
// and falls back to a pdflatex resolved from PATH. Probing the same way keeps
// doctor output consistent with what a render would actually execute.
func CheckLatexForQuarto() Status {
	status := Status{
		Name:        "LaTeX",
		Command:     "pdflatex",
		Description: "used by Quarto for PDF output",
		Optional:    true,
	}

	if engine, ok := tinytexEngine(); ok {
		status.Command = engine
		status.Available = true
		return status
	}
	if engine, err := exec.LookPath("pdflatex"); err == nil {
		status.Command = engine
		status.Available = true
		return status
	}

	status.Detail = `no TinyTeX installation and no "pdflatex" on PATH`
	return status
}

// tinytexEngine locates pdflatex under the user's TinyTeX tree. TinyTeX keeps
// one bin directory per platform triplet, hence the glob.
func tinytexEngine() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	name := "pdflatex"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	matches, err := filepath.Glob(filepath.Join(home, ".TinyTeX", "bin", "*", name))
	if err != nil {
		return "", false
	}
	for _, candidate := range matches {
		if canExecute(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func canExecute(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
