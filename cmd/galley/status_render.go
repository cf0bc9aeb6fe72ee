package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// statusKind classifies a report line so the printer can tag and color it.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func (k statusKind) tag() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return "\x1b[32m"
	case statusWarn:
		return "\x1b[33m"
	case statusError:
		return "\x1b[31m"
	default:
		return "\x1b[34m"
	}
}

const ansiReset = "\x1b[0m"

// statusLabelWidth keeps the status tags of a section vertically aligned.
const statusLabelWidth = 18

// statusPrinter writes the sectioned report that doctor produces. Color is
// applied only when the destination is a terminal.
type statusPrinter struct {
	out      io.Writer
	color    bool
	sections int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	color := false
	if file, ok := out.(*os.File); ok {
		fd := file.Fd()
		color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &statusPrinter{out: out, color: color}
}

// section starts a named block, separated from the previous one by a blank
// line.
func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	fmt.Fprintln(p.out, p.paint(fmt.Sprintf("== %s ==", title), "\x1b[34m"))
}

// line prints one aligned, tagged entry under the current section.
func (p *statusPrinter) line(label string, kind statusKind, message string) {
	status := "[" + kind.tag() + "]"
	if message != "" {
		status += " " + message
	}
	entry := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	fmt.Fprintln(p.out, p.paint(entry, kind.color()))
}

func (p *statusPrinter) paint(s, color string) string {
	if !p.color {
		return s
	}
	return color + s + ansiReset
}
