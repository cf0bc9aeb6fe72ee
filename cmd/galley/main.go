package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"galley/internal/services"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the failure class to an exit code.
// Interrupt cancellation exits without printing.
func run() int {
	err := newRootCommand().Execute()
	if err == nil {
		return 0
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	return services.ExitCode(err)
}
