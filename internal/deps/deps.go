// Package deps reports the availability of the external tools the workflow
// shells out to, for doctor output and preflight checks.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency galley relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of probing one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = req.check()
	}
	return results
}

func (r Requirement) check() Status {
	status := Status{
		Name:        r.Name,
		Command:     strings.TrimSpace(r.Command),
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}
