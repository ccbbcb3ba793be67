package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency lipsync relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// lookPath resolves commands; tests may replace it.
var lookPath = exec.LookPath

// CheckBinaries evaluates the provided requirements and reports availability.
// Resolved commands are reported with their full path.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch resolved, err := lookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Command = resolved
		}
		results = append(results, status)
	}
	return results
}

// FirstAvailable checks candidates in order and returns the first one found,
// reported under name. When none resolve, the status lists every candidate.
func FirstAvailable(name, description string, candidates ...string) Status {
	status := Status{Name: name, Description: description}
	for _, candidate := range candidates {
		if resolved, err := lookPath(candidate); err == nil {
			status.Command = resolved
			status.Available = true
			return status
		}
	}
	status.Command = strings.Join(candidates, ", ")
	status.Detail = fmt.Sprintf("none of %s found on PATH", status.Command)
	return status
}

// MissingRequired reports the names of required dependencies that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
