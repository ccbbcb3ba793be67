package history

import "time"

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Run is a recorded launcher run.
type Run struct {
	ID           int64
	RunID        string
	Root         string
	Folder       string
	EnvCreated   bool
	Outcome      Outcome
	FailedStep   string
	ExitCode     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
