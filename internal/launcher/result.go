package launcher

import (
	"time"

	"lipsync/internal/history"
)

// StepStatus is the terminal state of a step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepWarned    StepStatus = "warned"
	StepSkipped   StepStatus = "skipped"
)

// StepTiming records one executed step.
type StepTiming struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
}

// Result summarises a run.
type Result struct {
	RunID      string
	EnvCreated bool
	Folder     string
	Checkpoint string
	ExitCode   int
	FailedStep string
	Warnings   []string
	Steps      []StepTiming
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run exited cleanly.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0 && r.FailedStep == ""
}

func (r Result) historyRun(root string, err error) history.Run {
	run := history.Run{
		RunID:      r.RunID,
		Root:       root,
		Folder:     r.Folder,
		EnvCreated: r.EnvCreated,
		Outcome:    history.OutcomeSucceeded,
		FailedStep: r.FailedStep,
		ExitCode:   r.ExitCode,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if err != nil {
		run.Outcome = history.OutcomeFailed
		run.ErrorMessage = err.Error()
	}
	return run
}
