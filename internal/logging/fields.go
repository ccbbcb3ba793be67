package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for launcher run identifiers.
	FieldRunID = "run_id"
	// FieldStep is the standardized structured logging key for launch step names.
	FieldStep = "step"
	// FieldEventType classifies a record for filtering in the JSON log.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCommand records the rendered command line of a child process.
	FieldCommand = "command"
	// FieldExitCode records a child process exit status.
	FieldExitCode = "exit_code"
	// FieldDuration records how long a step took.
	FieldDuration = "step_duration"
)
