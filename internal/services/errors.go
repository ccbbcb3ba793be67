package services

import (
	"errors"
	"fmt"
	"strings"

	"lipsync/internal/command"
)

var (
	ErrProvisioning  = errors.New("environment provisioning failed")
	ErrInstallation  = errors.New("dependency installation failed")
	ErrAssetFetch    = errors.New("model asset fetch failed")
	ErrInvalidFolder = errors.New("invalid input folder")
	ErrInference     = errors.New("inference failed")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrLocked        = errors.New("another run is in progress")
)

// Step names used in logs, errors, and run history.
const (
	StepProvision = "provision"
	StepInstall   = "install"
	StepFetch     = "fetch"
	StepResolve   = "resolve"
	StepInference = "inference"
)

// Wrap builds an error message that includes step context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailedStep reports which launch step a wrapped error belongs to.
func FailedStep(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProvisioning):
		return StepProvision
	case errors.Is(err, ErrInstallation):
		return StepInstall
	case errors.Is(err, ErrAssetFetch):
		return StepFetch
	case errors.Is(err, ErrInvalidFolder):
		return StepResolve
	case errors.Is(err, ErrInference):
		return StepInference
	default:
		return ""
	}
}

// ExitCode maps a launch error to the process exit status. Inference failures
// carry the child's own status; anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrInference) {
		if code, ok := command.ExitCode(err); ok && code > 0 {
			return code
		}
	}
	return 1
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "launcher failure"
	}
	return strings.Join(parts, ": ")
}
