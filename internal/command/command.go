package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Spec describes a single child process invocation.
type Spec struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (s Spec) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, quoteArg(s.Name))
	for _, arg := range s.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, spec Spec) error
}

// ExitError reports a child process that ran and exited non-zero.
type ExitError struct {
	Name string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts a child exit status from err.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// OSExecutor runs commands with os/exec, streaming output to the spec's
// writers (the launcher's own stdout/stderr when unset).
type OSExecutor struct{}

// Run executes the command and blocks until it exits.
func (OSExecutor) Run(ctx context.Context, spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errors.New("command name required")
	}
	cmd := exec.CommandContext(ctx, name, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = spec.Env
	}
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s: %w", filepath.Base(name), ctxErr)
			}
			return &ExitError{Name: filepath.Base(name), Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("start %s: %w", filepath.Base(name), err)
	}
	return nil
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\"'") {
		return strconv.Quote(arg)
	}
	return arg
}
