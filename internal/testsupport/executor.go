package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"lipsync/internal/command"
	"lipsync/internal/venv"
)

// Handler stands in for one kind of child process.
type Handler func(spec command.Spec) error

// Recorder is a command.Executor that records every invocation and
// dispatches it to the handler registered for its label.
type Recorder struct {
	mu       sync.Mutex
	calls    []command.Spec
	handlers map[string]Handler
}

// NewRecorder returns a recorder whose venv creation produces a usable layout.
func NewRecorder() *Recorder {
	r := &Recorder{handlers: make(map[string]Handler)}
	r.On("venv", CreateVenv)
	return r
}

// On registers fn for invocations whose Label equals label.
func (r *Recorder) On(label string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[label] = fn
}

// Run implements command.Executor.
func (r *Recorder) Run(_ context.Context, spec command.Spec) error {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	fn := r.handlers[Label(spec)]
	r.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(spec)
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []command.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Labels returns the label of each recorded invocation in order.
func (r *Recorder) Labels() []string {
	calls := r.Calls()
	labels := make([]string, len(calls))
	for i, spec := range calls {
		labels[i] = Label(spec)
	}
	return labels
}

// Count returns how many invocations carried label.
func (r *Recorder) Count(label string) int {
	n := 0
	for _, l := range r.Labels() {
		if l == label {
			n++
		}
	}
	return n
}

// Find returns the first invocation carrying label.
func (r *Recorder) Find(t testing.TB, label string) command.Spec {
	t.Helper()
	for _, spec := range r.Calls() {
		if Label(spec) == label {
			return spec
		}
	}
	t.Fatalf("no %q invocation recorded; got %v", label, r.Labels())
	return command.Spec{}
}

// Label classifies an invocation: "venv" for environment creation,
// "pip <file>" for a requirement install, otherwise the script's base name.
func Label(spec command.Spec) string {
	args := spec.Args
	for i := 0; i+1 < len(args); i++ {
		if args[i] != "-m" {
			continue
		}
		switch args[i+1] {
		case "venv":
			return "venv"
		case "pip":
			if idx := slices.Index(args, "-r"); idx >= 0 && idx+1 < len(args) {
				return "pip " + filepath.Base(args[idx+1])
			}
			return "pip"
		}
	}
	if len(args) > 0 {
		return filepath.Base(args[0])
	}
	return filepath.Base(spec.Name)
}

// CreateVenv materializes the environment layout a real venv module would.
func CreateVenv(spec command.Spec) error {
	dir := spec.Args[len(spec.Args)-1]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0o644); err != nil {
		return err
	}
	binDir, python := venv.Layout(dir)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(python, nil, 0o755)
}

// WriteCheckpoint returns a handler that creates path, standing in for the
// model download script.
func WriteCheckpoint(path string) Handler {
	return func(command.Spec) error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte("weights"), 0o644)
	}
}

// Fail returns a handler that exits with code.
func Fail(code int) Handler {
	return func(spec command.Spec) error {
		return &command.ExitError{Name: strings.TrimSuffix(Label(spec), ".py"), Code: code}
	}
}

// EnvValue returns the value of key in a child environment.
func EnvValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix), true
		}
	}
	return "", false
}
