package install_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"lipsync/internal/install"
	"lipsync/internal/services"
	"lipsync/internal/testsupport"
	"lipsync/internal/venv"
)

func handle(t *testing.T) venv.Handle {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "venv")
	binDir, python := venv.Layout(dir)
	return venv.Handle{Dir: dir, BinDir: binDir, Python: python}
}

func TestInstallAppliesSetsInOrder(t *testing.T) {
	root := t.TempDir()
	testsupport.Touch(t, root, "requirements_cuda.txt", "requirements.txt")
	rec := testsupport.NewRecorder()
	env := handle(t)
	inst := install.New(install.WithExecutor(rec), install.WithExtraArgs("--no-cache-dir"))

	err := inst.Install(context.Background(), env, []install.Set{
		{Name: "accelerated", File: filepath.Join(root, "requirements_cuda.txt"), IndexURL: "https://download.pytorch.org/whl/cu121"},
		{Name: "general", File: filepath.Join(root, "requirements.txt")},
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	labels := rec.Labels()
	want := []string{"pip requirements_cuda.txt", "pip requirements.txt"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", labels, want)
	}
	first := rec.Calls()[0]
	if first.Name != env.Python {
		t.Fatalf("pip must run from the environment interpreter, got %s", first.Name)
	}
	if !strings.Contains(first.String(), "--extra-index-url https://download.pytorch.org/whl/cu121 --no-cache-dir") {
		t.Fatalf("unexpected command: %s", first.String())
	}
	if strings.Contains(rec.Calls()[1].String(), "--extra-index-url") {
		t.Fatalf("index url leaked into general set: %s", rec.Calls()[1].String())
	}
	if v, _ := testsupport.EnvValue(first.Env, "VIRTUAL_ENV"); v != env.Dir {
		t.Fatalf("VIRTUAL_ENV = %q", v)
	}
}

func TestInstallStopsAtFirstFailure(t *testing.T) {
	root := t.TempDir()
	testsupport.Touch(t, root, "requirements_cuda.txt", "requirements.txt")
	rec := testsupport.NewRecorder()
	rec.On("pip requirements_cuda.txt", testsupport.Fail(1))
	inst := install.New(install.WithExecutor(rec))

	err := inst.Install(context.Background(), handle(t), []install.Set{
		{Name: "accelerated", File: filepath.Join(root, "requirements_cuda.txt")},
		{Name: "general", File: filepath.Join(root, "requirements.txt")},
	})
	if !errors.Is(err, services.ErrInstallation) {
		t.Fatalf("expected ErrInstallation, got %v", err)
	}
	if len(rec.Calls()) != 1 {
		t.Fatalf("expected general set skipped after failure, got %v", rec.Labels())
	}
}

func TestInstallMissingFile(t *testing.T) {
	rec := testsupport.NewRecorder()
	inst := install.New(install.WithExecutor(rec))
	err := inst.Install(context.Background(), handle(t), []install.Set{{Name: "general", File: filepath.Join(t.TempDir(), "missing.txt")}})
	if !errors.Is(err, services.ErrInstallation) {
		t.Fatalf("expected ErrInstallation, got %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("pip should not run, got %v", rec.Labels())
	}
}

func TestInstallSkipsUnconfiguredSet(t *testing.T) {
	root := t.TempDir()
	testsupport.Touch(t, root, "requirements.txt")
	rec := testsupport.NewRecorder()
	var notices bytes.Buffer
	inst := install.New(install.WithExecutor(rec), install.WithNotices(&notices))
	err := inst.Install(context.Background(), handle(t), []install.Set{
		{Name: "accelerated"},
		{Name: "general", File: filepath.Join(root, "requirements.txt")},
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if rec.Count("pip requirements.txt") != 1 || len(rec.Calls()) != 1 {
		t.Fatalf("calls = %v", rec.Labels())
	}
	if !strings.Contains(notices.String(), "Skipping accelerated requirements") {
		t.Fatalf("notices = %q", notices.String())
	}
}
