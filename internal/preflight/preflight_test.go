package preflight_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lipsync/internal/preflight"
	"lipsync/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if r := preflight.CheckDirectoryAccess("Root", dir); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := preflight.CheckDirectoryAccess("Root", filepath.Join(dir, "missing")); r.Passed || !strings.Contains(r.Detail, "does not exist") {
		t.Fatalf("expected missing failure, got %+v", r)
	}
	file := filepath.Join(dir, "file")
	testsupport.WriteFile(t, file, "x")
	if r := preflight.CheckDirectoryAccess("Root", file); r.Passed || !strings.Contains(r.Detail, "not a directory") {
		t.Fatalf("expected not-a-directory failure, got %+v", r)
	}
}

func TestRunAllFreshRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := preflight.RunAll(cfg)

	byName := map[string]preflight.Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Launcher root", "Accelerated requirements", "General requirements", "Model download script", "Inference script"} {
		if !byName[name].Passed || byName[name].Pending {
			t.Fatalf("%s not ready: %+v", name, byName[name])
		}
	}
	if r := byName["Python environment"]; !r.Passed || !r.Pending || !strings.Contains(r.Detail, "not created yet") {
		t.Fatalf("environment = %+v", r)
	}
	if r := byName["Model checkpoint"]; !r.Passed || !r.Pending || !strings.Contains(r.Detail, "downloaded on next run") {
		t.Fatalf("checkpoint = %+v", r)
	}
	if r := byName["State directory"]; !r.Passed || !r.Pending {
		t.Fatalf("state dir = %+v", r)
	}
}

func TestRunAllReportsMissingRequirementFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.Remove(cfg.Requirements.General); err != nil {
		t.Fatal(err)
	}
	for _, r := range preflight.RunAll(cfg) {
		if r.Name == "General requirements" && r.Passed {
			t.Fatalf("expected failure, got %+v", r)
		}
	}
}

func TestCheckCheckpointEmptyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pth")
	testsupport.WriteFile(t, path, "")
	if r := preflight.CheckCheckpoint(path); r.Passed {
		t.Fatalf("expected failure, got %+v", r)
	}
	testsupport.WriteFile(t, path, "weights")
	if r := preflight.CheckCheckpoint(path); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
}
