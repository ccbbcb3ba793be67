package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	prev := lookPath
	lookPath = func(name string) (string, error) {
		if path, ok := found[name]; ok {
			return path, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = prev })
}

func TestCheckBinaries(t *testing.T) {
	stubLookPath(t, map[string]string{"python3": "/usr/bin/python3"})
	results := CheckBinaries([]Requirement{
		{Name: "Python", Command: "python3"},
		{Name: "Missing", Command: "clearly-not-present-binary", Optional: true},
		{Name: "Unset"},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Command != "/usr/bin/python3" || results[0].Detail != "" {
		t.Fatalf("unexpected first result: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected missing result: %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected unset result: %#v", results[2])
	}
	if missing := MissingRequired(results); len(missing) != 1 || missing[0] != "Unset" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestFirstAvailable(t *testing.T) {
	stubLookPath(t, map[string]string{"python": "/usr/bin/python"})
	status := FirstAvailable("Python", "", "python3", "python", "py")
	if !status.Available || status.Command != "/usr/bin/python" {
		t.Fatalf("status = %#v", status)
	}

	stubLookPath(t, nil)
	status = FirstAvailable("Python", "", "python3", "py")
	if status.Available || status.Command != "python3, py" {
		t.Fatalf("status = %#v", status)
	}
}

func TestCheckFFmpegPrefersEnvironmentBinary(t *testing.T) {
	stubLookPath(t, map[string]string{"ffmpeg": "/usr/bin/ffmpeg"})
	binDir := t.TempDir()
	local := filepath.Join(binDir, executableName("ffmpeg"))
	if err := os.WriteFile(local, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpegForEnvironment(binDir)
	if !status.Available || status.Command != local {
		t.Fatalf("status = %#v", status)
	}
}

func TestCheckFFmpegFallsBackToPath(t *testing.T) {
	stubLookPath(t, map[string]string{"ffmpeg": "/usr/bin/ffmpeg"})
	status := CheckFFmpegForEnvironment(t.TempDir())
	if !status.Available || status.Command != "/usr/bin/ffmpeg" {
		t.Fatalf("status = %#v", status)
	}

	stubLookPath(t, nil)
	status = CheckFFmpegForEnvironment("")
	if status.Available || status.Detail == "" {
		t.Fatalf("status = %#v", status)
	}
}
