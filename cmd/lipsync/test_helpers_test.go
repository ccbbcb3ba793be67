package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"lipsync/internal/command"
	"lipsync/internal/testsupport"
)

type cliTestEnv struct {
	root       string
	home       string
	checkpoint string
	rec        *testsupport.Recorder
}

// setupCLITestEnv lays out a launcher root with a ready environment so no
// base interpreter lookup happens.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "wav2lip")
	home := filepath.Join(base, "home")
	t.Setenv("HOME", home)
	t.Setenv("LIPSYNC_ROOT", root)
	t.Setenv("LIPSYNC_PYTHON", "")
	t.Setenv("LIPSYNC_LOG_LEVEL", "")

	testsupport.WriteFile(t, filepath.Join(root, "requirements_cuda.txt"), "torch\n")
	testsupport.WriteFile(t, filepath.Join(root, "requirements.txt"), "numpy\n")
	testsupport.WriteFile(t, filepath.Join(root, "download_models.py"), "")
	testsupport.WriteFile(t, filepath.Join(root, "batch_inference.py"), "")
	if err := testsupport.CreateVenv(command.Spec{Args: []string{"-m", "venv", filepath.Join(root, "venv")}}); err != nil {
		t.Fatalf("seed venv: %v", err)
	}

	checkpoint := filepath.Join(root, "checkpoints", "wav2lip_gan.pth")
	rec := testsupport.NewRecorder()
	rec.On("download_models.py", testsupport.WriteCheckpoint(checkpoint))
	return &cliTestEnv{root: root, home: home, checkpoint: checkpoint, rec: rec}
}

func runCLI(t *testing.T, exec command.Executor, args []string, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWithExecutor(exec)
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
