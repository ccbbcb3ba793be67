package inference_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"lipsync/internal/inference"
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

func TestArgsCarryCheckpointAndFolderVerbatim(t *testing.T) {
	inv := inference.New("/root/batch_inference.py", "/root")
	args := inv.Args("/root/checkpoints/wav2lip_gan.pth", `C:\my media\clips `)
	want := []string{"/root/batch_inference.py", "--checkpoint_path", "/root/checkpoints/wav2lip_gan.pth", "--folder_path", `C:\my media\clips `}
	if strings.Join(args, "|") != strings.Join(want, "|") {
		t.Fatalf("args = %q, want %q", args, want)
	}
}

func TestArgsDisablePadAudio(t *testing.T) {
	inv := inference.New("b.py", "", inference.WithPadAudio(false))
	args := inv.Args("c", "f")
	if got := strings.Join(args[len(args)-2:], " "); got != "--pad_audio False" {
		t.Fatalf("tail = %q", got)
	}
}

func TestInvokeUsesEnvironmentInterpreter(t *testing.T) {
	rec := testsupport.NewRecorder()
	env := handle(t)
	inv := inference.New("batch_inference.py", "/work", inference.WithExecutor(rec))
	if err := inv.Invoke(context.Background(), env, "ckpt", "folder"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	spec := rec.Find(t, "batch_inference.py")
	if spec.Name != env.Python || spec.Dir != "/work" {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestInvokePropagatesExitCode(t *testing.T) {
	rec := testsupport.NewRecorder()
	rec.On("batch_inference.py", testsupport.Fail(7))
	inv := inference.New("batch_inference.py", "", inference.WithExecutor(rec))

	err := inv.Invoke(context.Background(), handle(t), "ckpt", "folder")
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if code := services.ExitCode(err); code != 7 {
		t.Fatalf("exit code = %d, want 7", code)
	}
}
