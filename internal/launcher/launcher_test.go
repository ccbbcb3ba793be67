package launcher_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"lipsync/internal/command"
	"lipsync/internal/config"
	"lipsync/internal/history"
	"lipsync/internal/launcher"
	"lipsync/internal/prompt"
	"lipsync/internal/services"
	"lipsync/internal/testsupport"
	"lipsync/internal/venv"
)

type harness struct {
	cfg    *config.Config
	rec    *testsupport.Recorder
	stdout *bytes.Buffer
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	rec := testsupport.NewRecorder()
	rec.On("download_models.py", testsupport.WriteCheckpoint(cfg.Assets.Checkpoint))
	return &harness{cfg: cfg, rec: rec, stdout: &bytes.Buffer{}}
}

func (h *harness) build(t *testing.T, stdin string, opts ...launcher.Option) *launcher.Launcher {
	t.Helper()
	provisioner := venv.New(h.cfg.Paths.EnvDir,
		venv.WithExecutor(h.rec),
		venv.WithNotices(h.stdout),
		venv.WithLookPath(func(name string) (string, error) {
			if name == "python3" {
				return "/usr/bin/python3", nil
			}
			return "", errors.New("not found")
		}),
	)
	base := []launcher.Option{
		launcher.WithExecutor(h.rec),
		launcher.WithIO(strings.NewReader(stdin), h.stdout, h.stdout),
		launcher.WithProvisioner(provisioner),
	}
	l, err := launcher.New(h.cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("launcher.New: %v", err)
	}
	return l
}

func (h *harness) run(t *testing.T, folderArg, stdin string, opts ...launcher.Option) (launcher.Result, error) {
	t.Helper()
	return h.build(t, stdin, opts...).Run(context.Background(), folderArg)
}

func flagValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestRunTwiceCreatesEnvironmentOnce(t *testing.T) {
	h := newHarness(t)

	first, err := h.run(t, "/media", "")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !first.EnvCreated {
		t.Fatal("expected first run to create the environment")
	}
	h.stdout.Reset()

	second, err := h.run(t, "/media", "")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.EnvCreated {
		t.Fatal("second run recreated the environment")
	}
	if got := h.rec.Count("venv"); got != 1 {
		t.Fatalf("venv creations = %d, want 1", got)
	}
	if !strings.Contains(h.stdout.String(), "already exists") {
		t.Fatalf("missing reuse notice in %q", h.stdout.String())
	}
}

func TestRunArgumentNeverReadsStdin(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run(t, "/media/clips", "should not be read\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(h.stdout.String(), prompt.FolderPrompt) {
		t.Fatal("prompted despite folder argument")
	}
	spec := h.rec.Find(t, "batch_inference.py")
	if got := flagValue(spec.Args, "--folder_path"); got != "/media/clips" {
		t.Fatalf("folder_path = %q", got)
	}
}

func TestRunPromptsOnceAndUsesLineVerbatim(t *testing.T) {
	h := newHarness(t)

	result, err := h.run(t, "", "  my clips/batch 1 \r\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Count(h.stdout.String(), prompt.FolderPrompt); got != 1 {
		t.Fatalf("prompt shown %d times", got)
	}
	want := "  my clips/batch 1 "
	if result.Folder != want {
		t.Fatalf("folder = %q, want %q", result.Folder, want)
	}
	if got := flagValue(h.rec.Find(t, "batch_inference.py").Args, "--folder_path"); got != want {
		t.Fatalf("folder_path = %q, want %q", got, want)
	}
}

func TestRunCheckpointIndependentOfWorkingDirectory(t *testing.T) {
	h := newHarness(t)
	t.Chdir(t.TempDir())

	if _, err := h.run(t, "/media", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	spec := h.rec.Find(t, "batch_inference.py")
	want := filepath.Join(h.cfg.Paths.Root, "checkpoints", "wav2lip_gan.pth")
	if got := flagValue(spec.Args, "--checkpoint_path"); got != want {
		t.Fatalf("checkpoint_path = %q, want %q", got, want)
	}
	if spec.Dir != h.cfg.Paths.Root {
		t.Fatalf("inference dir = %q, want %q", spec.Dir, h.cfg.Paths.Root)
	}
}

type orderResolver struct {
	rec      *testsupport.Recorder
	callsAt  int
	resolved int
}

func (r *orderResolver) Resolve(arg string) (string, error) {
	r.resolved++
	r.callsAt = len(r.rec.Calls())
	return arg, nil
}

func (r *orderResolver) Pause(string) {}

func TestRunOrderOfOperations(t *testing.T) {
	h := newHarness(t)
	resolver := &orderResolver{rec: h.rec}

	if _, err := h.run(t, "/media", "", launcher.WithResolver(resolver)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"venv", "pip requirements_cuda.txt", "pip requirements.txt", "download_models.py", "batch_inference.py"}
	if got := h.rec.Labels(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if resolver.resolved != 1 || resolver.callsAt != 4 {
		t.Fatalf("resolved %d times after %d calls, want once after 4", resolver.resolved, resolver.callsAt)
	}
}

func TestScenarioExistingEnvironmentWithArgument(t *testing.T) {
	h := newHarness(t)
	h.seedVenv(t)

	result, err := h.run(t, `C:\media`, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EnvCreated || h.rec.Count("venv") != 0 {
		t.Fatal("environment was created")
	}
	if h.rec.Count("pip requirements_cuda.txt") != 1 || h.rec.Count("pip requirements.txt") != 1 {
		t.Fatalf("expected both requirement sets, got %v", h.rec.Labels())
	}
	if h.rec.Count("download_models.py") != 1 {
		t.Fatal("asset fetch not invoked")
	}
	if strings.Contains(h.stdout.String(), prompt.FolderPrompt) {
		t.Fatal("unexpected prompt")
	}
	if got := flagValue(h.rec.Find(t, "batch_inference.py").Args, "--folder_path"); got != `C:\media` {
		t.Fatalf("folder_path = %q", got)
	}
}

func (h *harness) seedVenv(t *testing.T) {
	t.Helper()
	if err := testsupport.CreateVenv(command.Spec{Args: []string{"-m", "venv", h.cfg.Paths.EnvDir}}); err != nil {
		t.Fatalf("seed venv: %v", err)
	}
}

func TestScenarioPromptedFolderIsEchoed(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run(t, "", "D:\\clips\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Folder path: D:\\clips\n") {
		t.Fatalf("missing echo in %q", h.stdout.String())
	}
	if got := flagValue(h.rec.Find(t, "batch_inference.py").Args, "--folder_path"); got != `D:\clips` {
		t.Fatalf("folder_path = %q", got)
	}
}

func TestScenarioFetchFailureHaltsBeforeInference(t *testing.T) {
	h := newHarness(t)
	h.rec.On("download_models.py", testsupport.Fail(2))

	result, err := h.run(t, "/media", "")
	if !errors.Is(err, services.ErrAssetFetch) {
		t.Fatalf("expected ErrAssetFetch, got %v", err)
	}
	if h.rec.Count("batch_inference.py") != 0 {
		t.Fatal("inference invoked after fetch failure")
	}
	if result.FailedStep != services.StepFetch || result.ExitCode != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(h.stdout.String(), "failed during fetch") {
		t.Fatalf("missing failure notice in %q", h.stdout.String())
	}
}

func TestRunContinuesPastFailuresWhenNotHalting(t *testing.T) {
	h := newHarness(t, testsupport.WithHaltOnFailure(false))
	h.rec.On("pip requirements_cuda.txt", testsupport.Fail(1))
	h.rec.On("download_models.py", testsupport.Fail(3))
	testsupport.WriteFile(t, h.cfg.Assets.Checkpoint, "weights")

	result, err := h.run(t, "/media", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.rec.Count("batch_inference.py") != 1 {
		t.Fatal("inference not invoked")
	}
	if h.rec.Count("pip requirements.txt") != 0 {
		t.Fatal("general set installed after accelerated failure")
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	statuses := map[string]launcher.StepStatus{}
	for _, step := range result.Steps {
		statuses[step.Name] = step.Status
	}
	if statuses[services.StepInstall] != launcher.StepWarned || statuses[services.StepFetch] != launcher.StepWarned {
		t.Fatalf("step statuses = %v", statuses)
	}
}

func TestRunInstallFailureHaltsByDefault(t *testing.T) {
	h := newHarness(t)
	h.rec.On("pip requirements.txt", testsupport.Fail(1))

	_, err := h.run(t, "/media", "")
	if !errors.Is(err, services.ErrInstallation) {
		t.Fatalf("expected ErrInstallation, got %v", err)
	}
	if h.rec.Count("download_models.py") != 0 || h.rec.Count("batch_inference.py") != 0 {
		t.Fatalf("later steps ran: %v", h.rec.Labels())
	}
}

func TestRunSkipsInstallForExistingEnvironment(t *testing.T) {
	h := newHarness(t, testsupport.WithReinstall(false))
	h.seedVenv(t)

	result, err := h.run(t, "/media", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, label := range h.rec.Labels() {
		if strings.HasPrefix(label, "pip") {
			t.Fatalf("unexpected install: %v", h.rec.Labels())
		}
	}
	if result.Steps[1].Name != services.StepInstall || result.Steps[1].Status != launcher.StepSkipped {
		t.Fatalf("steps = %+v", result.Steps)
	}
}

func TestRunInstallsFreshEnvironmentEvenWithoutReinstall(t *testing.T) {
	h := newHarness(t, testsupport.WithReinstall(false))

	if _, err := h.run(t, "/media", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.rec.Count("pip requirements.txt") != 1 {
		t.Fatalf("calls = %v", h.rec.Labels())
	}
}

func TestRunPropagatesInferenceExitCode(t *testing.T) {
	h := newHarness(t)
	h.rec.On("batch_inference.py", testsupport.Fail(7))

	result, err := h.run(t, "/media", "")
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if result.ExitCode != 7 || services.ExitCode(err) != 7 {
		t.Fatalf("exit code = %d", result.ExitCode)
	}
}

func TestRunEmptyPromptFails(t *testing.T) {
	h := newHarness(t)

	result, err := h.run(t, "", "\n")
	if !errors.Is(err, services.ErrInvalidFolder) {
		t.Fatalf("expected ErrInvalidFolder, got %v", err)
	}
	if result.FailedStep != services.StepResolve {
		t.Fatalf("failed step = %q", result.FailedStep)
	}
	if h.rec.Count("batch_inference.py") != 0 {
		t.Fatal("inference invoked without a folder")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	h := newHarness(t, testsupport.WithHistory())
	store := testsupport.MustOpenHistory(t, h.cfg)
	h.rec.On("batch_inference.py", testsupport.Fail(4))

	result, _ := h.run(t, "/media", "", launcher.WithHistory(store), launcher.WithRunID(func() string { return "run-1" }))
	if result.RunID != "run-1" {
		t.Fatalf("run id = %q", result.RunID)
	}

	runs := testsupport.Runs(t, store)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.RunID != "run-1" || run.Folder != "/media" || run.ExitCode != 4 || run.FailedStep != services.StepInference {
		t.Fatalf("run = %+v", run)
	}
	if !run.EnvCreated || run.ErrorMessage == "" {
		t.Fatalf("run = %+v", run)
	}
}

func TestRunRecordsInterruptedRun(t *testing.T) {
	h := newHarness(t, testsupport.WithHistory())
	store := testsupport.MustOpenHistory(t, h.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.rec.On("batch_inference.py", func(spec command.Spec) error {
		cancel()
		return testsupport.Fail(130)(spec)
	})

	_, err := h.build(t, "", launcher.WithHistory(store)).Run(ctx, "/media")
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}

	runs := testsupport.Runs(t, store)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Outcome != history.OutcomeFailed || runs[0].ExitCode != 130 {
		t.Fatalf("run = %+v", runs[0])
	}
}

func TestRunReportsBeforePause(t *testing.T) {
	h := newHarness(t)
	var reported launcher.Result
	report := launcher.WithReport(func(result launcher.Result) {
		reported = result
		h.stdout.WriteString("report\n")
	})

	if _, err := h.run(t, "/media", "\n", report, launcher.WithPause(true)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reported.Folder != "/media" || len(reported.Steps) == 0 {
		t.Fatalf("reported = %+v", reported)
	}
	out := h.stdout.String()
	if r, p := strings.Index(out, "report\n"), strings.Index(out, "Press Enter to exit..."); r < 0 || p < r {
		t.Fatalf("report must precede the pause prompt:\n%s", out)
	}
}

func TestRunPausesAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.rec.On("download_models.py", testsupport.Fail(1))

	if _, err := h.run(t, "/media", "", launcher.WithPause(true)); err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(h.stdout.String(), "Press Enter to exit...") {
		t.Fatalf("missing pause prompt in %q", h.stdout.String())
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	h := newHarness(t)
	lock := flock.New(h.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = h.run(t, "/media", "")
	if !errors.Is(err, services.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(h.rec.Calls()) != 0 {
		t.Fatalf("calls = %v", h.rec.Labels())
	}
}

func TestRunForwardsDotenvValues(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteFile(t, h.cfg.Python.EnvFile, "LIPSYNC_TEST_CACHE=/cache/hf\n")

	if _, err := h.run(t, "/media", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	spec := h.rec.Find(t, "download_models.py")
	if got, _ := testsupport.EnvValue(spec.Env, "LIPSYNC_TEST_CACHE"); got != "/cache/hf" {
		t.Fatalf("LIPSYNC_TEST_CACHE = %q", got)
	}
}
