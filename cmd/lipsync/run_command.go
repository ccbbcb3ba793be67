package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lipsync/internal/config"
	"lipsync/internal/history"
	"lipsync/internal/launcher"
	"lipsync/internal/logging"
	"lipsync/internal/prompt"
)

type runOptions struct {
	noPause bool
	summary bool
}

func bindRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.noPause, "no-pause", false, "Exit without waiting for acknowledgment")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print a per-step summary table after the run")
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [folder]",
		Short: "Run the launch sequence (same as invoking lipsync directly)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, ctx, args, opts)
		},
	}
	bindRunFlags(cmd, &opts)
	return cmd
}

func runLaunch(cmd *cobra.Command, ctx *commandContext, args []string, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	folder := ""
	if len(args) > 0 {
		folder = args[0]
	}

	logger, closer, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.CloseQuietly(closer)

	options := []launcher.Option{
		launcher.WithExecutor(ctx.exec),
		launcher.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		launcher.WithLogger(logger),
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(cmd.Context(), logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not be recorded"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions or set history.enabled = false"),
			)
		} else {
			defer store.Close()
			options = append(options, launcher.WithHistory(store))
		}
	}
	mode := cfg.Run.Pause
	if opts.noPause {
		mode = config.PauseNever
	}
	options = append(options, launcher.WithPause(prompt.ShouldPause(mode, cmd.InOrStdin())))
	if opts.summary {
		out := cmd.OutOrStdout()
		options = append(options, launcher.WithReport(func(result launcher.Result) {
			fmt.Fprintln(out, renderRunSummary(result))
		}))
	}

	l, err := launcher.New(cfg, options...)
	if err != nil {
		return err
	}
	_, runErr := l.Run(cmd.Context(), folder)
	return runErr
}

func renderRunSummary(result launcher.Result) string {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(result.Steps))
	for _, step := range result.Steps {
		duration := "-"
		if step.Status != launcher.StepSkipped {
			duration = formatDuration(step.Duration)
		}
		rows = append(rows, []string{title.String(step.Name), string(step.Status), duration})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (exit code %d)\n", result.RunID, result.ExitCode)
	b.WriteString(renderTable([]string{"Step", "Status", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	for _, warning := range result.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", warning)
	}
	return b.String()
}
