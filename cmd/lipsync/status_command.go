package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lipsync/internal/config"
	"lipsync/internal/deps"
	"lipsync/internal/history"
	"lipsync/internal/preflight"
)

// checkState is how close one item is to what a run needs.
type checkState int

const (
	stateReady checkState = iota
	statePending
	stateOff
	stateOptional
	stateMissing
)

var checkStates = map[checkState]struct {
	word  string
	color text.Color
}{
	stateReady:    {"ready", text.FgGreen},
	statePending:  {"pending", text.FgCyan},
	stateOff:      {"off", text.FgHiBlack},
	stateOptional: {"optional", text.FgYellow},
	stateMissing:  {"missing", text.FgRed},
}

const statusLabelWidth = 26

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Check the environment, entry points, and system dependencies",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			s := statusWriter{colorize: isTerminal(out)}

			s.section("Launcher")
			failed := 0
			for _, result := range preflight.RunAll(cfg) {
				state := stateReady
				switch {
				case !result.Passed:
					state = stateMissing
					failed++
				case result.Pending:
					state = statePending
				}
				s.line(result.Name, state, result.Detail)
			}

			s.section("Dependencies")
			statuses := preflight.CheckSystemDeps(cfg)
			for _, status := range statuses {
				s.dependency(status)
			}

			s.section("Last run")
			s.lastRun(cmd.Context(), cfg)

			fmt.Fprintln(out, strings.Join(s.lines, "\n"))

			missing := deps.MissingRequired(statuses)
			if failed > 0 || len(missing) > 0 {
				return fmt.Errorf("%d check(s) failed; missing dependencies: %s", failed+len(missing), orNone(missing))
			}
			return nil
		},
	}
}

type statusWriter struct {
	colorize bool
	lines    []string
}

func (s *statusWriter) section(title string) {
	if len(s.lines) > 0 {
		s.lines = append(s.lines, "")
	}
	if s.colorize {
		title = text.Bold.Sprint(title)
	}
	s.lines = append(s.lines, title)
}

func (s *statusWriter) line(label string, state checkState, detail string) {
	s.lines = append(s.lines, formatCheck(label, state, detail, s.colorize))
}

// formatCheck renders "  label  [state] detail", coloring only the state tag.
func formatCheck(label string, state checkState, detail string, colorize bool) string {
	spec := checkStates[state]
	tag := fmt.Sprintf("[%s]", spec.word)
	if colorize {
		tag = spec.color.Sprint(tag)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label, tag)
	if detail != "" {
		line += " " + detail
	}
	return line
}

func (s *statusWriter) dependency(status deps.Status) {
	switch {
	case status.Available:
		s.line(status.Name, stateReady, status.Command)
	case status.Optional:
		s.line(status.Name, stateOptional, dependencyDetail(status))
	default:
		s.line(status.Name, stateMissing, dependencyDetail(status))
	}
}

func dependencyDetail(status deps.Status) string {
	if status.Description == "" {
		return status.Detail
	}
	return fmt.Sprintf("%s (%s)", status.Detail, status.Description)
}

// lastRun reads history without creating the database.
func (s *statusWriter) lastRun(ctx context.Context, cfg *config.Config) {
	if !cfg.History.Enabled {
		s.line("History", stateOff, "Disabled")
		return
	}
	store, err := history.OpenReadOnly(cfg.HistoryPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.line("History", statePending, "No runs recorded")
		return
	case err != nil:
		s.line("History", stateOptional, err.Error())
		return
	}
	defer store.Close()

	run, err := store.Last(ctx)
	switch {
	case err != nil:
		s.line("History", stateOptional, err.Error())
		return
	case run == nil:
		s.line("History", statePending, "No runs recorded")
		return
	}
	started := run.StartedAt.Local().Format("2006-01-02 15:04")
	if run.Outcome == history.OutcomeSucceeded {
		s.line(shortID(run.RunID), stateReady, fmt.Sprintf("%s at %s", run.Outcome, started))
		return
	}
	s.line(shortID(run.RunID), stateMissing, fmt.Sprintf("%s during %s (exit %d) at %s", run.Outcome, run.FailedStep, run.ExitCode, started))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func orNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
