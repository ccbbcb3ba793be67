package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"

	"lipsync/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:         "history",
		Short:       "Show recent launcher runs",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Run history is disabled (history.enabled = false)")
				return nil
			}
			store, err := history.OpenReadOnly(cfg.HistoryPath())
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				step := run.FailedStep
				if step == "" {
					step = "-"
				}
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					shortID(run.RunID),
					string(run.Outcome),
					step,
					strconv.Itoa(run.ExitCode),
					formatDuration(run.Duration()),
					yesNo(run.EnvCreated),
					run.Folder,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Run", "Outcome", "Failed Step", "Exit", "Duration", "New Env", "Folder"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	return cmd
}
