package main

import (
	"github.com/spf13/cobra"

	"lipsync/internal/command"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithExecutor(command.OSExecutor{})
}

func newRootCommandWithExecutor(exec command.Executor) *cobra.Command {
	var configFlag string
	var opts runOptions

	ctx := newCommandContext(&configFlag, exec)

	rootCmd := &cobra.Command{
		Use:   "lipsync [folder]",
		Short: "Prepare the Python environment and run batch lip-sync inference",
		Long: `lipsync provisions the Python environment (once), installs the accelerated
and general requirement sets, downloads model assets, and runs batch inference
over a folder of matching .mp4/.mp3 pairs.

When no folder is given, lipsync prompts for one.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, ctx, args, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	bindRunFlags(rootCmd, &opts)

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
