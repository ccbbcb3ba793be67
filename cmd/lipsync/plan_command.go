package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lipsync/internal/deps"
	"lipsync/internal/media"
	"lipsync/internal/media/ffprobe"
	"lipsync/internal/venv"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	var ffprobeBinary string

	cmd := &cobra.Command{
		Use:         "plan <folder>",
		Short:       "List the video/audio pairs batch inference would process",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, err := media.FindPairs(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(scan.Pairs) == 0 {
				fmt.Fprintf(out, "No matching .mp4/.mp3 pairs in %s\n", scan.Folder)
			} else {
				var prober *ffprobe.Prober
				if probe {
					prober = ffprobe.New(resolveProbeBinary(ctx, ffprobeBinary), ctx.exec)
				}
				headers := []string{"Name", "Video", "Audio", "State"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}
				if probe {
					headers = append(headers, "Video (s)", "Audio (s)", "Pad (s)")
					aligns = append(aligns, alignRight, alignRight, alignRight)
				}
				rows := make([][]string, 0, len(scan.Pairs))
				for _, pair := range scan.Pairs {
					state := "pending"
					if pair.Done {
						state = "done"
					}
					row := []string{pair.Name, filepath.Base(pair.Video), filepath.Base(pair.Audio), state}
					if prober != nil {
						row = append(row, probeColumns(cmd, prober, pair)...)
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				fmt.Fprintf(out, "%d pair(s), %d pending\n", len(scan.Pairs), len(scan.Pending()))
			}
			if len(scan.UnmatchedVideos) > 0 {
				fmt.Fprintf(out, "Videos without audio: %s\n", strings.Join(scan.UnmatchedVideos, ", "))
			}
			if len(scan.UnmatchedAudio) > 0 {
				fmt.Fprintf(out, "Audio without video: %s\n", strings.Join(scan.UnmatchedAudio, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Measure durations with ffprobe and show the audio padding")
	cmd.Flags().StringVar(&ffprobeBinary, "ffprobe", "", "ffprobe binary (default: the environment's, then PATH)")
	return cmd
}

func probeColumns(cmd *cobra.Command, prober *ffprobe.Prober, pair media.Pair) []string {
	videoSeconds, err := prober.Duration(cmd.Context(), pair.Video)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "probe %s: %v\n", pair.Video, err)
		return []string{"?", "?", "?"}
	}
	audioSeconds, err := prober.Duration(cmd.Context(), pair.Audio)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "probe %s: %v\n", pair.Audio, err)
		return []string{fmt.Sprintf("%.2f", videoSeconds), "?", "?"}
	}
	return []string{
		fmt.Sprintf("%.2f", videoSeconds),
		fmt.Sprintf("%.2f", audioSeconds),
		fmt.Sprintf("%.2f", media.PadSeconds(videoSeconds, audioSeconds)),
	}
}

// resolveProbeBinary prefers an explicit flag, then an ffprobe shipped inside
// the environment, then PATH.
func resolveProbeBinary(ctx *commandContext, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	cfg, err := ctx.loadConfig()
	if err != nil || cfg == nil {
		return ffprobe.DefaultBinary
	}
	binDir, _ := venv.Layout(cfg.Paths.EnvDir)
	if path, ok := deps.InEnvironment(binDir, ffprobe.DefaultBinary); ok {
		return path
	}
	return ffprobe.DefaultBinary
}
