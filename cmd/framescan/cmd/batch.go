package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/batch"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files/directories...]",
		Short: "Scan many images and raw frames in parallel",
		Long: `Scan images and raw frame dumps with a pool of workers.

Directories are searched for supported files (images and *_WxH.nv21/.nv12/
.i420/.yuv dumps). Glob patterns filter the discovered file names.

Examples:
  framescan batch captures/
  framescan batch captures/ --recursive --include "*.nv21" --workers 8
  framescan batch scans/ --direct --format csv --output results.csv --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings().ToBatchConfig()
			cfg.Scanner = a.scannerConfig(cmd)
			if cmd.Flags().Changed("workers") {
				cfg.Workers, _ = cmd.Flags().GetInt("workers")
			}
			if cmd.Flags().Changed("recursive") {
				cfg.Recursive, _ = cmd.Flags().GetBool("recursive")
			}
			if cmd.Flags().Changed("continue-on-error") {
				cfg.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
			}
			if cmd.Flags().Changed("direct") {
				cfg.Direct, _ = cmd.Flags().GetBool("direct")
			}
			cfg.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
			cfg.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")

			format, file, projectID := a.outputSettings(cmd)
			cfg.Format, cfg.ProjectID = format, projectID

			a.log().Info("Starting batch", "inputs", len(args), "workers", cfg.Workers, "recursive", cfg.Recursive)
			result, err := batch.ProcessBatch(cmd.Context(), args, cfg)
			if err != nil {
				return err
			}
			a.log().Info("Batch completed", "files", len(result.Items), "decoded", result.Decoded(),
				"failed", result.Failed(), "duration", result.Duration)

			if err := result.SaveResults(cmd.OutOrStdout(), format, file, projectID); err != nil {
				return err
			}
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				result.PrintStats(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	cmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	cmd.Flags().BoolP("recursive", "r", false, "search directories recursively")
	cmd.Flags().StringSlice("include", nil, "glob patterns of files to include")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude")
	cmd.Flags().Bool("continue-on-error", true, "keep scanning when a file fails")
	cmd.Flags().Bool("direct", false, "decode images directly instead of converting them to camera frames")
	cmd.Flags().Bool("stats", false, "print processing statistics to stderr")
	scannerFlags(cmd)
	outputFlags(cmd)
	return cmd
}
