package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/frame"
)

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image FILE...",
		Short: "Decode symbols from still images",
		Long: `Decode symbols from PNG, JPEG, BMP, TIFF and WebP images.

By default every image is converted into a YUV 4:2:0 camera frame and scanned
like a preview frame, which exercises the same path as a live camera. With
--direct the image is handed to the decoder as is, and --multi reports every
symbol instead of the first one.

Examples:
  framescan image photo.jpg
  framescan image label.png --direct --multi --format json
  framescan image a.png b.png --layout i420`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("image file not found: %s", path)
				}
			}

			cfg := a.settings().ToBatchConfig()
			cfg.Scanner = a.scannerConfig(cmd)
			cfg.ContinueOnError = true
			if cmd.Flags().Changed("direct") {
				cfg.Direct, _ = cmd.Flags().GetBool("direct")
			}
			cfg.Multi, _ = cmd.Flags().GetBool("multi")
			if cfg.Multi {
				cfg.Direct = true
			}
			if cmd.Flags().Changed("layout") {
				name, _ := cmd.Flags().GetString("layout")
				layout, err := frame.ParseLayout(name)
				if err != nil {
					return err
				}
				cfg.Layout = layout
			}

			format, file, projectID := a.outputSettings(cmd)
			cfg.Format, cfg.ProjectID = format, projectID
			if err := cfg.Validate(); err != nil {
				return err
			}

			a.log().Debug("Scanning images", "count", len(args), "direct", cfg.Direct, "layout", cfg.Layout)
			items, err := batch.ScanFiles(cmd.Context(), args, cfg)
			if err != nil {
				return err
			}
			out, err := batch.FormatItems(items, format, projectID)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), file, out)
		},
	}

	cmd.Flags().Bool("direct", false, "decode the image directly instead of converting it to a camera frame")
	cmd.Flags().Bool("multi", false, "report every symbol in the image (implies --direct)")
	cmd.Flags().String("layout", "", "layout of the synthesized frame: nv21, nv12, i420 or android")
	scannerFlags(cmd)
	outputFlags(cmd)
	return cmd
}
