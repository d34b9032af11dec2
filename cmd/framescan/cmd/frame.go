package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// errMalformedFrames signals that at least one frame violated the YUV 4:2:0
// layout; the results of the other frames are still printed.
var errMalformedFrames = errors.New("malformed frames found")

func newFrameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame FILE...",
		Short: "Decode symbols from raw YUV 4:2:0 frame dumps",
		Long: `Decode symbols from raw camera frame dumps.

The geometry is taken from the file name (preview_640x480.nv21) unless
--width and --height are given. Supported layouts are nv21, nv12 and i420;
a .yuv extension is read as NV21.

Examples:
  framescan frame preview_640x480.nv21
  framescan frame dump.bin --width 1280 --height 720 --layout nv12 --row-stride 1344
  framescan frame captures/*.nv21 --format json --project-id`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			layoutName, _ := cmd.Flags().GetString("layout")
			rowStride, _ := cmd.Flags().GetInt("row-stride")

			if (width == 0) != (height == 0) {
				return errors.New("--width and --height must be given together")
			}
			spec := frame.RawSpec{Width: width, Height: height}
			if layoutName != "" {
				layout, err := frame.ParseLayout(layoutName)
				if err != nil {
					return err
				}
				spec.Layout = layout
			}

			proc, err := scanner.NewBuilder().
				WithConfig(a.scannerConfig(cmd)).
				WithLogger(a.log()).
				Build()
			if err != nil {
				return fmt.Errorf("failed to create scanner: %w", err)
			}

			format, file, projectID := a.outputSettings(cmd)
			malformed := 0
			items := make([]batch.Item, 0, len(args))
			for _, path := range args {
				f, err := imageio.LoadRawFrame(path, spec, rowStride)
				if err != nil {
					a.log().Warn("Failed to load frame", "file", path, "error", err)
					status := batch.StatusFailed
					var fe *frame.FormatError
					if errors.As(err, &fe) {
						status = scanner.StatusMalformed
						malformed++
					}
					items = append(items, batch.Item{File: path, Status: status, Error: err.Error()})
					continue
				}
				res, err := proc.Scan(cmd.Context(), f)
				if err != nil {
					malformed++
				}
				a.log().Debug("Frame scanned", "file", path, "status", res.Status, "duration", res.Processing)
				it := batch.ItemFromResult(path, res, err)
				if projectID {
					it.AttachProjectID()
				}
				items = append(items, it)
			}

			out, err := batch.FormatItems(items, format, projectID)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), file, out); err != nil {
				return err
			}
			if malformed > 0 {
				return fmt.Errorf("%w: %d of %d", errMalformedFrames, malformed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().Int("width", 0, "frame width in pixels (default: from file name)")
	cmd.Flags().Int("height", 0, "frame height in pixels (default: from file name)")
	cmd.Flags().String("layout", "", "buffer layout: nv21, nv12 or i420 (default: from file extension)")
	cmd.Flags().Int("row-stride", 0, "luma row stride in bytes (default: width)")
	scannerFlags(cmd)
	outputFlags(cmd)
	return cmd
}
