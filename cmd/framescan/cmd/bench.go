package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/benchmark"
	"github.com/MeKo-Tech/framescan/internal/frame"
)

// benchRecord is one benchmark result in JSON output.
type benchRecord struct {
	Name        string  `json:"name"`
	Iterations  int     `json:"iterations"`
	NsPerOp     int64   `json:"ns_per_op"`
	OpsPerSec   float64 `json:"ops_per_sec"`
	AllocsPerOp uint64  `json:"allocs_per_op"`
	Error       string  `json:"error,omitempty"`
}

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure frame conversion and scan throughput",
		Long: `Render a symbol into frames of each layout and size and measure how fast
they are cloned, packed and scanned.

Examples:
  framescan bench
  framescan bench --sizes 640x480,1280x720 --layouts nv21,i420 --iterations 50
  framescan bench --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iterations, _ := cmd.Flags().GetInt("iterations")
			if iterations <= 0 {
				return fmt.Errorf("iterations must be > 0, got %d", iterations)
			}
			cfg := benchmark.ScanConfig{Scanner: a.scannerConfig(cmd)}

			layouts, _ := cmd.Flags().GetStringSlice("layouts")
			for _, name := range layouts {
				l, err := frame.ParseLayout(name)
				if err != nil {
					return err
				}
				cfg.Layouts = append(cfg.Layouts, l)
			}
			sizes, _ := cmd.Flags().GetStringSlice("sizes")
			for _, s := range sizes {
				sz, err := benchmark.ParseSize(s)
				if err != nil {
					return err
				}
				cfg.Sizes = append(cfg.Sizes, sz)
			}

			suite, err := benchmark.NewScanSuite(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.log().Info("Running benchmarks", "benchmarks", len(suite.Names()), "iterations", iterations)
			results := suite.RunAll(cmd.Context(), iterations)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "json":
				records := make([]benchRecord, len(results))
				for i, r := range results {
					records[i] = benchRecord{
						Name:        r.Name,
						Iterations:  r.Iterations,
						NsPerOp:     r.PerOp().Nanoseconds(),
						OpsPerSec:   r.OpsPerSecond(),
						AllocsPerOp: r.AllocsPerOp(),
					}
					if r.Error != nil {
						records[i].Error = r.Error.Error()
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(records); err != nil {
					return err
				}
			case "text":
				suite.PrintResults(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unsupported output format: %q", format)
			}

			for _, r := range results {
				if r.Error != nil {
					return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntP("iterations", "n", 20, "iterations per benchmark")
	cmd.Flags().StringSlice("layouts", nil, "layouts to benchmark (default: nv21,nv12,i420,android)")
	cmd.Flags().StringSlice("sizes", nil, "frame sizes WIDTHxHEIGHT (default: 640x480,1280x720,1920x1080)")
	cmd.Flags().StringP("format", "f", "text", "output format: text or json")
	scannerFlags(cmd)
	return cmd
}
