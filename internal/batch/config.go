// Package batch scans many image and raw frame files with a worker pool.
package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// Config holds all configuration for batch processing.
type Config struct {
	Scanner scanner.Config

	// Direct scans still images with the image backend instead of
	// converting them to camera frames first.
	Direct bool
	// Multi reports every symbol of a still image (direct mode only).
	Multi bool
	// Layout of the frames synthesized from images.
	Layout      frame.Layout
	Constraints imageio.Constraints

	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format    string
	ProjectID bool
}

// DefaultConfig returns the configuration used by the batch command.
func DefaultConfig() Config {
	return Config{
		Scanner:         scanner.DefaultConfig(),
		Layout:          frame.LayoutNV21,
		Constraints:     imageio.DefaultConstraints(),
		Workers:         4,
		ContinueOnError: true,
		Format:          "text",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if !IsFormat(c.Format) {
		return fmt.Errorf("unsupported output format: %q", c.Format)
	}
	if _, err := frame.ParseLayout(string(c.Layout)); err != nil {
		return err
	}
	return c.Scanner.Validate()
}

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Decoded counts items with at least one decoded symbol.
func (r *Result) Decoded() int {
	n := 0
	for _, it := range r.Items {
		if it.Found() {
			n++
		}
	}
	return n
}

// Failed counts items that could not be loaded or were malformed.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Error != "" {
			n++
		}
	}
	return n
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string, projectID bool) (string, error) {
	return FormatItems(r.Items, format, projectID)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, projectID bool) error {
	output, err := r.FormatResults(format, projectID)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	if w == nil {
		return errors.New("no output writer")
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	total := len(r.Items)
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", total)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", r.Decoded())
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if total > 0 && r.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", float64(total)/r.Duration.Seconds())
	}
}
