// Package benchmark measures scan throughput for frame layouts and sizes.
package benchmark

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/render"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  `json:"alloc_bytes"`       // Currently allocated bytes
	TotalAllocBytes uint64  `json:"total_alloc_bytes"` // Total allocated bytes (cumulative)
	Mallocs         uint64  `json:"mallocs"`           // Cumulative heap allocations
	NumGC           uint32  `json:"num_gc"`
	GCCPUFraction   float64 `json:"gc_cpu_fraction"`
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		Mallocs:         m.Mallocs,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Mallocs: %d, GC: %d (%.2f%% CPU)",
		m.AllocBytes/1024,
		m.TotalAllocBytes/1024,
		m.Mallocs,
		m.NumGC,
		m.GCCPUFraction*100)
}

// Result holds the result of a benchmark run.
type Result struct {
	Name         string        `json:"name"`
	Duration     time.Duration `json:"duration_ns"`
	MemoryBefore MemoryStats   `json:"memory_before"`
	MemoryAfter  MemoryStats   `json:"memory_after"`
	Iterations   int           `json:"iterations"`
	Error        error         `json:"-"`
}

// PerOp returns the average duration of one iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// OpsPerSecond returns the throughput in iterations per second.
func (r Result) OpsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Iterations) / r.Duration.Seconds()
}

// AllocsPerOp returns the average number of heap allocations per iteration.
func (r Result) AllocsPerOp() uint64 {
	if r.Iterations == 0 || r.MemoryAfter.Mallocs < r.MemoryBefore.Mallocs {
		return 0
	}
	return (r.MemoryAfter.Mallocs - r.MemoryBefore.Mallocs) / uint64(r.Iterations) //nolint:gosec // G115: iterations is positive
}

// String returns a formatted string representation of the benchmark result.
func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, %.1f ops/s, %d allocs/op",
		r.Name, r.Iterations, r.PerOp(), r.OpsPerSecond(), r.AllocsPerOp())
}

// Benchmark represents a benchmark function.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates a new benchmark suite.
func NewSuite() *Suite {
	return &Suite{
		benchmarks: make([]Benchmark, 0),
		results:    make([]Result, 0),
	}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Names lists the registered benchmarks in order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.benchmarks))
	for i, b := range s.benchmarks {
		names[i] = b.Name
	}
	return names
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return s.runBenchmark(b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs all benchmarks in the suite. It stops early when ctx is done.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		if ctx.Err() != nil {
			break
		}
		s.results = append(s.results, s.runBenchmark(b, iterations))
	}
	return s.results
}

// runBenchmark executes a single benchmark.
func (s *Suite) runBenchmark(b Benchmark, iterations int) Result {
	// Force garbage collection before measuring
	runtime.GC()
	memBefore := GetMemoryStats()

	timer := NewTimer(b.Name)
	var err error
	done := 0
	for range iterations {
		if e := b.Func(); e != nil {
			err = e
			break
		}
		done++
	}

	duration := timer.Stop()
	return Result{
		Name:         b.Name,
		Duration:     duration,
		MemoryBefore: memBefore,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   done,
		Error:        err,
	}
}

// Results returns the last run results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes formatted benchmark results to w.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "\nBenchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
	_, _ = fmt.Fprintln(w)
}

// Size is a frame geometry.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// ParseSize parses WIDTHxHEIGHT.
func ParseSize(s string) (Size, error) {
	var sz Size
	if _, err := fmt.Sscanf(s, "%dx%d", &sz.Width, &sz.Height); err != nil || sz.Width <= 0 || sz.Height <= 0 {
		return Size{}, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", s)
	}
	return sz, nil
}

// DefaultSizes are common camera preview resolutions.
func DefaultSizes() []Size {
	return []Size{{640, 480}, {1280, 720}, {1920, 1080}}
}

// DefaultLayouts covers every buffer layout the converter accepts.
func DefaultLayouts() []frame.Layout {
	return []frame.Layout{frame.LayoutNV21, frame.LayoutNV12, frame.LayoutI420, frame.LayoutAndroid}
}

// ScanConfig selects the frames of a scan benchmark.
type ScanConfig struct {
	Scanner scanner.Config
	Layouts []frame.Layout
	Sizes   []Size
	// Payload is rendered into every frame.
	Payload string
}

// NewScanSuite builds a suite with three benchmarks per layout and size:
// Clone_* measures the pooled copy a stream takes of each published frame,
// Convert_* packing alone and Scan_* the full scan of a frame holding a
// symbol. Every scan must decode the payload.
func NewScanSuite(ctx context.Context, cfg ScanConfig) (*Suite, error) {
	if cfg.Payload == "" {
		cfg.Payload = "framescan-benchmark"
	}
	if len(cfg.Layouts) == 0 {
		cfg.Layouts = DefaultLayouts()
	}
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = DefaultSizes()
	}
	for _, size := range cfg.Sizes {
		if size.Width <= 0 || size.Height <= 0 || size.Width%2 != 0 || size.Height%2 != 0 {
			return nil, fmt.Errorf("invalid frame size %s: dimensions must be positive and even", size)
		}
	}
	proc, err := scanner.NewBuilder().WithConfig(cfg.Scanner).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	suite := NewSuite()
	for _, size := range cfg.Sizes {
		for _, layout := range cfg.Layouts {
			f, err := symbolFrame(cfg.Payload, size, layout)
			if err != nil {
				return nil, err
			}
			suffix := fmt.Sprintf("%s_%s", layout, size)
			suite.Add("Clone_"+suffix, func() error {
				f.Clone().Release()
				return nil
			})
			suite.Add("Convert_"+suffix, func() error {
				_, err := frame.Convert(f)
				return err
			})
			suite.Add("Scan_"+suffix, func() error {
				res, err := proc.Scan(ctx, f)
				if err != nil {
					return err
				}
				if res.Text != cfg.Payload {
					return fmt.Errorf("scan returned %q (%s)", res.Text, res.Status)
				}
				return nil
			})
		}
	}
	return suite, nil
}

// symbolFrame renders payload centered in a frame of the given size.
func symbolFrame(payload string, size Size, layout frame.Layout) (*frame.Frame, error) {
	opts := render.DefaultOptions()
	opts.Scale = max(2, min(size.Width, size.Height)/80)
	sym, err := render.QR(payload, opts)
	if err != nil {
		return nil, err
	}
	img, err := render.Place(sym, size.Width, size.Height, color.White)
	if err != nil {
		return nil, err
	}
	return frame.FromImage(img, frame.SynthOptions{Layout: layout})
}
