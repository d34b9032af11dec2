package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/payload"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// StatusFailed marks files that could not be read.
const StatusFailed scanner.Status = "failed"

// Symbol is one symbol found in a still image.
type Symbol struct {
	Format string `json:"format" yaml:"format"`
	Text   string `json:"text" yaml:"text"`
}

// Item is the scan outcome of one file.
type Item struct {
	File      string         `json:"file" yaml:"file"`
	Status    scanner.Status `json:"status" yaml:"status"`
	Text      string         `json:"text,omitempty" yaml:"text,omitempty"`
	Format    string         `json:"format,omitempty" yaml:"format,omitempty"`
	ProjectID string         `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Symbols   []Symbol       `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Found reports whether a symbol was decoded.
func (it Item) Found() bool { return it.Status == scanner.StatusDecoded }

// ItemFromResult converts a frame scan into an Item.
func ItemFromResult(file string, res scanner.Result, err error) Item {
	it := Item{File: file, Status: res.Status, Text: res.Text, Format: res.Format}
	if err != nil {
		it.Error = err.Error()
	}
	return it
}

// ItemFromSymbols converts still-image symbols into an Item. The first
// symbol provides Text and Format.
func ItemFromSymbols(file string, syms []barcode.Result) Item {
	it := Item{File: file, Status: scanner.StatusNotFound}
	if len(syms) == 0 {
		return it
	}
	it.Status = scanner.StatusDecoded
	it.Text = syms[0].Text
	it.Format = syms[0].Format.String()
	if len(syms) > 1 {
		it.Symbols = make([]Symbol, len(syms))
		for i, s := range syms {
			it.Symbols[i] = Symbol{Format: s.Format.String(), Text: s.Text}
		}
	}
	return it
}

// AttachProjectID fills ProjectID from the decoded text.
func (it *Item) AttachProjectID() {
	if it.Found() {
		it.ProjectID, _ = payload.ExtractProjectID(it.Text)
	}
}

// ProcessBatch discovers files among args and scans them in parallel.
func ProcessBatch(ctx context.Context, args []string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := DiscoverFiles(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no scannable files found")
	}

	start := time.Now()
	items, err := ScanFiles(ctx, files, cfg)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	return &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: min(cfg.Workers, len(files)),
	}, nil
}

// ScanFiles scans files with cfg.Workers workers, each owning a Processor.
// Items keep the order of files. Unless ContinueOnError is set the first
// failing file aborts the batch.
func ScanFiles(ctx context.Context, files []string, cfg Config) ([]Item, error) {
	workers := max(1, min(cfg.Workers, len(files)))
	b := scanner.NewBuilder().WithConfig(cfg.Scanner)
	procs := make([]*scanner.Processor, workers)
	for i := range procs {
		p, err := b.Build()
		if err != nil {
			return nil, err
		}
		procs[i] = p
	}
	opts, err := cfg.Scanner.DecodeOptions()
	if err != nil {
		return nil, err
	}
	opts.Multi = cfg.Multi
	backend := barcode.NewBackend()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	items := make([]Item, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				it := scanFile(ctx, p, backend, opts, files[i], cfg)
				if cfg.ProjectID {
					it.AttachProjectID()
				}
				items[i] = it
				if it.Error != "" {
					slog.Warn("Scan failed", "file", files[i], "status", it.Status, "error", it.Error)
					if !cfg.ContinueOnError {
						cancel(fmt.Errorf("%s: %s", files[i], it.Error))
					}
				}
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func scanFile(ctx context.Context, p *scanner.Processor, backend barcode.Backend, opts barcode.Options,
	path string, cfg Config) Item {
	if cfg.Direct && imageio.IsSupportedImage(path) {
		img, _, err := imageio.LoadImage(path)
		if err != nil {
			return Item{File: path, Status: StatusFailed, Error: err.Error()}
		}
		syms, err := backend.Decode(ctx, img, opts)
		if err != nil {
			return Item{File: path, Status: scanner.StatusDecodeError}
		}
		return ItemFromSymbols(path, syms)
	}

	f, err := imageio.LoadFrame(path, cfg.Constraints, frame.SynthOptions{Layout: cfg.Layout})
	if err != nil {
		var fe *frame.FormatError
		if errors.As(err, &fe) {
			return Item{File: path, Status: scanner.StatusMalformed, Error: err.Error()}
		}
		return Item{File: path, Status: StatusFailed, Error: err.Error()}
	}
	res, err := p.Scan(ctx, f)
	return ItemFromResult(path, res, err)
}
