package pdf

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/imageio"
	"github.com/MeKo-Tech/framescan/internal/scanner"
)

// ScanFunc finds the symbols in one extracted image.
type ScanFunc func(ctx context.Context, img image.Image) ([]barcode.Result, error)

// BackendScan scans images directly with a still image backend.
func BackendScan(b barcode.Backend, opts barcode.Options) ScanFunc {
	return func(ctx context.Context, img image.Image) ([]barcode.Result, error) {
		return b.Decode(ctx, img, opts)
	}
}

// FrameScan converts each image to a camera frame and runs it through p,
// exercising the same path as live frames. p must not be shared.
func FrameScan(p *scanner.Processor, c imageio.Constraints) ScanFunc {
	return func(ctx context.Context, img image.Image) ([]barcode.Result, error) {
		f, err := imageio.ImageToFrame(img, c, frame.SynthOptions{})
		if err != nil {
			return nil, err
		}
		res, err := p.Scan(ctx, f)
		if err != nil {
			return nil, err
		}
		if !res.Found() {
			return nil, nil
		}
		format, _ := barcode.ParseFormat(res.Format)
		return []barcode.Result{{Format: format, Text: res.Text, Points: res.Points}}, nil
	}
}

// ImageResult holds the symbols found in one embedded image.
type ImageResult struct {
	ImageIndex int              `json:"image_index"`
	Name       string           `json:"name,omitempty"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Symbols    []barcode.Result `json:"symbols"`
	Error      string           `json:"error,omitempty"`
}

// PageResult groups the images of one page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Images     []ImageResult `json:"images"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	DecodeTimeMs     int64 `json:"decode_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// DocumentResult holds the scan results of a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// Texts returns every decoded text in page order.
func (d *DocumentResult) Texts() []string {
	out := []string{}
	for _, p := range d.Pages {
		for _, img := range p.Images {
			for _, s := range img.Symbols {
				out = append(out, s.Text)
			}
		}
	}
	return out
}

// SymbolCount returns the number of decoded symbols.
func (d *DocumentResult) SymbolCount() int { return len(d.Texts()) }

// ScanFile extracts the embedded images of a PDF and scans each of them.
// A failing image is recorded on its ImageResult; only extraction failures
// and cancellation abort the scan.
func ScanFile(ctx context.Context, path string, opts Options, scan ScanFunc) (*DocumentResult, error) {
	if scan == nil {
		return nil, fmt.Errorf("pdf scan: nil scan function")
	}
	start := time.Now()

	total, err := PageCount(path, opts)
	if err != nil {
		return nil, err
	}
	images, err := ExtractImages(path, opts)
	if err != nil {
		return nil, err
	}
	extracted := time.Now()

	doc := &DocumentResult{Filename: path, TotalPages: total}
	pageAt := make(map[int]int)
	for _, pi := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := pi.Image.Bounds()
		ir := ImageResult{ImageIndex: pi.Index, Name: pi.Name, Width: b.Dx(), Height: b.Dy()}
		syms, err := scan(ctx, pi.Image)
		if err != nil {
			ir.Error = err.Error()
		}
		ir.Symbols = syms
		if ir.Symbols == nil {
			ir.Symbols = []barcode.Result{}
		}

		idx, ok := pageAt[pi.Page]
		if !ok {
			idx = len(doc.Pages)
			pageAt[pi.Page] = idx
			doc.Pages = append(doc.Pages, PageResult{PageNumber: pi.Page})
		}
		doc.Pages[idx].Images = append(doc.Pages[idx].Images, ir)
	}

	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: extracted.Sub(start).Milliseconds(),
		DecodeTimeMs:     time.Since(extracted).Milliseconds(),
		TotalTimeMs:      time.Since(start).Milliseconds(),
	}
	return doc, nil
}
