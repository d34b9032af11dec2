package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
)

// Status classifies the outcome of a scan.
type Status string

const (
	StatusDecoded      Status = "decoded"
	StatusNotFound     Status = "not_found"
	StatusInapplicable Status = "inapplicable"
	StatusMalformed    Status = "malformed"
	StatusDecodeError  Status = "decode_error"
	StatusCanceled     Status = "canceled"
)

// Result is the outcome of scanning one frame.
type Result struct {
	Status Status          `json:"status"`
	Text   string          `json:"text,omitempty"`
	Format string          `json:"format,omitempty"`
	Points []barcode.Point `json:"points,omitempty"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	// Err is the decoder failure behind StatusDecodeError; it never leaves Scan as an error.
	Err        error `json:"-"`
	Processing struct {
		ConvertNs int64 `json:"convert_ns"`
		DecodeNs  int64 `json:"decode_ns"`
		TotalNs   int64 `json:"total_ns"`
	} `json:"processing"`
}

// Found reports whether a symbol was decoded.
func (r Result) Found() bool { return r.Status == StatusDecoded }

// Observer is called with the result of every scan.
type Observer func(Result)

// Processor runs the decode flow for one stream of frames. It keeps one
// decoder across calls and is not safe for concurrent use.
type Processor struct {
	cfg       Config
	binarizer barcode.Binarizer
	decoder   barcode.Decoder
	convert   func(*frame.Frame) (frame.ConvertedBuffer, error)
	observer  Observer
	logger    *slog.Logger
}

func frameConvert(f *frame.Frame) (frame.ConvertedBuffer, error) { return frame.Convert(f) }

// Config returns the processor configuration.
func (p *Processor) Config() Config { return p.cfg }

// Process decodes f and returns the text of the first symbol found.
// Extra parameters are accepted for host compatibility and ignored.
// Frames without image data or outside the YUV 4:2:0 family, malformed
// frames and decoder failures all yield ("", false).
func (p *Processor) Process(ctx context.Context, f *frame.Frame, _ ...any) (string, bool) {
	res, _ := p.Scan(ctx, f)
	if !res.Found() {
		return "", false
	}
	return res.Text, true
}

// Scan runs the same flow as Process and reports how it ended. The returned
// error is non-nil only for malformed frames (a *frame.FormatError).
func (p *Processor) Scan(ctx context.Context, f *frame.Frame) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Processing.TotalNs = time.Since(start).Nanoseconds()
		if p.observer != nil {
			p.observer(res)
		}
	}()

	if !applicable(f) {
		res.Status = StatusInapplicable
		return res, nil
	}
	res.Width, res.Height = f.Width, f.Height

	convStart := time.Now()
	buf, err := p.convert(f)
	res.Processing.ConvertNs = time.Since(convStart).Nanoseconds()
	if err != nil {
		p.logger.Warn("Malformed frame", "width", f.Width, "height", f.Height,
			"format", string(f.Format), "planes", len(f.Planes), "error", err)
		res.Status = StatusMalformed
		return res, err
	}

	if ctx != nil && ctx.Err() != nil {
		res.Status = StatusCanceled
		return res, nil
	}

	decStart := time.Now()
	sym, derr := p.decode(buf)
	res.Processing.DecodeNs = time.Since(decStart).Nanoseconds()
	switch {
	case derr == nil:
		res.Status = StatusDecoded
		res.Text = sym.Text
		res.Format = sym.Format.String()
		res.Points = sym.Points
	case errors.Is(derr, barcode.ErrNotFound):
		res.Status = StatusNotFound
		p.logger.Debug("No symbol in frame", "width", f.Width, "height", f.Height)
	default:
		res.Status = StatusDecodeError
		res.Err = derr
		p.logger.Debug("Frame decode failed", "width", f.Width, "height", f.Height, "error", derr)
	}
	return res, nil
}

// decode windows the full luminance plane, binarizes it and decodes it.
// Panics raised inside the decoding library are turned into errors.
func (p *Processor) decode(buf frame.ConvertedBuffer) (sym barcode.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	src, err := barcode.NewYUVSource(buf.Data, buf.Width, buf.Height, barcode.FullWindow(buf.Width, buf.Height))
	if err != nil {
		return barcode.Result{}, err
	}
	bmp, err := p.binarizer.Binarize(src)
	if err != nil {
		return barcode.Result{}, fmt.Errorf("binarize: %w", err)
	}
	return p.decoder.Decode(bmp)
}

func applicable(f *frame.Frame) bool {
	return f.HasImage() && f.Format.Is420()
}
