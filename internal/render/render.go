// Package render draws QR symbols into images and camera frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/MeKo-Tech/framescan/internal/frame"
)

// Recovery levels.
const (
	LevelLow     = "low"
	LevelMedium  = "medium"
	LevelHigh    = "high"
	LevelHighest = "highest"
)

// Options controls symbol rendering.
type Options struct {
	// Scale is the edge length of one module in pixels. Defaults to 4.
	Scale int
	// Level is the error correction level. Defaults to medium.
	Level string
	// NoBorder drops the four-module quiet zone.
	NoBorder bool
	// Margin adds extra white pixels around the symbol.
	Margin int
}

// DefaultOptions returns the options used by the render command.
func DefaultOptions() Options {
	return Options{Scale: 4, Level: LevelMedium}
}

// ParseLevel maps a level name to the encoder's recovery level.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case LevelLow:
		return qrcode.Low, nil
	case LevelMedium, "":
		return qrcode.Medium, nil
	case LevelHigh:
		return qrcode.High, nil
	case LevelHighest:
		return qrcode.Highest, nil
	default:
		return qrcode.Medium, fmt.Errorf("unknown recovery level: %q", s)
	}
}

// QR renders text as a QR symbol, black modules on white.
func QR(text string, opts Options) (*image.Gray, error) {
	if text == "" {
		return nil, fmt.Errorf("render: empty content")
	}
	if opts.Scale <= 0 {
		opts.Scale = 4
	}
	if opts.Margin < 0 {
		return nil, fmt.Errorf("render: negative margin %d", opts.Margin)
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	q, err := qrcode.New(text, level)
	if err != nil {
		return nil, fmt.Errorf("render: encode %q: %w", text, err)
	}
	q.DisableBorder = opts.NoBorder

	bitmap := q.Bitmap()
	modules := len(bitmap)
	side := modules*opts.Scale + 2*opts.Margin
	img := image.NewGray(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for my, row := range bitmap {
		for mx, dark := range row {
			if !dark {
				continue
			}
			x0 := opts.Margin + mx*opts.Scale
			y0 := opts.Margin + my*opts.Scale
			for y := y0; y < y0+opts.Scale; y++ {
				off := img.PixOffset(x0, y)
				for x := range opts.Scale {
					img.Pix[off+x] = 0
				}
			}
		}
	}
	return img, nil
}

// Frame renders text into a camera frame of the given layout.
func Frame(text string, opts Options, synth frame.SynthOptions) (*frame.Frame, error) {
	img, err := QR(text, opts)
	if err != nil {
		return nil, err
	}
	return frame.FromImage(img, synth)
}

// Place draws src centered on a canvas of width x height filled with bg.
// Larger sources are downscaled to fit.
func Place(src image.Image, width, height int, bg color.Color) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid canvas %dx%d", width, height)
	}
	b := src.Bounds()
	if b.Dx() > width || b.Dy() > height {
		src = imaging.Fit(src, width, height, imaging.NearestNeighbor)
		b = src.Bounds()
	}
	canvas := imaging.New(width, height, bg)
	pos := image.Pt((width-b.Dx())/2, (height-b.Dy())/2)
	return imaging.Paste(canvas, src, pos), nil
}

// Save writes img to path; the format follows the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}
