// Package imageio loads still images and raw frame dumps for scanning.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/framescan/internal/frame"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// LoadError wraps failures while reading or decoding input files.
type LoadError struct {
	Operation string
	Path      string
	Err       error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("image load error in %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("image load error in %s (%s): %v", e.Operation, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// IsSupported reports whether path is an image or a raw frame dump.
func IsSupported(path string) bool {
	return IsSupportedImage(path) || frame.IsRawName(path)
}

// Metadata captures lightweight file and pixel information.
type Metadata struct {
	Path      string `json:"path,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// LoadImage opens and decodes an image file.
func LoadImage(path string) (image.Image, Metadata, error) {
	if path == "" {
		return nil, Metadata{}, &LoadError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, Metadata{}, &LoadError{Operation: "load", Path: path,
			Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}

	f, err := os.Open(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, Metadata{}, &LoadError{Operation: "load", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, Metadata{}, &LoadError{Operation: "load", Path: path, Err: err}
	}

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, Metadata{}, &LoadError{Operation: "decode", Path: path, Err: err}
	}
	b := img.Bounds()
	meta := Metadata{Format: format, Width: b.Dx(), Height: b.Dy()}
	meta.Path = path
	meta.SizeBytes = fi.Size()
	return img, meta, nil
}

// DecodeImage decodes an image from r, e.g. an uploaded file.
func DecodeImage(r io.Reader) (image.Image, Metadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, Metadata{}, &LoadError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	return img, Metadata{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

// Constraints bound the size of images turned into frames.
type Constraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultConstraints returns limits matching common camera preview sizes.
func DefaultConstraints() Constraints {
	return Constraints{MaxWidth: 1920, MaxHeight: 1920, MinWidth: 16, MinHeight: 16}
}

// Fit downscales img to fit the constraints, preserving aspect ratio.
// Images are never upscaled.
func Fit(img image.Image, c Constraints) (image.Image, error) {
	if img == nil {
		return nil, &LoadError{Operation: "fit", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() < c.MinWidth || b.Dy() < c.MinHeight {
		return nil, &LoadError{Operation: "fit",
			Err: fmt.Errorf("image dimensions %dx%d below minimum %dx%d", b.Dx(), b.Dy(), c.MinWidth, c.MinHeight)}
	}
	if (c.MaxWidth <= 0 || b.Dx() <= c.MaxWidth) && (c.MaxHeight <= 0 || b.Dy() <= c.MaxHeight) {
		return img, nil
	}
	maxW, maxH := c.MaxWidth, c.MaxHeight
	if maxW <= 0 {
		maxW = b.Dx()
	}
	if maxH <= 0 {
		maxH = b.Dy()
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos), nil
}

// ImageToFrame fits img to c and synthesizes a camera frame from it.
func ImageToFrame(img image.Image, c Constraints, opts frame.SynthOptions) (*frame.Frame, error) {
	fitted, err := Fit(img, c)
	if err != nil {
		return nil, err
	}
	f, err := frame.FromImage(fitted, opts)
	if err != nil {
		return nil, &LoadError{Operation: "frame", Err: err}
	}
	return f, nil
}

// LoadRawFrame reads a raw frame dump. When spec has no geometry it is taken
// from the file name (scan_640x480.nv21).
func LoadRawFrame(path string, spec frame.RawSpec, rowStride int) (*frame.Frame, error) {
	if spec.Width == 0 || spec.Height == 0 {
		parsed, ok := frame.ParseRawName(path)
		if !ok {
			return nil, &LoadError{Operation: "load", Path: path,
				Err: errors.New("frame geometry unknown: name the file like scan_640x480.nv21 or pass width and height")}
		}
		if spec.Layout == "" {
			spec.Layout = parsed.Layout
		}
		spec.Width, spec.Height = parsed.Width, parsed.Height
	}
	if spec.Layout == "" {
		spec.Layout = frame.LayoutNV21
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided frame file path is expected
	if err != nil {
		return nil, &LoadError{Operation: "load", Path: path, Err: err}
	}
	f, err := frame.FromRaw(data, spec.Width, spec.Height, spec.Layout, rowStride)
	if err != nil {
		return nil, &LoadError{Operation: "frame", Path: path, Err: err}
	}
	return f, nil
}

// LoadFrame loads path as a frame: raw dumps directly, images through
// ImageToFrame.
func LoadFrame(path string, c Constraints, opts frame.SynthOptions) (*frame.Frame, error) {
	if frame.IsRawName(path) {
		return LoadRawFrame(path, frame.RawSpec{}, 0)
	}
	img, _, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	f, err := ImageToFrame(img, c, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return f, nil
}
