package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNotFound is returned by decoders when the image holds no readable symbol.
var ErrNotFound = errors.New("barcode: no symbol found")

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

var formatNames = map[Format]string{
	FormatQR:         "qr",
	FormatDataMatrix: "datamatrix",
	FormatAztec:      "aztec",
	FormatCode128:    "code128",
	FormatCode39:     "code39",
	FormatEAN8:       "ean8",
	FormatEAN13:      "ean13",
	FormatUPCA:       "upca",
	FormatUPCE:       "upce",
	FormatITF:        "itf",
	FormatCodabar:    "codabar",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseFormat parses a symbology name; a few common spellings are accepted.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode", "qr-code":
		return FormatQR, true
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, true
	case "aztec":
		return FormatAztec, true
	case "code128", "code-128":
		return FormatCode128, true
	case "code39", "code-39":
		return FormatCode39, true
	case "ean8", "ean-8":
		return FormatEAN8, true
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	case "upce", "upc-e":
		return FormatUPCE, true
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, true
	case "codabar":
		return FormatCodabar, true
	default:
		return FormatUnknown, false
	}
}

// ParseFormats parses a list of symbology names. Unknown names are an error.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, ok := ParseFormat(n)
		if !ok {
			return nil, fmt.Errorf("unknown barcode format: %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// Options controls decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means QR only.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// PureBarcode tells the decoder the image is a clean, unrotated symbol.
	PureBarcode bool

	// CharacterSet overrides the text encoding guess (e.g. "UTF-8").
	CharacterSet string

	// NormalizeText applies Unicode NFC normalization to decoded text.
	NormalizeText bool

	// Multi enables multi-symbol detection in still images.
	Multi bool

	// ROI optionally restricts still-image decoding to a sub-rectangle.
	// If zero-sized or out of bounds, it is ignored.
	ROI image.Rectangle
}

// Point is an integer point in image coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Result represents a decoded barcode.
type Result struct {
	Format Format          `json:"format"`
	Text   string          `json:"text"`
	Points []Point         `json:"points,omitempty"`
	BBox   image.Rectangle `json:"-"`
}

// Backend decodes symbols from still images.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the gozxing-backed still image decoder.
func NewBackend() Backend { return &imageBackend{} }
