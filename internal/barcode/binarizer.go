package barcode

import (
	"fmt"
	"strings"

	gozxing "github.com/makiuchi-d/gozxing"
)

// Binarizer names.
const (
	BinarizerHybrid = "hybrid"
	BinarizerGlobal = "global"
)

// Binarizer turns a luminance source into a bitonal image.
type Binarizer interface {
	Binarize(src gozxing.LuminanceSource) (*gozxing.BinaryBitmap, error)
}

type binarizerFunc func(gozxing.LuminanceSource) gozxing.Binarizer

func (f binarizerFunc) Binarize(src gozxing.LuminanceSource) (*gozxing.BinaryBitmap, error) {
	if src == nil {
		return nil, fmt.Errorf("binarize: nil luminance source")
	}
	return gozxing.NewBinaryBitmap(f(src))
}

// NewBinarizer returns the named binarizer. The hybrid binarizer (local block
// thresholds) is the default and suits camera frames; the global histogram
// binarizer is faster on evenly lit images.
func NewBinarizer(name string) (Binarizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BinarizerHybrid, "":
		return binarizerFunc(gozxing.NewHybridBinarizer), nil
	case BinarizerGlobal:
		return binarizerFunc(gozxing.NewGlobalHistgramBinarizer), nil
	default:
		return nil, fmt.Errorf("unknown binarizer: %q", name)
	}
}
