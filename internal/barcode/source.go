package barcode

import (
	"fmt"

	gozxing "github.com/makiuchi-d/gozxing"
)

// Window selects the part of a YUV buffer exposed as luminance.
type Window struct {
	Left, Top     int
	Width, Height int
	// Flip mirrors the window horizontally.
	Flip bool
}

// FullWindow spans the whole frame without flipping.
func FullWindow(width, height int) Window {
	return Window{Width: width, Height: height}
}

// NewYUVSource exposes the luminance of a semi-planar YUV buffer of
// dataWidth x dataHeight through the given window.
func NewYUVSource(yuv []byte, dataWidth, dataHeight int, w Window) (gozxing.LuminanceSource, error) {
	if len(yuv) < dataWidth*dataHeight {
		return nil, fmt.Errorf("yuv buffer holds %d bytes, need at least %d", len(yuv), dataWidth*dataHeight)
	}
	src, err := gozxing.NewPlanarYUVLuminanceSource(
		yuv, dataWidth, dataHeight, w.Left, w.Top, w.Width, w.Height, w.Flip)
	if err != nil {
		return nil, fmt.Errorf("luminance window %+v: %w", w, err)
	}
	return src, nil
}
