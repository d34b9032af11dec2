package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
	mqrcode "github.com/makiuchi-d/gozxing/multi/qrcode"
)

type imageBackend struct{}

// Decode returns every symbol found in img. An image without symbols yields
// an empty result and no error.
func (b *imageBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, errors.New("decode: nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			img = roiImg
		}
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}

	hints := buildHints(opts)

	var results []*gozxing.Result
	if opts.Multi {
		var mr multi.MultipleBarcodeReader
		if mr, err = newMultipleReader(opts.Formats); err != nil {
			return nil, err
		}
		results, err = mr.DecodeMultiple(bitmap, hints)
	} else {
		var reader gozxing.Reader
		if reader, err = newReader(opts.Formats); err != nil {
			return nil, err
		}
		var r *gozxing.Result
		r, err = reader.Decode(bitmap, hints)
		if err == nil && r != nil {
			results = []*gozxing.Result{r}
		}
	}
	if err != nil {
		if isNotFound(err) {
			return []Result{}, nil
		}
		return nil, mapError(err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, convertResult(r, opts.NormalizeText))
	}
	return out, nil
}

// newMultipleReader finds every QR symbol with the QR multi reader, which
// walks all finder-pattern sets in one pass. Other formats have no multi
// reader in gozxing and contribute at most one symbol each.
func newMultipleReader(formats []Format) (multi.MultipleBarcodeReader, error) {
	if len(formats) == 0 {
		formats = []Format{FormatQR}
	}
	mr := &formatMultiReader{}
	for _, f := range formats {
		if f == FormatQR {
			if mr.qr == nil {
				mr.qr = mqrcode.NewQRCodeMultiReader()
			}
			continue
		}
		r, ok := readerFor(f)
		if !ok {
			return nil, fmt.Errorf("unsupported barcode format: %v", f)
		}
		mr.single = append(mr.single, r)
	}
	return mr, nil
}

// formatMultiReader merges the QR multi reader with single readers.
type formatMultiReader struct {
	qr     multi.MultipleBarcodeReader
	single []gozxing.Reader
}

func (m *formatMultiReader) DecodeMultipleWithoutHint(bmp *gozxing.BinaryBitmap) ([]*gozxing.Result, error) {
	return m.DecodeMultiple(bmp, nil)
}

// DecodeMultiple reports not found only when no reader found anything. A
// failure of one reader is returned when nothing else was decoded.
func (m *formatMultiReader) DecodeMultiple(
	bmp *gozxing.BinaryBitmap,
	hints map[gozxing.DecodeHintType]interface{},
) ([]*gozxing.Result, error) {
	var (
		out      []*gozxing.Result
		firstErr error
	)
	note := func(err error) {
		if err != nil && firstErr == nil && !isNotFound(err) {
			firstErr = err
		}
	}
	if m.qr != nil {
		res, err := m.qr.DecodeMultiple(bmp, hints)
		note(err)
		out = append(out, res...)
	}
	for _, r := range m.single {
		res, err := r.Decode(bmp, hints)
		r.Reset()
		note(err)
		if err == nil && res != nil {
			out = append(out, res)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrNotFound
}

// subImage returns the part of img inside r, copying when the image type
// has no SubImage method.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	dst := image.NewRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rb.Min, draw.Src)
	return dst, true
}
