package barcode

import (
	"errors"
	"fmt"
	"image"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/text/unicode/norm"
)

// Decoder finds a symbol in a bitonal image. A missing symbol is reported as
// an error wrapping ErrNotFound.
type Decoder interface {
	Decode(bmp *gozxing.BinaryBitmap) (Result, error)
}

// readerDecoder keeps one configured gozxing reader for reuse across frames.
type readerDecoder struct {
	reader    gozxing.Reader
	hints     map[gozxing.DecodeHintType]interface{}
	normalize bool
}

// NewDecoder builds a reusable decoder for the given options.
// A decoder is not safe for concurrent use.
func NewDecoder(opts Options) (Decoder, error) {
	reader, err := newReader(opts.Formats)
	if err != nil {
		return nil, err
	}
	return &readerDecoder{
		reader:    reader,
		hints:     buildHints(opts),
		normalize: opts.NormalizeText,
	}, nil
}

func (d *readerDecoder) Decode(bmp *gozxing.BinaryBitmap) (Result, error) {
	if bmp == nil {
		return Result{}, errors.New("decode: nil bitmap")
	}
	// Readers may cache per-image state; reset so identical input decodes identically.
	defer d.reader.Reset()

	r, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return Result{}, mapError(err)
	}
	if r == nil {
		return Result{}, ErrNotFound
	}
	return convertResult(r, d.normalize), nil
}

// newReader returns a single reader for one format and a composite reader
// trying each format in order otherwise.
func newReader(formats []Format) (gozxing.Reader, error) {
	if len(formats) == 0 {
		formats = []Format{FormatQR}
	}
	readers := make([]gozxing.Reader, 0, len(formats))
	for _, f := range formats {
		r, ok := readerFor(f)
		if !ok {
			return nil, fmt.Errorf("unsupported barcode format: %v", f)
		}
		readers = append(readers, r)
	}
	if len(readers) == 1 {
		return readers[0], nil
	}
	return &compositeReader{readers: readers}, nil
}

func readerFor(f Format) (gozxing.Reader, bool) {
	switch f {
	case FormatQR:
		return qrcode.NewQRCodeReader(), true
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader(), true
	case FormatAztec:
		return aztec.NewAztecReader(), true
	case FormatCode128:
		return oned.NewCode128Reader(), true
	case FormatCode39:
		return oned.NewCode39Reader(), true
	case FormatEAN8:
		return oned.NewEAN8Reader(), true
	case FormatEAN13:
		return oned.NewEAN13Reader(), true
	case FormatUPCA:
		return oned.NewUPCAReader(), true
	case FormatUPCE:
		return oned.NewUPCEReader(), true
	case FormatITF:
		return oned.NewITFReader(), true
	case FormatCodabar:
		return oned.NewCodaBarReader(), true
	default:
		return nil, false
	}
}

// compositeReader tries its readers in order and returns the first symbol.
type compositeReader struct {
	readers []gozxing.Reader
}

func (c *compositeReader) DecodeWithoutHints(bmp *gozxing.BinaryBitmap) (*gozxing.Result, error) {
	return c.Decode(bmp, nil)
}

func (c *compositeReader) Decode(
	bmp *gozxing.BinaryBitmap,
	hints map[gozxing.DecodeHintType]interface{},
) (*gozxing.Result, error) {
	var firstErr error
	for _, r := range c.readers {
		res, err := r.Decode(bmp, hints)
		if err == nil && res != nil {
			return res, nil
		}
		if err != nil && firstErr == nil && !isNotFound(err) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrNotFound
}

func (c *compositeReader) Reset() {
	for _, r := range c.readers {
		r.Reset()
	}
}

func buildHints(opts Options) map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})
	if len(opts.Formats) > 0 {
		var formats []gozxing.BarcodeFormat
		for _, f := range opts.Formats {
			if bf, ok := mapFormatToZXing(f); ok {
				formats = append(formats, bf)
			}
		}
		if len(formats) > 0 {
			hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = formats
		}
	}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if opts.PureBarcode {
		hints[gozxing.DecodeHintType_PURE_BARCODE] = true
	}
	if opts.CharacterSet != "" {
		hints[gozxing.DecodeHintType_CHARACTER_SET] = opts.CharacterSet
	}
	return hints
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var nf gozxing.NotFoundException
	return errors.As(err, &nf)
}

// mapError folds gozxing's not-found exception into ErrNotFound and leaves
// checksum/format failures (a symbol was seen but could not be read) as they are.
func mapError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("decode: %w", err)
}

func convertResult(r *gozxing.Result, normalize bool) Result {
	text := r.GetText()
	if normalize {
		text = norm.NFC.String(text)
	}
	var points []Point
	if pts := r.GetResultPoints(); len(pts) > 0 {
		points = make([]Point, 0, len(pts))
		for _, p := range pts {
			if p == nil {
				continue
			}
			points = append(points, Point{X: int(p.GetX()), Y: int(p.GetY())})
		}
	}
	return Result{
		Format: mapFormatFromZXing(r.GetBarcodeFormat()),
		Text:   text,
		Points: points,
		BBox:   rectFromPoints(points),
	}
}

func mapFormatToZXing(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
