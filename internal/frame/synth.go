package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// Layout selects how synthesized or raw frames arrange their planes.
type Layout string

const (
	LayoutNV21 Layout = "nv21"
	LayoutNV12 Layout = "nv12"
	LayoutI420 Layout = "i420"
	// LayoutAndroid mimics YUV_420_888 backed by NV21 memory: three planes where
	// U and V are overlapping views with pixel stride 2.
	LayoutAndroid Layout = "android"
)

// ParseLayout parses a layout name case-insensitively.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutNV21, LayoutNV12, LayoutI420, LayoutAndroid:
		return l, nil
	case "":
		return LayoutNV21, nil
	default:
		return "", fmt.Errorf("unknown frame layout: %q", s)
	}
}

// SynthOptions controls frame synthesis.
type SynthOptions struct {
	Layout Layout
	// RowPadding adds unused bytes at the end of every row, as cameras with
	// aligned strides do.
	RowPadding int
}

// FromImage renders an image into a YUV 4:2:0 frame. Odd trailing rows and
// columns are dropped so the frame dimensions are even.
func FromImage(img image.Image, opts SynthOptions) (*Frame, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if opts.RowPadding < 0 {
		return nil, fmt.Errorf("negative row padding: %d", opts.RowPadding)
	}
	b := img.Bounds()
	w, h := b.Dx()&^1, b.Dy()&^1
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image too small for 4:2:0: %dx%d", b.Dx(), b.Dy())
	}
	y, cb, cr := sampleYCbCr(img, w, h)
	return assemble(y, cb, cr, w, h, opts)
}

// sampleYCbCr returns full-resolution luma and 2x2-averaged chroma.
func sampleYCbCr(img image.Image, w, h int) (y, cb, cr []byte) {
	b := img.Bounds()
	cw, ch := w/2, h/2
	y = make([]byte, w*h)
	cb = make([]byte, cw*ch)
	cr = make([]byte, cw*ch)

	if g, ok := img.(*image.Gray); ok {
		for row := range h {
			off := g.PixOffset(b.Min.X, b.Min.Y+row)
			copy(y[row*w:(row+1)*w], g.Pix[off:off+w])
		}
		for i := range cb {
			cb[i], cr[i] = 128, 128
		}
		return y, cb, cr
	}

	sumCb := make([]int, cw*ch)
	sumCr := make([]int, cw*ch)
	for row := range h {
		for col := range w {
			r, g, bl, _ := img.At(b.Min.X+col, b.Min.Y+row).RGBA()
			yy, u, v := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			y[row*w+col] = yy
			ci := (row/2)*cw + col/2
			sumCb[ci] += int(u)
			sumCr[ci] += int(v)
		}
	}
	for i := range sumCb {
		cb[i] = byte(sumCb[i] / 4)
		cr[i] = byte(sumCr[i] / 4)
	}
	return y, cb, cr
}

func assemble(y, cb, cr []byte, w, h int, opts SynthOptions) (*Frame, error) {
	pad := opts.RowPadding
	stride := w + pad
	luma := make([]byte, stride*h)
	for row := range h {
		copy(luma[row*stride:], y[row*w:(row+1)*w])
	}
	yPlane := Plane{Data: luma, RowStride: stride, PixelStride: 1}

	cw, ch := w/2, h/2
	switch opts.Layout {
	case LayoutNV21, "":
		return &Frame{Width: w, Height: h, Format: FormatNV21, Planes: []Plane{
			yPlane, {Data: interleave(cr, cb, cw, ch, stride), RowStride: stride, PixelStride: 2},
		}}, nil
	case LayoutNV12:
		return &Frame{Width: w, Height: h, Format: FormatNV12, Planes: []Plane{
			yPlane, {Data: interleave(cb, cr, cw, ch, stride), RowStride: stride, PixelStride: 2},
		}}, nil
	case LayoutI420:
		cs := cw + pad
		return &Frame{Width: w, Height: h, Format: FormatI420, Planes: []Plane{
			yPlane,
			{Data: padRows(cb, cw, ch, cs), RowStride: cs, PixelStride: 1},
			{Data: padRows(cr, cw, ch, cs), RowStride: cs, PixelStride: 1},
		}}, nil
	case LayoutAndroid:
		vu := interleave(cr, cb, cw, ch, stride)
		// The buffer ends right after the last sample, like a camera HAL allocation.
		vu = vu[:(ch-1)*stride+w]
		return &Frame{Width: w, Height: h, Format: FormatYUV420, Planes: []Plane{
			yPlane,
			{Data: vu[1:], RowStride: stride, PixelStride: 2},
			{Data: vu[:len(vu)-1], RowStride: stride, PixelStride: 2},
		}}, nil
	default:
		return nil, fmt.Errorf("unknown frame layout: %q", opts.Layout)
	}
}

func interleave(first, second []byte, cw, ch, stride int) []byte {
	out := make([]byte, stride*ch)
	for row := range ch {
		dst := out[row*stride:]
		for col := range cw {
			dst[2*col] = first[row*cw+col]
			dst[2*col+1] = second[row*cw+col]
		}
	}
	return out
}

func padRows(src []byte, cw, ch, stride int) []byte {
	out := make([]byte, stride*ch)
	for row := range ch {
		copy(out[row*stride:], src[row*cw:(row+1)*cw])
	}
	return out
}

// FromRaw splits a raw frame dump into planes. rowStride of zero means tightly
// packed. The returned frame aliases data.
func FromRaw(data []byte, w, h int, layout Layout, rowStride int) (*Frame, error) {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return nil, frameError("invalid dimensions %dx%d", w, h)
	}
	stride := rowStride
	if stride == 0 {
		stride = w
	}
	if stride < w {
		return nil, frameError("row stride %d smaller than width %d", stride, w)
	}
	if stride > math.MaxInt/2/h {
		return nil, frameError("geometry %dx%d with row stride %d is too large", w, h, stride)
	}
	ySize := stride * h

	switch layout {
	case LayoutNV21, LayoutNV12, "":
		need := ySize + (h/2-1)*stride + w
		if len(data) < need {
			return nil, frameError("raw frame holds %d bytes, need %d", len(data), need)
		}
		if limit := ySize + h/2*stride; len(data) > limit {
			return nil, frameError("raw frame holds %d bytes, at most %d expected", len(data), limit)
		}
		format := FormatNV21
		if layout == LayoutNV12 {
			format = FormatNV12
		}
		return &Frame{Width: w, Height: h, Format: format, Planes: []Plane{
			{Data: data[:ySize], RowStride: stride, PixelStride: 1},
			{Data: data[ySize:], RowStride: stride, PixelStride: 2},
		}}, nil
	case LayoutI420:
		cs := stride / 2
		cSize := cs * h / 2
		if len(data) != ySize+2*cSize {
			return nil, frameError("raw frame holds %d bytes, need %d", len(data), ySize+2*cSize)
		}
		return &Frame{Width: w, Height: h, Format: FormatI420, Planes: []Plane{
			{Data: data[:ySize], RowStride: stride, PixelStride: 1},
			{Data: data[ySize : ySize+cSize], RowStride: cs, PixelStride: 1},
			{Data: data[ySize+cSize : ySize+2*cSize], RowStride: cs, PixelStride: 1},
		}}, nil
	default:
		return nil, fmt.Errorf("layout %q cannot be read from a raw dump", layout)
	}
}

// Gray returns the luminance of the buffer as a grayscale image sharing its memory.
func (b ConvertedBuffer) Gray() *image.Gray {
	return &image.Gray{
		Pix:    b.Luma(),
		Stride: b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Bytes returns the frame in the tightly packed byte layout FromRaw reads.
// Only two-plane semi-planar and three-plane I420 frames can be serialized.
func Bytes(f *Frame) ([]byte, error) {
	buf, err := Convert(f)
	if err != nil {
		return nil, err
	}
	if f.Format != FormatI420 {
		return buf.Data, nil
	}
	w, h := f.Width, f.Height
	cw, ch := w/2, h/2
	out := make([]byte, len(buf.Data))
	copy(out, buf.Luma())
	chroma := buf.Chroma()
	u := out[w*h : w*h+cw*ch]
	v := out[w*h+cw*ch:]
	for i := range cw * ch {
		u[i] = chroma[2*i]
		v[i] = chroma[2*i+1]
	}
	return out, nil
}
