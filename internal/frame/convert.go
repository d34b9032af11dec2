package frame

import "math"

// ConvertedBuffer is a contiguous semi-planar 4:2:0 image: Width*Height luminance
// bytes followed by Width*Height/2 interleaved chrominance bytes.
type ConvertedBuffer struct {
	Data   []byte
	Width  int
	Height int
}

// Luma returns the luminance part of the buffer.
func (b ConvertedBuffer) Luma() []byte { return b.Data[:b.Width*b.Height] }

// Chroma returns the interleaved chrominance part of the buffer.
func (b ConvertedBuffer) Chroma() []byte { return b.Data[b.Width*b.Height:] }

// ConvertedSize returns the size of a converted buffer for the given dimensions.
func ConvertedSize(width, height int) int { return width * height * 3 / 2 }

// Convert packs a YUV 4:2:0 frame into a freshly allocated ConvertedBuffer.
//
// Plane 0 is copied row by row honoring its row stride. Chrominance is taken
// from plane 1: a two-plane frame with pixel stride 2 has its interleaved rows
// copied as they are; a three-plane frame has planes 1 and 2 interleaved
// (plane 1 first), whether each holds its samples with pixel stride 1 or 2.
// Every plane is checked against the declared dimensions before anything is
// allocated. Geometry that does not fit yields a *FormatError; nothing is
// truncated silently.
func Convert(f *Frame) (ConvertedBuffer, error) {
	if f == nil {
		return ConvertedBuffer{}, frameError("nil frame")
	}
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		return ConvertedBuffer{}, frameError("invalid dimensions %dx%d", w, h)
	}
	if w%2 != 0 || h%2 != 0 {
		return ConvertedBuffer{}, frameError("dimensions %dx%d are not even", w, h)
	}
	if w > math.MaxInt/3/h {
		return ConvertedBuffer{}, frameError("dimensions %dx%d are too large", w, h)
	}
	if len(f.Planes) < 2 {
		return ConvertedBuffer{}, frameError("need at least 2 planes, got %d", len(f.Planes))
	}

	lumaStride, err := checkLuma(f.Planes[0], w, h)
	if err != nil {
		return ConvertedBuffer{}, err
	}
	chroma, err := planChroma(f.Planes, w, h)
	if err != nil {
		return ConvertedBuffer{}, err
	}

	out := make([]byte, ConvertedSize(w, h))
	copyRows(out[:w*h], f.Planes[0].Data, lumaStride, w, h)
	chroma(out[w*h:])
	return ConvertedBuffer{Data: out, Width: w, Height: h}, nil
}

// extent returns (rows-1)*stride+last, the bytes a plane must hold, and
// reports false when that does not fit in an int.
func extent(rows, stride, last int) (int, bool) {
	if rows > 1 && stride > (math.MaxInt-last)/(rows-1) {
		return 0, false
	}
	return (rows-1)*stride + last, true
}

// checkPlane validates a plane of rows rows, each rowLen bytes wide, and
// returns its effective row stride. The final row needs only minLast bytes;
// the plane may not hold more than rows full strides.
func checkPlane(op string, index int, p Plane, rows, rowLen, minLast int) (int, error) {
	stride := p.RowStride
	if stride == 0 {
		stride = rowLen
	}
	if stride < rowLen {
		return 0, planeError(op, index, "row stride %d smaller than row width %d", stride, rowLen)
	}
	need, ok := extent(rows, stride, minLast)
	if !ok {
		return 0, planeError(op, index, "geometry %d rows of stride %d overflows", rows, stride)
	}
	if len(p.Data) < need {
		return 0, planeError(op, index, "plane holds %d bytes, need %d", len(p.Data), need)
	}
	if limit := need + stride - minLast; len(p.Data) > limit {
		return 0, planeError(op, index, "plane holds %d bytes, at most %d expected", len(p.Data), limit)
	}
	return stride, nil
}

func checkLuma(p Plane, w, h int) (int, error) {
	if p.PixelStride > 1 {
		return 0, planeError("luma", 0, "unsupported pixel stride %d", p.PixelStride)
	}
	return checkPlane("luma", 0, p, h, w, w)
}

// copyRows copies rows of w bytes from src laid out with stride into dst.
// A final row shorter than w leaves the missing bytes zero.
func copyRows(dst, src []byte, stride, w, rows int) {
	if stride == w {
		copy(dst, src[:min(len(src), rows*w)])
		return
	}
	for y := range rows {
		start := y * stride
		copy(dst[y*w:(y+1)*w], src[start:min(start+w, len(src))])
	}
}

// planChroma validates the chroma planes and returns the copy that fills the
// chrominance half of the output.
func planChroma(planes []Plane, w, h int) (func(dst []byte), error) {
	rows := h / 2
	p := planes[1]
	ps := p.PixelStride
	if ps == 0 {
		ps = 2
		if len(planes) >= 3 {
			ps = 1
		}
	}

	switch {
	case ps == 2 && len(planes) < 3:
		// The last row may be one byte short: a plane that views an interleaved
		// buffer from its second byte cannot reach the final partner sample,
		// which is left zero.
		stride, err := checkPlane("chroma", 1, p, rows, w, w-1)
		if err != nil {
			return nil, err
		}
		return func(dst []byte) { copyRows(dst, p.Data, stride, w, rows) }, nil
	case ps == 2:
		return planSampled(p, planes[2], w, rows, 2)
	case ps == 1:
		if len(planes) < 3 {
			return nil, planeError("chroma", 2, "planar chroma needs a third plane")
		}
		return planSampled(p, planes[2], w, rows, 1)
	default:
		return nil, planeError("chroma", 1, "unsupported pixel stride %d", ps)
	}
}

// planSampled interleaves two chroma planes that hold one sample every ps
// bytes, plane 1 first. With ps 2 these are the overlapping U and V views of
// an Android YUV_420_888 image; each row is read from the plane's own start,
// so the row padding between them is never copied.
func planSampled(u, v Plane, w, rows, ps int) (func(dst []byte), error) {
	cw := w / 2
	rowLen := cw*ps - (ps - 1)
	if v.PixelStride != 0 && v.PixelStride != ps {
		return nil, planeError("chroma", 2, "pixel stride %d does not match plane 1", v.PixelStride)
	}
	su, err := checkPlane("chroma", 1, u, rows, cw*ps, rowLen)
	if err != nil {
		return nil, err
	}
	sv, err := checkPlane("chroma", 2, v, rows, cw*ps, rowLen)
	if err != nil {
		return nil, err
	}
	return func(dst []byte) {
		for y := range rows {
			ur, vr := u.Data[y*su:], v.Data[y*sv:]
			row := dst[y*w : (y+1)*w]
			for x := range cw {
				row[2*x] = ur[x*ps]
				row[2*x+1] = vr[x*ps]
			}
		}
	}, nil
}
