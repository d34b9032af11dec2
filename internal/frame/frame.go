package frame

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/framescan/internal/mempool"
)

// PixelFormat tags the pixel encoding of a Frame.
type PixelFormat string

const (
	// FormatYUV420 is the flexible 4:2:0 format delivered by Android cameras
	// (three planes, chroma pixel stride 1 or 2).
	FormatYUV420 PixelFormat = "YUV_420_888"
	// FormatNV21 is semi-planar 4:2:0 with interleaved V/U.
	FormatNV21 PixelFormat = "NV21"
	// FormatNV12 is semi-planar 4:2:0 with interleaved U/V.
	FormatNV12 PixelFormat = "NV12"
	// FormatI420 is fully planar 4:2:0 (Y, U, V).
	FormatI420 PixelFormat = "I420"

	FormatYUYV PixelFormat = "YUYV"
	FormatRGBA PixelFormat = "RGBA"
	FormatJPEG PixelFormat = "JPEG"
)

var knownFormats = []PixelFormat{
	FormatYUV420, FormatNV21, FormatNV12, FormatI420, FormatYUYV, FormatRGBA, FormatJPEG,
}

// Is420 reports whether the format belongs to the YUV 4:2:0 family the
// converter understands.
func (f PixelFormat) Is420() bool {
	switch f {
	case FormatYUV420, FormatNV21, FormatNV12, FormatI420:
		return true
	default:
		return false
	}
}

// ParsePixelFormat parses a format name case-insensitively.
// "yuv420" and "yuv_420_888" both map to FormatYUV420.
func ParsePixelFormat(s string) (PixelFormat, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	if n == "YUV420" {
		return FormatYUV420, nil
	}
	for _, f := range knownFormats {
		if string(f) == n {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown pixel format: %q", s)
}

// Plane is one image plane of a Frame. The length of Data is the plane's byte length.
type Plane struct {
	Data []byte
	// RowStride is the distance in bytes between the starts of two rows.
	// Zero means tightly packed.
	RowStride int
	// PixelStride is the distance in bytes between two samples of the same row.
	// Zero means the layout default (1 for luminance).
	PixelStride int
}

// Frame is a captured image handed over by a frame source. Frames are borrowed:
// consumers must not keep references to Planes after returning.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Planes []Plane

	pooled []byte
}

// HasImage reports whether the frame carries any backing image data.
func (f *Frame) HasImage() bool {
	return f != nil && len(f.Planes) > 0
}

// Size returns the total number of plane bytes.
func (f *Frame) Size() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, p := range f.Planes {
		n += len(p.Data)
	}
	return n
}

// Clone returns a deep copy of the frame whose plane data lives in a single
// pooled allocation. Call Release on the clone once it is no longer needed.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{Width: f.Width, Height: f.Height, Format: f.Format}
	if len(f.Planes) == 0 {
		return out
	}
	backing := mempool.GetBytes(f.Size())
	out.Planes = make([]Plane, len(f.Planes))
	off := 0
	for i, p := range f.Planes {
		n := copy(backing[off:], p.Data)
		out.Planes[i] = Plane{
			Data:        backing[off : off+n : off+n],
			RowStride:   p.RowStride,
			PixelStride: p.PixelStride,
		}
		off += n
	}
	out.pooled = backing
	return out
}

// Release returns pooled plane memory obtained by Clone. It is a no-op for
// frames that were not produced by Clone.
func (f *Frame) Release() {
	if f == nil || f.pooled == nil {
		return
	}
	mempool.PutBytes(f.pooled)
	f.pooled = nil
	f.Planes = nil
}
