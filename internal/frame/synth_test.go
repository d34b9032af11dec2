package frame

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePixelFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    PixelFormat
		wantErr bool
	}{
		{"YUV_420_888", FormatYUV420, false},
		{"yuv420", FormatYUV420, false},
		{" nv21 ", FormatNV21, false},
		{"i420", FormatI420, false},
		{"jpeg", FormatJPEG, false},
		{"bayer", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePixelFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPixelFormat_Is420(t *testing.T) {
	for _, f := range []PixelFormat{FormatYUV420, FormatNV21, FormatNV12, FormatI420} {
		assert.True(t, f.Is420(), f)
	}
	for _, f := range []PixelFormat{FormatYUYV, FormatRGBA, FormatJPEG, ""} {
		assert.False(t, f.Is420(), f)
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, LayoutNV21, l)

	l, err = ParseLayout("I420")
	require.NoError(t, err)
	assert.Equal(t, LayoutI420, l)

	_, err = ParseLayout("yv12")
	assert.Error(t, err)
}

func TestFromImage_DropsOddEdges(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 11, 7))
	f, err := FromImage(img, SynthOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, f.Width)
	assert.Equal(t, 6, f.Height)
	assert.Equal(t, FormatNV21, f.Format)
}

func TestFromImage_Errors(t *testing.T) {
	_, err := FromImage(nil, SynthOptions{})
	assert.Error(t, err)

	_, err = FromImage(image.NewGray(image.Rect(0, 0, 1, 1)), SynthOptions{})
	assert.Error(t, err)

	_, err = FromImage(image.NewGray(image.Rect(0, 0, 4, 4)), SynthOptions{RowPadding: -1})
	assert.Error(t, err)

	_, err = FromImage(image.NewGray(image.Rect(0, 0, 4, 4)), SynthOptions{Layout: "yv12"})
	assert.Error(t, err)
}

func TestFromImage_ColorSampling(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	red := color.RGBA{R: 255, A: 255}
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, red)
		}
	}
	wantY, wantCb, wantCr := color.RGBToYCbCr(255, 0, 0)

	f, err := FromImage(img, SynthOptions{Layout: LayoutNV12})
	require.NoError(t, err)
	for _, v := range f.Planes[0].Data {
		assert.Equal(t, wantY, v)
	}
	uv := f.Planes[1].Data
	assert.Equal(t, wantCb, uv[0])
	assert.Equal(t, wantCr, uv[1])

	f, err = FromImage(img, SynthOptions{Layout: LayoutNV21})
	require.NoError(t, err)
	vu := f.Planes[1].Data
	assert.Equal(t, wantCr, vu[0])
	assert.Equal(t, wantCb, vu[1])
}

func TestFromRaw(t *testing.T) {
	w, h := 8, 4
	raw := make([]byte, w*h*3/2)
	for i := range raw {
		raw[i] = byte(i)
	}

	f, err := FromRaw(raw, w, h, LayoutNV21, 0)
	require.NoError(t, err)
	assert.Equal(t, FormatNV21, f.Format)
	buf, err := Convert(f)
	require.NoError(t, err)
	assert.Equal(t, raw, buf.Data)

	f, err = FromRaw(raw, w, h, LayoutI420, 0)
	require.NoError(t, err)
	require.Len(t, f.Planes, 3)
	assert.Len(t, f.Planes[1].Data, 8)
	assert.Len(t, f.Planes[2].Data, 8)

	_, err = FromRaw(raw[:20], w, h, LayoutNV21, 0)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)

	_, err = FromRaw(raw, 7, 4, LayoutNV21, 0)
	assert.Error(t, err)

	_, err = FromRaw(raw, w, h, LayoutAndroid, 0)
	assert.Error(t, err)
}

func TestFromRaw_RejectsTrailingBytes(t *testing.T) {
	w, h := 8, 4
	raw := make([]byte, w*h*3/2+w)
	for _, layout := range []Layout{LayoutNV21, LayoutI420} {
		_, err := FromRaw(raw, w, h, layout, 0)
		var fe *FormatError
		assert.ErrorAs(t, err, &fe, layout)
	}

	huge := math.MaxInt / 4 &^ 1
	_, err := FromRaw(raw, huge, huge, LayoutNV21, 0)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestBytes_I420RoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := range 4 {
		for x := range 6 {
			img.Set(x, y, color.RGBA{R: uint8(40 * x), G: uint8(60 * y), B: 100, A: 255})
		}
	}
	f, err := FromImage(img, SynthOptions{Layout: LayoutI420, RowPadding: 2})
	require.NoError(t, err)

	raw, err := Bytes(f)
	require.NoError(t, err)
	back, err := FromRaw(raw, 6, 4, LayoutI420, 0)
	require.NoError(t, err)

	a, err := Convert(f)
	require.NoError(t, err)
	b, err := Convert(back)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestClone_IsDeepAndReleasable(t *testing.T) {
	f := packedNV21(16, 8)
	c := f.Clone()
	require.NotNil(t, c)
	assert.Equal(t, f.Planes[0].Data, c.Planes[0].Data)
	assert.Equal(t, f.Planes[1].Data, c.Planes[1].Data)

	c.Planes[0].Data[0] = ^f.Planes[0].Data[0]
	assert.NotEqual(t, f.Planes[0].Data[0], c.Planes[0].Data[0])

	c.Release()
	assert.Nil(t, c.Planes)
	assert.NotPanics(t, c.Release)

	var nilFrame *Frame
	assert.Nil(t, nilFrame.Clone())
	assert.False(t, nilFrame.HasImage())
}

func TestGray_SharesLuma(t *testing.T) {
	f := packedNV21(8, 4)
	buf, err := Convert(f)
	require.NoError(t, err)
	g := buf.Gray()
	assert.Equal(t, image.Rect(0, 0, 8, 4), g.Bounds())
	assert.Equal(t, buf.Data[9], g.GrayAt(1, 1).Y)
}

func TestParseRawName(t *testing.T) {
	tests := []struct {
		name string
		want RawSpec
		ok   bool
	}{
		{"scan_640x480.nv21", RawSpec{640, 480, LayoutNV21}, true},
		{"/tmp/a/b_32x16.I420", RawSpec{32, 16, LayoutI420}, true},
		{"cam_8x4.yuv", RawSpec{8, 4, LayoutNV21}, true},
		{"cam_8x4.png", RawSpec{}, false},
		{"cam.nv21", RawSpec{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRawName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, IsRawName("x.NV12"))
	assert.False(t, IsRawName("x.jpg"))
	assert.Equal(t, "qr_64x48.nv21", RawName("qr", RawSpec{Width: 64, Height: 48}))
}
