package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/render"
)

// ImageSize represents common frame dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common camera preview sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
)

// SceneConfig describes a synthetic camera scene holding one QR symbol.
type SceneConfig struct {
	Text       string
	Size       ImageSize
	Background color.Color
	Scale      int
	// Offset moves the symbol away from the center.
	Offset image.Point
	// Rotation in degrees, counter-clockwise.
	Rotation float64
	// Caption is printed under the symbol, like a label next to a sticker.
	Caption string
}

// DefaultSceneConfig returns a small scene with a centered symbol.
func DefaultSceneConfig(text string) SceneConfig {
	return SceneConfig{
		Text:       text,
		Size:       SmallSize,
		Background: color.White,
		Scale:      4,
	}
}

// GenerateScene renders the scene as an RGBA image.
func GenerateScene(cfg SceneConfig) (*image.RGBA, error) {
	sym, err := render.QR(cfg.Text, render.Options{Scale: cfg.Scale})
	if err != nil {
		return nil, err
	}
	var src image.Image = sym
	if cfg.Rotation != 0 {
		src = imaging.Rotate(sym, cfg.Rotation, color.White)
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	b := src.Bounds()
	origin := image.Pt((cfg.Size.Width-b.Dx())/2, (cfg.Size.Height-b.Dy())/2).Add(cfg.Offset)
	draw.Draw(img, b.Sub(b.Min).Add(origin), src, b.Min, draw.Src)

	if cfg.Caption != "" {
		face := basicfont.Face7x13
		drawer := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
		width := font.MeasureString(face, cfg.Caption).Ceil()
		y := origin.Y + b.Dy() + face.Metrics().Height.Ceil()
		drawer.Dot = fixed.P((cfg.Size.Width-width)/2, min(y, cfg.Size.Height-2))
		drawer.DrawString(cfg.Caption)
	}
	return img, nil
}

// SymbolFrame renders text into a camera frame of the given layout.
func SymbolFrame(t *testing.T, text string, opts frame.SynthOptions) *frame.Frame {
	t.Helper()
	img, err := GenerateScene(DefaultSceneConfig(text))
	require.NoError(t, err)
	f, err := frame.FromImage(img, opts)
	require.NoError(t, err)
	return f
}

// SceneFrame converts a configured scene into a camera frame.
func SceneFrame(t *testing.T, cfg SceneConfig, opts frame.SynthOptions) *frame.Frame {
	t.Helper()
	img, err := GenerateScene(cfg)
	require.NoError(t, err)
	f, err := frame.FromImage(img, opts)
	require.NoError(t, err)
	return f
}

// NoiseImage returns a deterministic field of random gray pixels.
func NoiseImage(size ImageSize, seed uint64) *image.Gray {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewGray(image.Rect(0, 0, size.Width, size.Height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

// NoiseFrame returns a frame of uniform random noise.
func NoiseFrame(t *testing.T, size ImageSize, seed uint64, opts frame.SynthOptions) *frame.Frame {
	t.Helper()
	f, err := frame.FromImage(NoiseImage(size, seed), opts)
	require.NoError(t, err)
	return f
}

// BlankFrame returns a packed NV21 frame of one gray level.
func BlankFrame(width, height int, level byte) *frame.Frame {
	y := make([]byte, width*height)
	for i := range y {
		y[i] = level
	}
	vu := make([]byte, width*height/2)
	for i := range vu {
		vu[i] = 128
	}
	return &frame.Frame{
		Width:  width,
		Height: height,
		Format: frame.FormatNV21,
		Planes: []frame.Plane{
			{Data: y, RowStride: width, PixelStride: 1},
			{Data: vu, RowStride: width, PixelStride: 2},
		},
	}
}
