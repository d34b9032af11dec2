package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/frame"
)

// WriteSymbolImage renders a scene holding text and saves it under dir.
// The format follows the extension of name.
func WriteSymbolImage(t *testing.T, dir, name, text string) string {
	t.Helper()
	img, err := GenerateScene(DefaultSceneConfig(text))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path))
	return path
}

// WriteSymbolFrame renders text into a frame and dumps it under dir with a
// name that carries its geometry.
func WriteSymbolFrame(t *testing.T, dir, base, text string, layout frame.Layout) string {
	t.Helper()
	f := SymbolFrame(t, text, frame.SynthOptions{Layout: layout})
	return WriteFrame(t, dir, base, f, layout)
}

// WriteFrame dumps f as a packed raw file under dir.
func WriteFrame(t *testing.T, dir, base string, f *frame.Frame, layout frame.Layout) string {
	t.Helper()
	raw, err := frame.Bytes(f)
	require.NoError(t, err)
	name := frame.RawName(base, frame.RawSpec{Width: f.Width, Height: f.Height, Layout: layout})
	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}
