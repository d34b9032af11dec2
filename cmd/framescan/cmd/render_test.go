package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCommand_Image(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbol.png")
	out, _, err := runCommand(t, "render", testPayload, "-o", path, "--size", "320x240")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	out, _, err = runCommand(t, "image", path, "--direct")
	require.NoError(t, err)
	assert.Contains(t, out, testPayload)
}

func TestRenderCommand_RawFrameRoundTrip(t *testing.T) {
	for _, ext := range []string{".nv21", ".nv12", ".i420"} {
		t.Run(ext, func(t *testing.T) {
			out, _, err := runCommand(t, "render", testPayload,
				"-o", filepath.Join(t.TempDir(), "preview"+ext), "--size", "640x480")
			require.NoError(t, err)
			path := strings.TrimSpace(out)
			assert.True(t, strings.HasSuffix(path, "preview_640x480"+ext), path)

			out, _, err = runCommand(t, "frame", path)
			require.NoError(t, err)
			assert.Contains(t, out, testPayload)
		})
	}
}

func TestRenderCommand_RawNameKeepsGeometry(t *testing.T) {
	want := filepath.Join(t.TempDir(), "scan_320x240.nv21")
	out, _, err := runCommand(t, "render", testPayload, "-o", want, "--size", "320x240")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no output", []string{"render", testPayload}},
		{"no text", []string{"render", "-o", filepath.Join(dir, "a.png")}},
		{"bad level", []string{"render", testPayload, "-o", filepath.Join(dir, "a.png"), "--level", "max"}},
		{"bad size", []string{"render", testPayload, "-o", filepath.Join(dir, "a.png"), "--size", "big"}},
		{"odd frame", []string{"render", testPayload, "-o", filepath.Join(dir, "a.nv21"), "--size", "321x241"}},
		{"negative margin", []string{"render", testPayload, "-o", filepath.Join(dir, "a.png"), "--margin", "-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
