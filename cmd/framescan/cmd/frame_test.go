package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/batch"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

func TestFrameCommand_Layouts(t *testing.T) {
	for _, layout := range []frame.Layout{frame.LayoutNV21, frame.LayoutNV12, frame.LayoutI420} {
		t.Run(string(layout), func(t *testing.T) {
			path := testutil.WriteSymbolFrame(t, t.TempDir(), "preview", testPayload, layout)
			out, _, err := runCommand(t, "frame", path)
			require.NoError(t, err)
			assert.Contains(t, out, testPayload)
		})
	}
}

func TestFrameCommand_ExplicitGeometry(t *testing.T) {
	f := testutil.SymbolFrame(t, testPayload, frame.SynthOptions{Layout: frame.LayoutNV12})
	raw, err := frame.Bytes(f)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dump.bin")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	out, _, err := runCommand(t, "frame", path, "--format", "json",
		"--width", strconv.Itoa(f.Width), "--height", strconv.Itoa(f.Height), "--layout", "nv12")
	require.NoError(t, err)

	var items []batch.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items), out)
	require.Len(t, items, 1)
	assert.Equal(t, scanner.StatusDecoded, items[0].Status)
	assert.Equal(t, testPayload, items[0].Text)
	assert.Equal(t, "qr", items[0].Format)
}

func TestFrameCommand_NoSymbol(t *testing.T) {
	f := testutil.NoiseFrame(t, testutil.SmallSize, 3, frame.SynthOptions{Layout: frame.LayoutNV21})
	path := testutil.WriteFrame(t, t.TempDir(), "noise", f, frame.LayoutNV21)

	out, _, err := runCommand(t, "frame", path, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "not_found")
}

func TestFrameCommand_Malformed(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteSymbolFrame(t, dir, "good", testPayload, frame.LayoutNV21)
	short := filepath.Join(dir, "short_640x480.nv21")
	require.NoError(t, os.WriteFile(short, make([]byte, 100), 0o600))

	out, _, err := runCommand(t, "frame", good, short, "--format", "json")
	require.ErrorIs(t, err, errMalformedFrames)

	var items []batch.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items), out)
	require.Len(t, items, 2)
	assert.Equal(t, scanner.StatusDecoded, items[0].Status)
	assert.Equal(t, scanner.StatusMalformed, items[1].Status)
}

func TestFrameCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	unnamed := filepath.Join(dir, "frame.bin")
	require.NoError(t, os.WriteFile(unnamed, make([]byte, 64), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"no files", []string{"frame"}},
		{"width without height", []string{"frame", unnamed, "--width", "8"}},
		{"bad layout", []string{"frame", unnamed, "--layout", "yv12"}},
		{"bad format", []string{"frame", unnamed, "--width", "4", "--height", "4", "--format", "xml"}},
		{"bad binarizer", []string{"frame", unnamed, "--binarizer", "otsu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestFrameCommand_UnknownGeometryIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o600))

	out, _, err := runCommand(t, "frame", path)
	require.NoError(t, err)
	assert.Contains(t, out, "frame geometry unknown")
}

func TestFrameCommand_ProjectID(t *testing.T) {
	text := "https://example.com/projects/0123456789abcdef01234567"
	path := testutil.WriteSymbolFrame(t, t.TempDir(), "project", text, frame.LayoutNV21)

	out, _, err := runCommand(t, "frame", path, "--project-id", "--format", "json")
	require.NoError(t, err)
	var items []batch.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "0123456789abcdef01234567", items[0].ProjectID)
}
